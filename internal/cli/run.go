package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/legalize/pkg/pipeline"
)

// runOpts holds the command-line flags for the run command. Flags that were
// set explicitly override values from --config.
type runOpts struct {
	config       string  // TOML options file
	epsilon      float64 // density radius in site widths
	minutes      float64 // annealing budget in minutes
	skipAnneal   bool    // stop after greedy placement
	seed         uint64  // base random seed
	workers      int     // goroutines for cluster passes
	maxIter      int     // outer annealing iterations (0 = until the budget expires)
	formats      string  // comma-separated output formats
	vectors      bool    // displacement vectors in svg output
	inputPrefix  string  // benchmark prefix inside the input directory
	outputPrefix string  // file prefix inside the output directory
	noCache      bool    // disable the result cache
	cacheDir     string  // result cache directory
	refresh      bool    // ignore cached results
	tui          bool    // live progress view
}

// runCommand creates the run command.
func (c *CLI) runCommand() *cobra.Command {
	return newRunCmd(func(cmd *cobra.Command, opts pipeline.Options, o *runOpts) error {
		return c.runRun(cmd.Context(), opts, o)
	})
}

// newRunCmd builds the run command around run, which receives the merged
// options.
func newRunCmd(run func(*cobra.Command, pipeline.Options, *runOpts) error) *cobra.Command {
	var o runOpts

	cmd := &cobra.Command{
		Use:   "run [INPUT] [OUTPUT_DIR]",
		Short: "Legalize a placement",
		Long: `Legalize the placement in INPUT and write the result to OUTPUT_DIR.

INPUT is a Bookshelf benchmark directory, its .aux file, or a JSON design.
The benchmark prefix defaults to the directory name; the output prefix
defaults to the name of OUTPUT_DIR. With --format pl (the default) and a
Bookshelf input, a complete benchmark is written.`,
		Example: `  legalize run benchmarks/adaptec1 out/adaptec1 -e 8 -t 2
  legalize run design.json out --format json,svg,html --skip-anneal
  legalize run --config legalize.toml`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := o.options(cmd, args)
			if err != nil {
				return err
			}
			return run(cmd, opts, &o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.config, "config", "", "read options from a TOML file")
	f.Float64VarP(&o.epsilon, "epsilon", "e", pipeline.DefaultEpsilon, "density radius in site widths")
	f.Float64VarP(&o.minutes, "time", "t", pipeline.DefaultMaxDuration.Minutes(), "annealing budget in minutes")
	f.BoolVar(&o.skipAnneal, "skip-anneal", false, "stop after greedy placement")
	f.Uint64Var(&o.seed, "seed", pipeline.DefaultSeed, "random seed")
	f.IntVar(&o.workers, "workers", pipeline.DefaultWorkers, "goroutines for per-cluster annealing passes")
	f.IntVar(&o.maxIter, "max-iterations", 0, "stop annealing after n outer iterations (0 = budget only)")
	f.StringVarP(&o.formats, "format", "f", "", "output format(s): pl (default), json, svg, html, xlsx (comma-separated)")
	f.BoolVar(&o.vectors, "vectors", false, "draw displacement vectors in svg output")
	f.StringVar(&o.inputPrefix, "input-prefix", "", "benchmark prefix (default: input directory name)")
	f.StringVar(&o.outputPrefix, "output-prefix", "", "output file prefix (default: output directory name)")
	f.BoolVar(&o.noCache, "no-cache", false, "disable the result cache")
	f.StringVar(&o.cacheDir, "cache-dir", "", "result cache directory (default: $LEGALIZE_CACHE_DIR or ~/.cache/legalize)")
	f.BoolVar(&o.refresh, "refresh", false, "ignore cached results")
	f.BoolVar(&o.tui, "tui", false, "show a live annealing progress view")

	return cmd
}

// options merges the config file, positional arguments and explicitly set
// flags into pipeline options.
func (o *runOpts) options(cmd *cobra.Command, args []string) (pipeline.Options, error) {
	var opts pipeline.Options
	if o.config != "" {
		var err error
		if opts, err = pipeline.LoadOptionsFile(o.config); err != nil {
			return opts, err
		}
	}
	if len(args) > 0 {
		opts.Input = args[0]
	}
	if len(args) > 1 {
		opts.Output = args[1]
	}

	changed := cmd.Flags().Changed
	if changed("epsilon") || o.config == "" {
		opts.Epsilon = o.epsilon
	}
	if changed("time") || o.config == "" {
		opts.MaxDuration = time.Duration(o.minutes * float64(time.Minute))
		// An explicit zero budget means no annealing, not the default budget.
		if opts.MaxDuration == 0 {
			opts.SkipAnneal = true
		}
	}
	if changed("seed") || o.config == "" {
		opts.Seed = o.seed
	}
	if changed("workers") || o.config == "" {
		opts.Workers = o.workers
	}
	if changed("skip-anneal") {
		opts.SkipAnneal = o.skipAnneal
	}
	if changed("max-iterations") {
		opts.MaxIterations = o.maxIter
	}
	if changed("format") {
		opts.Formats = parseFormats(o.formats)
	}
	if changed("vectors") {
		opts.Vectors = o.vectors
	}
	if changed("input-prefix") {
		opts.InputPrefix = o.inputPrefix
	}
	if changed("output-prefix") {
		opts.OutputPrefix = o.outputPrefix
	}
	if changed("refresh") {
		opts.Refresh = o.refresh
	}
	if opts.Input == "" {
		return opts, errors.New("no input: pass INPUT or set input in --config")
	}
	return opts, nil
}

func (c *CLI) runRun(ctx context.Context, opts pipeline.Options, o *runOpts) error {
	runner, err := c.newRunner(o.noCache, o.cacheDir)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer runner.Close()

	if opts.Output == "" {
		printWarning("No output directory given; results are not written")
	}

	prog := newProgress(c.Logger)
	var res *pipeline.Result
	if o.tui {
		// The progress view owns the terminal; keep the pipeline quiet.
		opts.Logger = newLogger(io.Discard, LogInfo)
		res, err = runWithTUI(ctx, runner, opts)
	} else {
		opts.Logger = c.Logger
		opts.Reporter = logReporter(c.Logger)
		res, err = runner.Execute(ctx, opts)
	}
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Legalized %s", res.Design.Name))

	printResult(res)
	if ctx.Err() != nil {
		printWarning("Interrupted; the best placement found so far was kept")
		return ctx.Err()
	}
	return nil
}
