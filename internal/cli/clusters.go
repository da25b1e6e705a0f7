package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/legalize/pkg/legalize"
	"github.com/matzehuels/legalize/pkg/pipeline"
	"github.com/matzehuels/legalize/pkg/report"
)

// clustersOpts holds the flags of the clusters command.
type clustersOpts struct {
	output      string  // output file; stdout when empty
	format      string  // dot or svg
	epsilon     float64 // density radius in site widths
	maxClusters int     // clusters drawn (0 = all)
	detailed    bool    // density and original position in labels
	inputPrefix string
}

// clustersCommand creates the clusters debug command.
func (c *CLI) clustersCommand() *cobra.Command {
	o := clustersOpts{format: "dot", epsilon: pipeline.DefaultEpsilon}

	cmd := &cobra.Command{
		Use:   "clusters INPUT",
		Short: "Render the cluster partition of a design",
		Long: `Compute cell densities and the cluster partition used for placement order,
and render it as a Graphviz graph. Each cluster is a subgraph whose members are
chained in the order they are placed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("format") && o.output != "" {
				if ext := strings.TrimPrefix(filepath.Ext(o.output), "."); ext == "svg" {
					o.format = ext
				}
			}
			if o.format != "dot" && o.format != "svg" {
				return fmt.Errorf("invalid format: %s (must be 'dot' or 'svg')", o.format)
			}
			return c.runClusters(cmd.Context(), args[0], &o)
		},
	}

	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&o.format, "format", "f", o.format, "output format: dot, svg (default: from the -o extension, else dot)")
	cmd.Flags().Float64VarP(&o.epsilon, "epsilon", "e", o.epsilon, "density radius in site widths")
	cmd.Flags().IntVar(&o.maxClusters, "max-clusters", 0, "draw at most n clusters (0 = all)")
	cmd.Flags().BoolVar(&o.detailed, "detailed", false, "show density and original position")
	cmd.Flags().StringVar(&o.inputPrefix, "input-prefix", "", "benchmark prefix (default: input directory name)")

	return cmd
}

func (c *CLI) runClusters(ctx context.Context, input string, o *clustersOpts) error {
	spinner := newSpinner(ctx, "Clustering "+input)
	spinner.Start()
	defer spinner.Stop()

	d, err := pipeline.Load(pipeline.Options{Input: input, InputPrefix: o.inputPrefix, Logger: c.Logger})
	if err != nil {
		return err
	}
	l, err := legalize.New(d, legalize.Config{Epsilon: o.epsilon, Logger: c.Logger})
	if err != nil {
		return err
	}
	l.ComputeDensity(o.epsilon)
	clusters := l.SortAndCluster()

	dot := report.ClusterDOT(d, clusters, report.DOTOptions{
		MaxClusters: o.maxClusters,
		Detailed:    o.detailed,
	})
	data := []byte(dot)
	if o.format == "svg" {
		if data, err = report.RenderDOT(ctx, dot); err != nil {
			return err
		}
	}
	spinner.Stop()

	if o.output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(o.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", o.output, err)
	}
	printSuccess("%d clusters from %d cells", len(clusters), len(d.Cells))
	printFile(o.output)
	return nil
}
