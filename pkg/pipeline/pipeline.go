// Package pipeline runs a legalization end to end: load a design, legalize
// it (or reuse a cached result), and write the requested outputs.
//
// The CLI and the HTTP server share this package so that defaults, caching
// and output formats behave the same everywhere.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Input:   "benchmarks/adaptec1",
//	    Output:  "out/adaptec1-legal",
//	    Formats: []string{"pl", "svg"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Legalize.Metrics.Total)
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/legalize/pkg/cache"
	pkgerr "github.com/matzehuels/legalize/pkg/errors"
	"github.com/matzehuels/legalize/pkg/legalize"
	"github.com/matzehuels/legalize/pkg/placement"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	DefaultEpsilon     = legalize.DefaultEpsilon
	DefaultMaxDuration = legalize.DefaultMaxDuration
	DefaultWorkers     = legalize.DefaultWorkers

	// DefaultSeed is the default random seed for reproducibility.
	DefaultSeed = uint64(42)
)

// Output formats.
const (
	FormatPl   = "pl"
	FormatJSON = "json"
	FormatSVG  = "svg"
	FormatHTML = "html"
	FormatXLSX = "xlsx"
)

// DefaultFormats is written when no format is requested.
var DefaultFormats = []string{FormatPl}

// ValidFormats is the set of supported output formats, in output order.
var ValidFormats = []string{FormatPl, FormatJSON, FormatSVG, FormatHTML, FormatXLSX}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures a pipeline run. Options load from TOML (see
// [LoadOptionsFile]) and are the body of an API request.
type Options struct {
	// Input is a Bookshelf benchmark directory or a JSON design file.
	Input string `toml:"input" json:"input,omitempty"`
	// InputPrefix names the benchmark files; defaults to the directory's base name.
	InputPrefix string `toml:"input_prefix" json:"input_prefix,omitempty"`
	// Output is the directory outputs are written to. Empty writes nothing.
	Output string `toml:"output" json:"output,omitempty"`
	// OutputPrefix names the output files; defaults to the output directory's base name.
	OutputPrefix string `toml:"output_prefix" json:"output_prefix,omitempty"`

	Epsilon float64 `toml:"epsilon" json:"epsilon,omitempty"`
	// MaxDuration is the annealing budget; zero means DefaultMaxDuration.
	// Set SkipAnneal for no annealing.
	MaxDuration   time.Duration     `toml:"max_duration" json:"max_duration,omitempty"`
	SkipAnneal    bool              `toml:"skip_anneal" json:"skip_anneal,omitempty"`
	Seed          uint64            `toml:"seed" json:"seed,omitempty"`
	Workers       int               `toml:"workers" json:"workers,omitempty"`
	MaxIterations int               `toml:"max_iterations" json:"max_iterations,omitempty"`
	Schedule      legalize.Schedule `toml:"schedule" json:"schedule,omitempty"`

	Formats []string `toml:"formats" json:"formats,omitempty"`
	Vectors bool     `toml:"vectors" json:"vectors,omitempty"` // displacement vectors in svg output
	Refresh bool     `toml:"refresh" json:"refresh,omitempty"` // ignore cached results

	// Runtime options (not serialized)
	Design   *placement.Design `toml:"-" json:"-"` // preloaded design; Input is then only a label
	Logger   *log.Logger       `toml:"-" json:"-"`
	Reporter legalize.Reporter `toml:"-" json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies the run in logs and API responses.
	RunID string

	Design     *placement.Design
	DesignHash string

	// Legalize summarizes the legalization, cached or fresh.
	Legalize *legalize.Result

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Files lists every file written under Options.Output.
	Files []string

	Stats    Stats
	CacheHit bool
}

// Stats contains pipeline timings and sizes.
type Stats struct {
	Cells        int
	Rows         int
	LoadTime     time.Duration
	LegalizeTime time.Duration
	WriteTime    time.Duration
}

// =============================================================================
// Validation
// =============================================================================

// ValidateFormat checks that a format is supported.
func ValidateFormat(format string) error {
	if !slices.Contains(ValidFormats, format) {
		return pkgerr.New(pkgerr.ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)", format, strings.Join(ValidFormats, ", "))
	}
	return nil
}

// ValidateFormats checks that all formats are supported.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// SetDefaults fills zero fields with defaults.
func (o *Options) SetDefaults() {
	if o.Epsilon == 0 {
		o.Epsilon = DefaultEpsilon
	}
	if o.MaxDuration == 0 {
		o.MaxDuration = DefaultMaxDuration
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Schedule == (legalize.Schedule{}) {
		o.Schedule = legalize.DefaultSchedule()
	}
	if len(o.Formats) == 0 {
		o.Formats = slices.Clone(DefaultFormats)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks options after defaults have been applied.
func (o *Options) Validate() error {
	if o.Input == "" && o.Design == nil {
		return pkgerr.New(pkgerr.ErrCodeInvalidOptions, "input is required")
	}
	if o.Epsilon < 0 {
		return pkgerr.New(pkgerr.ErrCodeInvalidOptions, "epsilon must not be negative: %g", o.Epsilon)
	}
	if o.MaxDuration < 0 {
		return pkgerr.New(pkgerr.ErrCodeInvalidOptions, "max duration must not be negative: %s", o.MaxDuration)
	}
	if o.MaxIterations < 0 {
		return pkgerr.New(pkgerr.ErrCodeInvalidOptions, "max iterations must not be negative: %d", o.MaxIterations)
	}
	if err := o.Schedule.Validate(); err != nil {
		return pkgerr.Wrap(pkgerr.ErrCodeInvalidOptions, err, "invalid schedule")
	}
	for _, p := range []string{o.InputPrefix, o.OutputPrefix} {
		if p == "" {
			continue
		}
		if err := pkgerr.ValidateDesignName(p); err != nil {
			return err
		}
	}
	return ValidateFormats(o.Formats)
}

// ValidateAndSetDefaults applies defaults and validates. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetDefaults()
	if err := o.Validate(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// LegalizeConfig returns the legalizer configuration for o.
func (o *Options) LegalizeConfig() legalize.Config {
	budget := o.MaxDuration
	if o.SkipAnneal {
		budget = -1
	}
	return legalize.Config{
		Epsilon:       o.Epsilon,
		MaxDuration:   budget,
		Schedule:      o.Schedule,
		Workers:       o.Workers,
		Seed:          o.Seed,
		MaxIterations: o.MaxIterations,
		Reporter:      o.Reporter,
		Logger:        o.Logger,
	}
}

// PlacementKeyOpts returns the cache key options for o. Workers is left out:
// results do not depend on it.
func (o *Options) PlacementKeyOpts() cache.PlacementKeyOpts {
	budget := o.MaxDuration
	if o.SkipAnneal {
		budget = -1
	}
	return cache.PlacementKeyOpts{
		Epsilon:       o.Epsilon,
		MaxDuration:   budget,
		Seed:          o.Seed,
		MaxIterations: o.MaxIterations,
		Schedule: [4]float64{
			o.Schedule.Initial,
			o.Schedule.Cooling,
			o.Schedule.Floor,
			float64(o.Schedule.StepProposals),
		},
	}
}

// String formats the options that affect the result, for logs.
func (o *Options) String() string {
	return fmt.Sprintf("epsilon=%g budget=%s seed=%d workers=%d formats=%s",
		o.Epsilon, o.MaxDuration, o.Seed, o.Workers, strings.Join(o.Formats, ","))
}
