// Package legalize turns an illegal placement into a legal one.
//
// A [Legalizer] owns a [placement.Design] for the duration of a run and
// rewrites cell positions in place. The run has five stages:
//
//  1. [Legalizer.ComputeDensity] scores how crowded each cell's neighborhood is.
//  2. [Legalizer.SortAndCluster] groups nearby cells of similar density and
//     fixes the placement order.
//  3. [Legalizer.PlaceCells] binds each movable cell to the nearest free run
//     of sites.
//  4. [Legalizer.SimulatedAnnealing] swaps cells of equal footprint to reduce
//     total displacement within a wall-clock budget.
//  5. [Legalizer.CalculateDisplacement] and [Legalizer.CheckOverlap] report
//     on the result.
//
// [Legalizer.Run] performs all of them.
//
// # Site ownership
//
// Once placed, a movable cell is bound to a run of consecutive sites in one
// row and its position is always the first site of that run. Annealing swaps
// runs between cells that need the same number of sites, so the set of
// occupied sites never changes after placement. That is what allows cluster
// passes to run on several goroutines (see [Config.Workers]).
//
// # Determinism
//
// Time, randomness and progress reporting are injected through [Config]. With
// a fake [Clock], a fixed seed and [Config.MaxIterations], a run is fully
// reproducible regardless of the number of workers.
package legalize

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/legalize/pkg/observability"
	"github.com/matzehuels/legalize/pkg/placement"
)

// Defaults for Config fields left at their zero value.
const (
	DefaultEpsilon     = 10.0
	DefaultMaxDuration = 5 * time.Minute
	DefaultReportEvery = time.Second
	DefaultWorkers     = 1
)

// Config controls a legalization run.
type Config struct {
	// Epsilon is the density radius in multiples of the site width.
	Epsilon float64

	// MaxDuration is the annealing budget measured on Clock. A negative value
	// skips annealing.
	MaxDuration time.Duration

	// Schedule is the per-pass temperature schedule.
	Schedule Schedule

	// Workers bounds how many cluster passes run concurrently.
	Workers int

	// Seed derives every pass's random source.
	Seed uint64

	// MaxIterations stops annealing after this many outer iterations.
	// Zero means no limit.
	MaxIterations int

	Clock       Clock
	NewRand     func(seed uint64) Rand
	Reporter    Reporter
	ReportEvery time.Duration
	Logger      *log.Logger
}

// WithDefaults returns a copy of c with zero fields filled in.
func (c Config) WithDefaults() Config {
	if c.Epsilon == 0 {
		c.Epsilon = DefaultEpsilon
	}
	if c.MaxDuration == 0 {
		c.MaxDuration = DefaultMaxDuration
	}
	if c.Schedule == (Schedule{}) {
		c.Schedule = DefaultSchedule()
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Clock == nil {
		c.Clock = SystemClock
	}
	if c.NewRand == nil {
		c.NewRand = NewRand
	}
	if c.Reporter == nil {
		c.Reporter = nopReporter{}
	}
	if c.ReportEvery <= 0 {
		c.ReportEvery = DefaultReportEvery
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard)
	}
	return c
}

// Validate checks the parts of c that defaults cannot repair.
func (c Config) Validate() error {
	if c.Epsilon < 0 {
		return fmt.Errorf("epsilon %g must not be negative", c.Epsilon)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("max iterations %d must not be negative", c.MaxIterations)
	}
	if err := c.Schedule.Validate(); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	return nil
}

// Legalizer runs the legalization stages over one design.
// It is not safe for concurrent use.
type Legalizer struct {
	design   *placement.Design
	cfg      Config
	logger   *log.Logger
	clusters []Cluster
	bound    []run // site run per cell, indexed like design.Cells
	all      []int // every cell index, the global annealing scope
	unplaced []int
}

// New prepares a legalizer for d. Sites already occupied in d's grid are left
// as they are; cells are never considered bound to them.
func New(d *placement.Design, cfg Config) (*Legalizer, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	all := make([]int, len(d.Cells))
	for i := range all {
		all[i] = i
	}
	return &Legalizer{
		design: d,
		cfg:    cfg,
		logger: cfg.Logger,
		bound:  make([]run, len(d.Cells)),
		all:    all,
	}, nil
}

// Design returns the design being legalized.
func (l *Legalizer) Design() *placement.Design { return l.design }

// Timings records how long each stage took on the configured clock.
type Timings struct {
	Density time.Duration `json:"density"`
	Cluster time.Duration `json:"cluster"`
	Place   time.Duration `json:"place"`
	Anneal  time.Duration `json:"anneal"`
}

// Result is the outcome of Run.
type Result struct {
	Metrics     Metrics     `json:"metrics"`
	Unplaced    []string    `json:"unplaced,omitempty"`
	Overlaps    []Overlap   `json:"overlaps,omitempty"`
	Clusters    int         `json:"clusters"`
	OutOfBounds int         `json:"out_of_bounds"`
	Anneal      AnnealStats `json:"anneal"`
	Timings     Timings     `json:"timings"`
}

// Run performs every stage and returns the summary. Cell positions in the
// design are updated in place. Cancelling ctx cuts annealing short; the best
// placement found so far is kept.
func (l *Legalizer) Run(ctx context.Context) *Result {
	hooks := observability.Legalize()
	clock := l.cfg.Clock
	res := &Result{}

	stage := func(name string, d *time.Duration, fn func()) {
		start := clock.Now()
		fn()
		*d = clock.Now().Sub(start)
		hooks.OnStage(ctx, name, *d)
	}

	stage("density", &res.Timings.Density, func() { l.ComputeDensity(l.cfg.Epsilon) })
	stage("cluster", &res.Timings.Cluster, func() { l.SortAndCluster() })
	res.Clusters = len(l.clusters)
	if len(l.clusters) > 0 && l.clusters[0].OutOfBounds {
		res.OutOfBounds = len(l.clusters[0].Members)
	}
	l.logger.Info("clustered cells", "cells", len(l.design.Cells), "clusters", res.Clusters, "out_of_bounds", res.OutOfBounds)

	stage("place", &res.Timings.Place, func() { l.PlaceCells(ctx) })
	for _, i := range l.unplaced {
		res.Unplaced = append(res.Unplaced, l.design.Cells[i].Name)
	}
	l.logger.Info("placed cells", "placed", l.Placed(), "unplaced", len(res.Unplaced))

	if l.cfg.MaxDuration > 0 {
		stage("anneal", &res.Timings.Anneal, func() { res.Anneal = l.SimulatedAnnealing(ctx, l.cfg.MaxDuration) })
		l.logger.Info("annealing finished",
			"iterations", res.Anneal.Iterations,
			"initial", res.Anneal.Initial,
			"best", res.Anneal.Best,
			"stopped", res.Anneal.Stopped)
	} else {
		res.Anneal.Initial = l.design.TotalDisplacement()
		res.Anneal.Best = res.Anneal.Initial
	}

	res.Metrics = l.CalculateDisplacement()
	res.Overlaps = l.CheckOverlap()
	return res
}

// Placed returns the number of cells currently bound to sites.
func (l *Legalizer) Placed() int {
	n := 0
	for _, r := range l.bound {
		if r.bound() {
			n++
		}
	}
	return n
}
