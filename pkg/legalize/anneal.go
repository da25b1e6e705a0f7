package legalize

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/legalize/pkg/observability"
)

// SwapWidthTolerance scales the site width into the largest width difference
// allowed between two cells proposed for a swap.
const SwapWidthTolerance = 0.1

// MaxStepProposals bounds Schedule.StepProposals.
const MaxStepProposals = 1 << 20

// deadlineCheckInterval is how many proposals a pass makes between deadline
// checks within one temperature step.
const deadlineCheckInterval = 1024

// Schedule is the temperature schedule of one annealing pass. A pass starts
// at Initial, runs StepProposals proposals, multiplies the temperature by
// Cooling and repeats while the temperature is above Floor.
type Schedule struct {
	Initial       float64 `json:"initial" toml:"initial"`
	Cooling       float64 `json:"cooling" toml:"cooling"`
	Floor         float64 `json:"floor" toml:"floor"`
	StepProposals int     `json:"step_proposals" toml:"step_proposals"`
}

// DefaultSchedule returns T0 = 1000 cooled by 0.99 every 1000 proposals down
// to 1.
func DefaultSchedule() Schedule {
	return Schedule{Initial: 1000, Cooling: 0.99, Floor: 1, StepProposals: 1000}
}

// Steps returns the number of temperature steps in one pass.
func (s Schedule) Steps() int {
	n := 0
	for t := s.Initial; t > s.Floor; t *= s.Cooling {
		n++
	}
	return n
}

// Validate reports whether the schedule terminates.
func (s Schedule) Validate() error {
	switch {
	case !(s.Cooling > 0) || !(s.Cooling < 1):
		return fmt.Errorf("cooling rate %g must be in (0, 1)", s.Cooling)
	case !(s.Floor > 0):
		return fmt.Errorf("temperature floor %g must be positive", s.Floor)
	case math.IsInf(s.Initial, 0) || math.IsNaN(s.Initial):
		return fmt.Errorf("initial temperature %g must be finite", s.Initial)
	case s.StepProposals <= 0 || s.StepProposals > MaxStepProposals:
		return fmt.Errorf("proposals per step %d must be in [1, %d]", s.StepProposals, MaxStepProposals)
	}
	return nil
}

// Stop reasons reported in AnnealStats.
const (
	StopDeadline   = "deadline"
	StopCanceled   = "canceled"
	StopIterations = "iterations"
)

// AnnealStats summarizes one SimulatedAnnealing call.
type AnnealStats struct {
	Iterations int           `json:"iterations"`
	Proposals  int64         `json:"proposals"`
	Accepted   int64         `json:"accepted"`
	Initial    float64       `json:"initial"`
	Best       float64       `json:"best"`
	History    []float64     `json:"history"` // best-known total after each commit
	Elapsed    time.Duration `json:"elapsed"`
	Stopped    string        `json:"stopped"`
}

type annealState int

const (
	stateDeadlineCheck annealState = iota
	stateClusterPass
	stateGlobalPass
	stateDone
)

// SimulatedAnnealing refines the greedy placement by swapping cells of equal
// footprint until budget has elapsed on the configured clock or ctx is done.
//
// Each outer iteration runs one pass per cluster, then one pass over all
// cells, then commits the result if it is strictly better than the best known
// placement or rolls back to it otherwise. When time runs out the best known
// placement is restored, so the returned Best always matches the cells.
func (l *Legalizer) SimulatedAnnealing(ctx context.Context, budget time.Duration) AnnealStats {
	a := &annealer{
		l:        l,
		ctx:      ctx,
		clock:    l.cfg.Clock,
		budget:   budget,
		hooks:    observability.Legalize(),
		reporter: l.cfg.Reporter,
	}
	a.start = a.clock.Now()
	a.deadline = a.start.Add(budget)
	a.ticker = ticker{clock: a.clock, every: l.cfg.ReportEvery, last: a.start}
	return a.run()
}

type annealer struct {
	l        *Legalizer
	ctx      context.Context
	clock    Clock
	budget   time.Duration
	start    time.Time
	deadline time.Time
	hooks    observability.LegalizeHooks
	reporter Reporter
	ticker   ticker
	phase    string

	best     float64
	snapshot []run
	stats    AnnealStats
}

func (a *annealer) run() AnnealStats {
	a.best = a.l.design.TotalDisplacement()
	a.snapshot = append([]run(nil), a.l.bound...)
	a.stats.Initial = a.best

	state := stateDeadlineCheck
	for state != stateDone {
		state = a.step(state)
	}

	a.l.restore(a.snapshot)
	a.stats.Best = a.best
	a.stats.Elapsed = a.clock.Now().Sub(a.start)
	a.phase = "done"
	a.reporter.Report(a.progress())
	return a.stats
}

func (a *annealer) step(s annealState) annealState {
	switch s {
	case stateDeadlineCheck:
		if a.ticker.due() {
			a.reporter.Report(a.progress())
		}
		if a.stop() {
			return stateDone
		}
		return stateClusterPass

	case stateClusterPass:
		a.phase = "cluster"
		a.clusterPasses()
		if a.stop() {
			a.commit()
			return stateDone
		}
		return stateGlobalPass

	case stateGlobalPass:
		a.phase = "global"
		a.globalPass()
		a.commit()
		a.stats.Iterations++
		a.hooks.OnAnnealIteration(a.ctx, a.stats.Iterations, a.best)
		return stateDeadlineCheck
	}
	return stateDone
}

// stop records why annealing must end, if it must.
func (a *annealer) stop() bool {
	switch {
	case a.ctx.Err() != nil:
		a.stats.Stopped = StopCanceled
	case a.expired():
		a.stats.Stopped = StopDeadline
	case a.l.cfg.MaxIterations > 0 && a.stats.Iterations >= a.l.cfg.MaxIterations:
		a.stats.Stopped = StopIterations
	default:
		return false
	}
	return true
}

func (a *annealer) expired() bool {
	return a.ctx.Err() != nil || !a.clock.Now().Before(a.deadline)
}

// commit keeps the current placement if it beats the best known one and
// otherwise rolls back to it.
func (a *annealer) commit() {
	if total := a.l.design.TotalDisplacement(); total < a.best {
		a.best = total
		copy(a.snapshot, a.l.bound)
	} else {
		a.l.restore(a.snapshot)
	}
	a.stats.History = append(a.stats.History, a.best)
}

func (a *annealer) progress() Progress {
	return Progress{
		Elapsed:   a.clock.Now().Sub(a.start),
		Budget:    a.budget,
		Iteration: a.stats.Iterations,
		Phase:     a.phase,
		Best:      a.best,
	}
}

// clusterPasses anneals every cluster independently. Clusters own disjoint
// cells and the set of occupied sites never changes, so passes can run in
// parallel without sharing any mutable state.
func (a *annealer) clusterPasses() {
	clusters := a.l.clusters
	counts := make([][2]int64, len(clusters))

	var g errgroup.Group
	g.SetLimit(a.l.cfg.Workers)
	for k := range clusters {
		scope := clusters[k].Members
		if len(scope) < 2 {
			continue
		}
		seed := passSeed(a.l.cfg.Seed, a.stats.Iterations, k)
		g.Go(func() error {
			p := a.newPass(scope, seed, false)
			p.run()
			counts[k] = [2]int64{p.proposals, p.accepted}
			return nil
		})
	}
	_ = g.Wait()

	for _, c := range counts {
		a.stats.Proposals += c[0]
		a.stats.Accepted += c[1]
	}
}

func (a *annealer) globalPass() {
	p := a.newPass(a.l.all, passSeed(a.l.cfg.Seed, a.stats.Iterations, -2), true)
	p.run()
	a.stats.Proposals += p.proposals
	a.stats.Accepted += p.accepted
}

func (a *annealer) newPass(scope []int, seed uint64, report bool) *pass {
	return &pass{
		a:      a,
		l:      a.l,
		scope:  scope,
		rng:    a.l.cfg.NewRand(seed),
		sched:  a.l.cfg.Schedule,
		report: report,
	}
}

// pass is one temperature schedule over a scope of cells. The pass owns the
// cells in its scope and their sites for its whole lifetime.
type pass struct {
	a      *annealer
	l      *Legalizer
	scope  []int
	rng    Rand
	sched  Schedule
	report bool // only the coordinating goroutine reports

	proposals int64
	accepted  int64
}

func (p *pass) run() {
	if len(p.scope) < 2 {
		return
	}
	cells := p.l.design.Cells
	cur := 0.0
	for _, i := range p.scope {
		cur += cells[i].Displacement()
	}
	best := cur
	snap := p.snapshot(nil)

	for t := p.sched.Initial; t > p.sched.Floor; t *= p.sched.Cooling {
		for k := range p.sched.StepProposals {
			if k%deadlineCheckInterval == deadlineCheckInterval-1 && p.a.expired() {
				break
			}
			if delta, ok := p.propose(t); ok {
				cur += delta
				if cur < best {
					best = cur
					snap = p.snapshot(snap)
				}
			}
		}
		if p.report && p.a.ticker.due() {
			p.a.reporter.Report(p.a.progress())
		}
		if p.a.expired() {
			break
		}
	}

	p.restore(snap)
}

// propose draws a pair of cells and applies the swap if it is legal and passes
// the Metropolis test. It returns the displacement change of an accepted swap.
func (p *pass) propose(t float64) (float64, bool) {
	p.proposals++
	n := len(p.scope)
	i, j := p.scope[p.rng.IntN(n)], p.scope[p.rng.IntN(n)]
	if i == j || !p.l.swappable(i, j) {
		return 0, false
	}

	cells := p.l.design.Cells
	a, b := &cells[i], &cells[j]
	if a.Rect().Overlaps(b.Rect()) {
		return 0, false
	}

	before := a.Displacement() + b.Displacement()
	p.l.swap(i, j)
	if p.l.overlapsAfterSwap(i, j, p.scope) {
		p.l.swap(i, j)
		return 0, false
	}
	after := a.Displacement() + b.Displacement()

	if !accept(before, after, t, p.rng) {
		p.l.swap(i, j)
		return 0, false
	}
	p.accepted++
	return after - before, true
}

// accept is the Metropolis criterion. The random source is only consumed for
// uphill or neutral moves.
func accept(before, after, t float64, rng Rand) bool {
	if after < before {
		return true
	}
	return rng.Float64() < math.Exp((before-after)/t)
}

func (p *pass) snapshot(dst []run) []run {
	dst = dst[:0]
	for _, i := range p.scope {
		dst = append(dst, p.l.bound[i])
	}
	return dst
}

func (p *pass) restore(snap []run) {
	for k, i := range p.scope {
		if r := snap[k]; r.bound() {
			p.l.bind(i, r)
		}
	}
}

// swappable reports whether cells i and j may trade places: both movable and
// bound, spanning the same number of sites, and of nearly equal width.
func (l *Legalizer) swappable(i, j int) bool {
	a, b := &l.design.Cells[i], &l.design.Cells[j]
	ra, rb := l.bound[i], l.bound[j]
	if a.Fixed || b.Fixed || !ra.bound() || !rb.bound() || ra.count != rb.count {
		return false
	}
	return math.Abs(a.Width-b.Width) <= l.design.SiteWidth*SwapWidthTolerance
}

// swap exchanges the site runs of cells i and j and moves both cells onto
// their new runs.
func (l *Legalizer) swap(i, j int) {
	ri, rj := l.bound[i], l.bound[j]
	l.bind(i, rj)
	l.bind(j, ri)
}

// overlapsAfterSwap checks the swapped pair against each other and against
// every other bound or fixed cell in scope.
func (l *Legalizer) overlapsAfterSwap(i, j int, scope []int) bool {
	cells := l.design.Cells
	ri, rj := cells[i].Rect(), cells[j].Rect()
	if ri.Overlaps(rj) {
		return true
	}
	for _, k := range scope {
		if k == i || k == j {
			continue
		}
		c := &cells[k]
		if !c.Fixed && !l.bound[k].bound() {
			continue
		}
		rk := c.Rect()
		if ri.Overlaps(rk) || rj.Overlaps(rk) {
			return true
		}
	}
	return false
}

// restore rebinds every bound cell to the runs in snap.
func (l *Legalizer) restore(snap []run) {
	for i, r := range snap {
		if r.bound() {
			l.bind(i, r)
		}
	}
}
