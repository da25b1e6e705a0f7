package legalize

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/matzehuels/legalize/pkg/placement"
)

// newTestPass binds cells to the given arena site indices and returns a pass
// over all cells driven by rng.
func newTestPass(t *testing.T, d *placement.Design, sites []int, rng Rand) (*Legalizer, *pass) {
	t.Helper()
	l := newLegalizer(t, d, Config{})
	for i, s := range sites {
		if s < 0 {
			continue
		}
		l.bind(i, run{first: s, count: sitesFor(d.Cells[i].Width, d.SiteWidth)})
	}
	a := &annealer{
		l:        l,
		ctx:      context.Background(),
		clock:    l.cfg.Clock,
		deadline: time.Now().Add(time.Hour),
		reporter: nopReporter{},
	}
	return l, &pass{a: a, l: l, scope: l.all, rng: rng, sched: testSchedule}
}

func TestAcceptMetropolis(t *testing.T) {
	tests := []struct {
		name          string
		before, after float64
		temp          float64
		draw          []float64
		want          bool
	}{
		{"downhill always", 5, 3, 1, nil, true},
		{"uphill below threshold", 0, 2, 10, []float64{0.5}, true},  // exp(-0.2) ≈ 0.82
		{"uphill above threshold", 0, 2, 10, []float64{0.9}, false}, // exp(-0.2) ≈ 0.82
		{"neutral draws", 1, 1, 1, []float64{0.99}, true},
		{"cold uphill", 0, 10, 1, []float64{0.001}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := &scriptedRand{t: t, floats: tt.draw}
			if got := accept(tt.before, tt.after, tt.temp, rng); got != tt.want {
				t.Errorf("accept = %v, want %v", got, tt.want)
			}
			if len(rng.floats) != 0 {
				t.Errorf("%d draws left unused", len(rng.floats))
			}
		})
	}
}

func TestProposeReplaysDecisions(t *testing.T) {
	// a wants site 1 and b wants site 0; they start swapped.
	specs := func() []placement.CellSpec {
		return []placement.CellSpec{cell("a", 1, 1, 0), cell("b", 1, 0, 0)}
	}
	rows := []placement.RowSpec{row(0, 0, 4)}

	t.Run("downhill swap accepted", func(t *testing.T) {
		d := newDesign(t, specs(), rows)
		l, p := newTestPass(t, d, []int{0, 1}, &scriptedRand{t: t, ints: []int{0, 1}})

		delta, ok := p.propose(10)
		if !ok || delta != -2 {
			t.Fatalf("propose = (%v, %v), want (-2, true)", delta, ok)
		}
		if got, want := d.Cells[0].X, 1.0; got != want {
			t.Errorf("a.X = %v, want %v", got, want)
		}
		if got, want := d.Grid.Site(0).Occupant, 1; got != want {
			t.Errorf("site 0 occupant = %d, want %d", got, want)
		}
		if got, want := l.bound[0], (run{first: 1, count: 1}); got != want {
			t.Errorf("a bound to %+v, want %+v", got, want)
		}
	})

	t.Run("uphill swap rejected by draw", func(t *testing.T) {
		d := newDesign(t, specs(), rows)
		// start legal and optimal: any swap costs 2
		_, p := newTestPass(t, d, []int{1, 0}, &scriptedRand{t: t, ints: []int{0, 1}, floats: []float64{0.9}})

		if _, ok := p.propose(10); ok {
			t.Fatal("uphill swap accepted with draw above exp(-0.2)")
		}
		if got, want := d.Cells[0].X, 1.0; got != want {
			t.Errorf("a.X = %v, want %v after revert", got, want)
		}
		if got, want := d.Grid.Site(1).Occupant, 0; got != want {
			t.Errorf("site 1 occupant = %d, want %d after revert", got, want)
		}
	})

	t.Run("same cell drawn twice", func(t *testing.T) {
		d := newDesign(t, specs(), rows)
		_, p := newTestPass(t, d, []int{0, 1}, &scriptedRand{t: t, ints: []int{1, 1}})

		if _, ok := p.propose(10); ok {
			t.Fatal("self swap accepted")
		}
		if got, want := p.proposals, int64(1); got != want {
			t.Errorf("proposals = %d, want %d", got, want)
		}
	})
}

func TestProposeRejectsIncompatibleCells(t *testing.T) {
	tests := []struct {
		name  string
		cells []placement.CellSpec
		sites []int
	}{
		{
			name:  "width difference",
			cells: []placement.CellSpec{cell("a", 1, 3, 0), cell("b", 0.8, 0, 0)},
			sites: []int{0, 3},
		},
		{
			name: "fixed cell",
			cells: []placement.CellSpec{
				cell("a", 1, 3, 0),
				{Name: "f", Width: 1, Height: 1, X: 3, Y: 0, Fixed: true},
			},
			sites: []int{0, -1},
		},
		{
			name:  "unplaced cell",
			cells: []placement.CellSpec{cell("a", 1, 3, 0), cell("u", 1, 0, 0)},
			sites: []int{0, -1},
		},
		{
			name:  "different site count",
			cells: []placement.CellSpec{cell("a", 1.05, 3, 0), cell("b", 1, 0, 0)},
			sites: []int{0, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDesign(t, tt.cells, []placement.RowSpec{row(0, 0, 6)})
			_, p := newTestPass(t, d, tt.sites, &scriptedRand{t: t, ints: []int{0, 1}})
			before := positions(d)

			if _, ok := p.propose(1000); ok {
				t.Fatal("swap accepted")
			}
			after := positions(d)
			for i := range before {
				if before[i] != after[i] {
					t.Errorf("cell %d moved from %v to %v", i, before[i], after[i])
				}
			}
		})
	}
}

func TestProposeRechecksOverlapAfterSwap(t *testing.T) {
	// "tall" spans two rows. Swapping it with "low" would put it under "top".
	cells := []placement.CellSpec{
		{Name: "tall", Width: 1, Height: 2, X: 0, Y: 0},
		cell("low", 1, 4, 0),
		cell("top", 1, 4, 1),
	}
	rows := []placement.RowSpec{row(0, 0, 6), row(0, 1, 6)}
	d := newDesign(t, cells, rows)
	// A zero draw would accept the uphill move, so only the overlap check
	// can reject it.
	_, p := newTestPass(t, d, []int{0, 4, 10}, &scriptedRand{t: t, ints: []int{0, 1}, floats: []float64{0}})

	if _, ok := p.propose(math.MaxFloat64); ok {
		t.Fatal("swap creating an overlap was accepted")
	}
	if got, want := d.Cells[0].X, 0.0; got != want {
		t.Errorf("tall.X = %v, want %v", got, want)
	}
	if ov := Overlaps(d.Cells); len(ov) != 0 {
		t.Errorf("overlaps after rejected swap: %v", ov)
	}
}

func TestPassRestoresBestSeen(t *testing.T) {
	d := randomDesign(t, 13)
	l := newLegalizer(t, d, Config{})
	place(t, l)

	start := d.TotalDisplacement()
	a := &annealer{
		l:        l,
		ctx:      context.Background(),
		clock:    l.cfg.Clock,
		deadline: time.Now().Add(time.Hour),
		reporter: nopReporter{},
	}
	p := &pass{a: a, l: l, scope: l.all, rng: NewRand(1), sched: Schedule{Initial: 1e6, Cooling: 0.5, Floor: 1e5, StepProposals: 500}}
	p.run()

	// at a very high temperature almost every legal swap is accepted, so the
	// final state is random; the pass must still end on its best state
	if got := d.TotalDisplacement(); got > start+1e-9 {
		t.Errorf("pass ended at %v, worse than its start %v", got, start)
	}
	if p.accepted == 0 {
		t.Error("no swaps accepted at high temperature")
	}
	checkBindings(t, l)
}

// checkBindings verifies that every bound cell sits on the first site of its
// run and that the grid agrees about who occupies the run.
func checkBindings(t *testing.T, l *Legalizer) {
	t.Helper()
	g := l.design.Grid
	for i, r := range l.bound {
		if !r.bound() {
			continue
		}
		c := &l.design.Cells[i]
		if s := g.Site(r.first); c.X != s.X || c.Y != s.Y {
			t.Errorf("%s at (%v, %v), run starts at (%v, %v)", c.Name, c.X, c.Y, s.X, s.Y)
		}
		for k := r.first; k < r.first+r.count; k++ {
			if got := g.Site(k).Occupant; got != i {
				t.Errorf("site %d of %s occupied by %d", k, c.Name, got)
			}
		}
	}
}

func TestScheduleSteps(t *testing.T) {
	if got, want := testSchedule.Steps(), 4; got != want {
		t.Errorf("Steps() = %d, want %d", got, want)
	}
	if got, want := DefaultSchedule().Steps(), 688; got != want {
		t.Errorf("default Steps() = %d, want %d", got, want)
	}
}

func TestPassChecksDeadlineWithinStep(t *testing.T) {
	d := randomDesign(t, 13)
	l := newLegalizer(t, d, Config{})
	place(t, l)

	clock := newFakeClock(0)
	a := &annealer{
		l:        l,
		ctx:      context.Background(),
		clock:    clock,
		deadline: clock.Now(),
		reporter: nopReporter{},
	}
	// a single temperature step far larger than the check interval
	sched := Schedule{Initial: 2, Cooling: 0.5, Floor: 1, StepProposals: MaxStepProposals}
	p := &pass{a: a, l: l, scope: l.all, rng: NewRand(1), sched: sched}
	p.run()

	if got, want := p.proposals, int64(deadlineCheckInterval-1); got != want {
		t.Errorf("proposals = %d, want %d", got, want)
	}
	checkBindings(t, l)
}
