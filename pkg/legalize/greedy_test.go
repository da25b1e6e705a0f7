package legalize

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/legalize/pkg/placement"
)

func place(t *testing.T, l *Legalizer) []int {
	t.Helper()
	l.ComputeDensity(DefaultEpsilon)
	l.SortAndCluster()
	return l.PlaceCells(context.Background())
}

func TestPlaceCellsRespectsRowExtent(t *testing.T) {
	// The global site width comes from the last row, so the narrow first row
	// hands out runs shorter than the cell. Runs that would let the cell
	// stick out past the row end are skipped.
	d := newDesign(t,
		[]placement.CellSpec{cell("wide", 2.5, 3, 0)},
		[]placement.RowSpec{
			{OriginX: 0, OriginY: 0, SiteWidth: 0.5, SiteHeight: 1, SiteCount: 10},
			row(0, 1, 6),
		})
	l := newLegalizer(t, d, Config{})

	if unplaced := place(t, l); len(unplaced) != 0 {
		t.Fatalf("unplaced = %v, want none", unplaced)
	}
	c := d.Cells[0]
	if got, want := [2]float64{c.X, c.Y}, [2]float64{2.5, 0}; got != want {
		t.Errorf("position = %v, want %v", got, want)
	}
	if got, want := l.bound[0].count, 3; got != want {
		t.Errorf("bound sites = %d, want %d", got, want)
	}
}

func TestPlaceCellsPrefersFirstOnTie(t *testing.T) {
	d := newDesign(t,
		[]placement.CellSpec{cell("a", 1, 0, 0.5)},
		[]placement.RowSpec{row(0, 0, 2), row(0, 1, 2)})
	l := newLegalizer(t, d, Config{})
	place(t, l)

	if got, want := [2]float64{d.Cells[0].X, d.Cells[0].Y}, [2]float64{0, 0}; got != want {
		t.Errorf("position = %v, want %v (first row wins a tie)", got, want)
	}
}

func TestPlaceCellsIdempotent(t *testing.T) {
	d := randomDesign(t, 21)
	l := newLegalizer(t, d, Config{})
	first := place(t, l)
	pos := positions(d)
	occupied := d.Grid.Occupied()

	second := l.PlaceCells(context.Background())

	if diff := cmp.Diff(pos, positions(d)); diff != "" {
		t.Errorf("second placement moved cells (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("unplaced changed (-first +second):\n%s", diff)
	}
	if got := d.Grid.Occupied(); got != occupied {
		t.Errorf("occupied sites = %d, want %d", got, occupied)
	}
}

func TestPlaceCellsLeavesFixedCells(t *testing.T) {
	d := newDesign(t,
		[]placement.CellSpec{
			{Name: "macro", Width: 2, Height: 1, X: 1.5, Y: 0, Fixed: true},
			cell("a", 1, 3, 0),
		},
		[]placement.RowSpec{row(0, 0, 6)})
	l := newLegalizer(t, d, Config{})
	place(t, l)

	if got := d.Cells[0]; got.X != 1.5 || got.Y != 0 {
		t.Errorf("fixed cell moved to (%v, %v)", got.X, got.Y)
	}
	// sites 1, 2 and 3 are partly covered by the macro
	for i := 1; i <= 3; i++ {
		if got, want := d.Grid.Site(i).Occupant, 0; got != want {
			t.Errorf("site %d occupant = %d, want %d", i, got, want)
		}
	}
	if got, want := d.Cells[1].X, 4.0; got != want {
		t.Errorf("a.X = %v, want %v", got, want)
	}
}
