package placement

import (
	"errors"
	"sync"
	"testing"
)

func TestRectOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want bool
	}{
		{"disjoint", Rect{0, 0, 1, 1}, Rect{2, 0, 3, 1}, false},
		{"touching edge", Rect{0, 0, 1, 1}, Rect{1, 0, 2, 1}, false},
		{"touching corner", Rect{0, 0, 1, 1}, Rect{1, 1, 2, 2}, false},
		{"partial", Rect{0, 0, 2, 1}, Rect{1, 0, 3, 1}, true},
		{"contained", Rect{0, 0, 4, 4}, Rect{1, 1, 2, 2}, true},
		{"stacked rows", Rect{0, 0, 2, 1}, Rect{0, 1, 2, 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("Overlaps (reversed) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewGridDerivesSitesPerRow(t *testing.T) {
	g, err := NewGrid([]RowSpec{
		{OriginX: 0, OriginY: 0, SiteWidth: 1, SiteHeight: 1, SiteCount: 3},
		{OriginX: 10, OriginY: 1, SiteWidth: 2, SiteHeight: 1, SiteCount: 2},
	})
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}

	if got, want := g.NumSites(), 5; got != want {
		t.Fatalf("NumSites = %d, want %d", got, want)
	}
	second := g.RowSites(1)
	if got, want := second[1].X, 12.0; got != want {
		t.Errorf("row 1 site 1 X = %v, want %v", got, want)
	}
	if got, want := second[1].Row, 1; got != want {
		t.Errorf("row 1 site 1 Row = %d, want %d", got, want)
	}
	for i := 0; i < g.NumSites(); i++ {
		if g.Site(i).Occupied() {
			t.Errorf("site %d should start free", i)
		}
	}

	b, ok := g.Bounds()
	if !ok {
		t.Fatal("Bounds should be defined")
	}
	if want := (Rect{MinX: 0, MinY: 0, MaxX: 14, MaxY: 2}); b != want {
		t.Errorf("Bounds = %+v, want %+v", b, want)
	}
}

func TestNewGridRejectsBadRow(t *testing.T) {
	_, err := NewGrid([]RowSpec{{SiteWidth: 0, SiteHeight: 1, SiteCount: 1}})
	if !errors.Is(err, ErrInvalidRow) {
		t.Errorf("err = %v, want ErrInvalidRow", err)
	}
}

func TestGridBindRelease(t *testing.T) {
	g, _ := NewGrid([]RowSpec{{SiteWidth: 1, SiteHeight: 1, SiteCount: 4}})

	g.Bind(1, 2, 7)
	if g.Free(0, 2) {
		t.Error("sites 0-1 should not be free after binding site 1")
	}
	if !g.Free(3, 1) {
		t.Error("site 3 should be free")
	}
	if got, want := g.Site(2).Occupant, 7; got != want {
		t.Errorf("site 2 occupant = %d, want %d", got, want)
	}
	if got, want := g.Occupied(), 2; got != want {
		t.Errorf("Occupied = %d, want %d", got, want)
	}

	g.Release(1, 2)
	if !g.Free(0, 4) {
		t.Error("all sites should be free after release")
	}
}

func TestNewDesign(t *testing.T) {
	d, err := NewDesign("top",
		[]CellSpec{{Name: "a", Width: 2, Height: 1, X: 3, Y: 0}},
		[]RowSpec{{SiteWidth: 0.5, SiteHeight: 2, SiteCount: 10}},
		0, 0)
	if err != nil {
		t.Fatalf("NewDesign: %v", err)
	}
	if got, want := d.SiteWidth, 0.5; got != want {
		t.Errorf("SiteWidth = %v, want %v", got, want)
	}
	if got, want := d.SiteHeight, 2.0; got != want {
		t.Errorf("SiteHeight = %v, want %v", got, want)
	}

	c, ok := d.Cell("a")
	if !ok {
		t.Fatal("cell a not found")
	}
	if c.OrigX != 3 || c.OrigY != 0 {
		t.Errorf("anchor = (%v, %v), want (3, 0)", c.OrigX, c.OrigY)
	}
	if got, want := c.Orientation, DefaultOrientation; got != want {
		t.Errorf("Orientation = %q, want %q", got, want)
	}

	c.X = 5
	if got, want := d.TotalDisplacement(), 2.0; got != want {
		t.Errorf("TotalDisplacement = %v, want %v", got, want)
	}
}

func TestNewDesignValidation(t *testing.T) {
	tests := []struct {
		name  string
		cells []CellSpec
		want  error
	}{
		{"empty name", []CellSpec{{Width: 1, Height: 1}}, ErrInvalidCellName},
		{"zero width", []CellSpec{{Name: "a", Height: 1}}, ErrInvalidCellSize},
		{"duplicate", []CellSpec{{Name: "a", Width: 1, Height: 1}, {Name: "a", Width: 1, Height: 1}}, ErrDuplicateCell},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDesign("d", tt.cells, nil, 1, 1)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDesignCloneIsDeep(t *testing.T) {
	d, _ := NewDesign("d",
		[]CellSpec{{Name: "a", Width: 1, Height: 1}},
		[]RowSpec{{SiteWidth: 1, SiteHeight: 1, SiteCount: 2}},
		1, 1)
	clone := d.Clone()

	clone.Cells[0].X = 9
	clone.Grid.Bind(0, 1, 0)

	if d.Cells[0].X != 0 {
		t.Error("modifying clone cell changed original")
	}
	if d.Grid.Site(0).Occupied() {
		t.Error("modifying clone grid changed original")
	}
	if _, ok := clone.Cell("a"); !ok {
		t.Error("clone should resolve cells by name")
	}
}

func TestDesignCloneConcurrentLookups(t *testing.T) {
	d, _ := NewDesign("d",
		[]CellSpec{{Name: "a", Width: 1, Height: 1}, {Name: "b", Width: 1, Height: 1, X: 1}},
		[]RowSpec{{SiteWidth: 1, SiteHeight: 1, SiteCount: 2}},
		1, 1)
	clone := d.Clone()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i, ok := clone.Index("b"); !ok || i != 1 {
				t.Errorf("Index(b) = %d, %v", i, ok)
			}
		}()
	}
	wg.Wait()

	if _, ok := clone.Index("missing"); ok {
		t.Error("Index(missing) should not resolve")
	}
}
