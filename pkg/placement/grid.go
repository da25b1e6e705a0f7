package placement

import (
	"fmt"
	"math"
)

// RowSpec is the record an input reader produces for one row.
type RowSpec struct {
	OriginX    float64
	OriginY    float64
	SiteWidth  float64
	SiteHeight float64
	SiteCount  int
}

// Row is a horizontal track of contiguous, equally sized sites.
// Rows are read-only after the grid is built.
type Row struct {
	OriginX    float64
	OriginY    float64
	SiteWidth  float64
	SiteHeight float64
	FirstSite  int // index of the row's first site in the grid's site arena
	SiteCount  int
}

// MaxX returns the right edge of the row.
func (r Row) MaxX() float64 { return r.OriginX + r.SiteWidth*float64(r.SiteCount) }

// Bounds returns the rectangle covered by the row.
func (r Row) Bounds() Rect {
	return Rect{MinX: r.OriginX, MinY: r.OriginY, MaxX: r.MaxX(), MaxY: r.OriginY + r.SiteHeight}
}

// Site is one discrete placement slot. Only Occupant changes after the grid
// is built.
type Site struct {
	X, Y     float64
	Row      int
	Occupant int // index of the occupying cell, or NoCell
}

// Occupied reports whether a cell is bound to the site.
func (s Site) Occupied() bool { return s.Occupant != NoCell }

// Grid is the arena of rows and their sites.
type Grid struct {
	rows  []Row
	sites []Site
}

// NewGrid builds the rows and derives each row's sites using that row's own
// site width. Rows with zero sites are kept; they simply offer no space.
func NewGrid(specs []RowSpec) (*Grid, error) {
	total := 0
	for i, s := range specs {
		if !(s.SiteWidth > 0) || !(s.SiteHeight > 0) || s.SiteCount < 0 {
			return nil, fmt.Errorf("%w: row %d (site %gx%g, count %d)", ErrInvalidRow, i, s.SiteWidth, s.SiteHeight, s.SiteCount)
		}
		total += s.SiteCount
	}

	g := &Grid{
		rows:  make([]Row, len(specs)),
		sites: make([]Site, 0, total),
	}
	for i, s := range specs {
		g.rows[i] = Row{
			OriginX:    s.OriginX,
			OriginY:    s.OriginY,
			SiteWidth:  s.SiteWidth,
			SiteHeight: s.SiteHeight,
			FirstSite:  len(g.sites),
			SiteCount:  s.SiteCount,
		}
		for j := 0; j < s.SiteCount; j++ {
			g.sites = append(g.sites, Site{
				X:        s.OriginX + float64(j)*s.SiteWidth,
				Y:        s.OriginY,
				Row:      i,
				Occupant: NoCell,
			})
		}
	}
	return g, nil
}

// NumRows returns the number of rows.
func (g *Grid) NumRows() int { return len(g.rows) }

// NumSites returns the number of sites across all rows.
func (g *Grid) NumSites() int { return len(g.sites) }

// Rows returns the rows in input order. The slice must not be modified.
func (g *Grid) Rows() []Row { return g.rows }

// Row returns the row at index i.
func (g *Grid) Row(i int) Row { return g.rows[i] }

// Site returns a pointer to the site at arena index i.
func (g *Grid) Site(i int) *Site { return &g.sites[i] }

// RowSites returns the sites of row i as a view into the arena.
func (g *Grid) RowSites(i int) []Site {
	r := g.rows[i]
	return g.sites[r.FirstSite : r.FirstSite+r.SiteCount]
}

// Bounds returns the bounding box of all rows. ok is false for an empty grid.
func (g *Grid) Bounds() (r Rect, ok bool) {
	if len(g.rows) == 0 {
		return Rect{}, false
	}
	r = Rect{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, row := range g.rows {
		r = r.Union(row.Bounds())
	}
	return r, true
}

// Free reports whether count consecutive sites starting at arena index first
// are all unoccupied.
func (g *Grid) Free(first, count int) bool {
	for i := first; i < first+count; i++ {
		if g.sites[i].Occupied() {
			return false
		}
	}
	return true
}

// Bind marks count consecutive sites starting at first as occupied by cell.
func (g *Grid) Bind(first, count, cell int) {
	for i := first; i < first+count; i++ {
		g.sites[i].Occupant = cell
	}
}

// Release clears count consecutive sites starting at first.
func (g *Grid) Release(first, count int) {
	for i := first; i < first+count; i++ {
		g.sites[i].Occupant = NoCell
	}
}

// Occupied returns the number of occupied sites.
func (g *Grid) Occupied() int {
	n := 0
	for _, s := range g.sites {
		if s.Occupied() {
			n++
		}
	}
	return n
}

// ResetOccupancy clears every site.
func (g *Grid) ResetOccupancy() {
	for i := range g.sites {
		g.sites[i].Occupant = NoCell
	}
}

// Specs returns the row records the grid was built from.
func (g *Grid) Specs() []RowSpec {
	out := make([]RowSpec, len(g.rows))
	for i, r := range g.rows {
		out[i] = RowSpec{
			OriginX:    r.OriginX,
			OriginY:    r.OriginY,
			SiteWidth:  r.SiteWidth,
			SiteHeight: r.SiteHeight,
			SiteCount:  r.SiteCount,
		}
	}
	return out
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	return &Grid{
		rows:  append([]Row(nil), g.rows...),
		sites: append([]Site(nil), g.sites...),
	}
}
