// Package placement models the physical design handed to the legalizer: rows of
// discrete placement sites and the rectangular cells that must land on them.
//
// # Storage
//
// Cells, rows and sites live in dense slices owned by a [Design]. Relationships
// are expressed as indices into those slices rather than pointers: a [Site]
// records the index of the cell occupying it (or [NoCell]), and a [Row] records
// the index of its first site in the grid's site arena. Cells never point at
// sites. This keeps the whole design copyable with [Design.Clone] and avoids
// shared-ownership graphs between cells and sites.
//
// # Coordinates
//
// All coordinates are lower-left corners in database units. A cell occupies
// the half-open rectangle [X, X+Width) × [Y, Y+Height); two cells that merely
// touch along an edge do not overlap.
package placement

import (
	"errors"
	"fmt"
	"maps"
	"math"
)

var (
	// ErrInvalidCellName is returned by [NewDesign] when a cell has an empty name.
	ErrInvalidCellName = errors.New("cell name must not be empty")

	// ErrDuplicateCell is returned by [NewDesign] when two cells share a name.
	// Cell names are the identity used by input and output formats.
	ErrDuplicateCell = errors.New("duplicate cell name")

	// ErrInvalidCellSize is returned by [NewDesign] when a cell has a
	// non-positive width or height.
	ErrInvalidCellSize = errors.New("cell width and height must be positive")

	// ErrInvalidRow is returned by [NewGrid] when a row has a non-positive site
	// width or height, or a negative site count.
	ErrInvalidRow = errors.New("invalid row geometry")
)

// NoCell marks a site that no cell occupies.
const NoCell = -1

// DefaultOrientation is used for cells whose orientation was never supplied.
const DefaultOrientation = "N"

// Rect is an axis-aligned rectangle described by its min and max corners.
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Overlaps reports whether r and o share interior area. Rectangles that only
// touch along an edge or a corner do not overlap.
func (r Rect) Overlaps(o Rect) bool {
	return r.MinX < o.MaxX && r.MaxX > o.MinX && r.MinY < o.MaxY && r.MaxY > o.MinY
}

// Contains reports whether o lies entirely inside r (edges inclusive).
func (r Rect) Contains(o Rect) bool {
	return o.MinX >= r.MinX && o.MaxX <= r.MaxX && o.MinY >= r.MinY && o.MaxY <= r.MaxY
}

// Width returns the horizontal extent of r.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the vertical extent of r.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		MinX: math.Min(r.MinX, o.MinX),
		MinY: math.Min(r.MinY, o.MinY),
		MaxX: math.Max(r.MaxX, o.MaxX),
		MaxY: math.Max(r.MaxY, o.MaxY),
	}
}

// Cell is a placeable rectangle.
//
// Width, Height, OrigX and OrigY never change after the design is built.
// X and Y are the current position and are rewritten by the legalizer.
type Cell struct {
	Name        string
	Width       float64
	Height      float64
	X, Y        float64 // current lower-left corner
	OrigX       float64 // anchor from the input placement
	OrigY       float64
	Fixed       bool   // fixed cells are never relocated
	Orientation string // opaque label carried through to the output
	Density     int    // local crowding score, see legalize.ComputeDensity
}

// Rect returns the cell's footprint at its current position.
func (c *Cell) Rect() Rect {
	return Rect{MinX: c.X, MinY: c.Y, MaxX: c.X + c.Width, MaxY: c.Y + c.Height}
}

// OrigRect returns the cell's footprint at its original position.
func (c *Cell) OrigRect() Rect {
	return Rect{MinX: c.OrigX, MinY: c.OrigY, MaxX: c.OrigX + c.Width, MaxY: c.OrigY + c.Height}
}

// Displacement returns the L1 distance between the current and original position.
func (c *Cell) Displacement() float64 {
	return math.Abs(c.X-c.OrigX) + math.Abs(c.Y-c.OrigY)
}

// DisplacementAt returns the L1 distance from (x, y) to the cell's anchor.
func (c *Cell) DisplacementAt(x, y float64) float64 {
	return math.Abs(x-c.OrigX) + math.Abs(y-c.OrigY)
}

// CellSpec is the record an input reader produces for one cell.
type CellSpec struct {
	Name        string
	Width       float64
	Height      float64
	X, Y        float64
	Fixed       bool
	Orientation string
}

// Design is the complete legalization input: the cells and the row grid they
// must be placed on, plus the global site dimensions used for thresholds.
//
// SiteWidth is a single design-wide value. Each row still derives its own
// sites from its own [Row.SiteWidth]; the two are not reconciled.
//
// Design is not safe for concurrent use without external synchronization.
type Design struct {
	Name       string
	Cells      []Cell
	Grid       *Grid
	SiteWidth  float64
	SiteHeight float64

	index map[string]int
}

// NewDesign validates cell and row records and builds a design.
//
// If siteWidth or siteHeight is zero, the value of the last row is used, or
// 1.0 when there are no rows. Cells start at their supplied position, which
// also becomes their anchor.
func NewDesign(name string, cells []CellSpec, rows []RowSpec, siteWidth, siteHeight float64) (*Design, error) {
	grid, err := NewGrid(rows)
	if err != nil {
		return nil, err
	}

	d := &Design{
		Name:       name,
		Cells:      make([]Cell, 0, len(cells)),
		Grid:       grid,
		SiteWidth:  siteWidth,
		SiteHeight: siteHeight,
		index:      make(map[string]int, len(cells)),
	}
	if d.SiteWidth <= 0 || d.SiteHeight <= 0 {
		w, h := 1.0, 1.0
		if n := len(rows); n > 0 {
			w, h = rows[n-1].SiteWidth, rows[n-1].SiteHeight
		}
		if d.SiteWidth <= 0 {
			d.SiteWidth = w
		}
		if d.SiteHeight <= 0 {
			d.SiteHeight = h
		}
	}

	for _, s := range cells {
		if err := d.addCell(s); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Design) addCell(s CellSpec) error {
	if s.Name == "" {
		return ErrInvalidCellName
	}
	if !(s.Width > 0) || !(s.Height > 0) {
		return fmt.Errorf("%w: %s is %gx%g", ErrInvalidCellSize, s.Name, s.Width, s.Height)
	}
	if _, ok := d.index[s.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCell, s.Name)
	}
	orient := s.Orientation
	if orient == "" {
		orient = DefaultOrientation
	}
	d.index[s.Name] = len(d.Cells)
	d.Cells = append(d.Cells, Cell{
		Name:        s.Name,
		Width:       s.Width,
		Height:      s.Height,
		X:           s.X,
		Y:           s.Y,
		OrigX:       s.X,
		OrigY:       s.Y,
		Fixed:       s.Fixed,
		Orientation: orient,
	})
	return nil
}

// CellCount returns the number of cells in the design.
func (d *Design) CellCount() int { return len(d.Cells) }

// Index returns the position of the named cell in Cells. The index is
// built by NewDesign and never written afterwards, so lookups are safe from
// concurrent goroutines.
func (d *Design) Index(name string) (int, bool) {
	i, ok := d.index[name]
	return i, ok
}

// Cell returns the named cell.
func (d *Design) Cell(name string) (*Cell, bool) {
	i, ok := d.Index(name)
	if !ok {
		return nil, false
	}
	return &d.Cells[i], true
}

// Clone returns a deep copy of the design, including site occupancy.
func (d *Design) Clone() *Design {
	out := &Design{
		Name:       d.Name,
		Cells:      append([]Cell(nil), d.Cells...),
		Grid:       d.Grid.Clone(),
		SiteWidth:  d.SiteWidth,
		SiteHeight: d.SiteHeight,
		index:      maps.Clone(d.index),
	}
	return out
}

// Specs returns the cell records for the design's current positions.
func (d *Design) Specs() []CellSpec {
	out := make([]CellSpec, len(d.Cells))
	for i, c := range d.Cells {
		out[i] = CellSpec{
			Name:        c.Name,
			Width:       c.Width,
			Height:      c.Height,
			X:           c.X,
			Y:           c.Y,
			Fixed:       c.Fixed,
			Orientation: c.Orientation,
		}
	}
	return out
}

// TotalDisplacement sums the L1 displacement of every cell.
func (d *Design) TotalDisplacement() float64 {
	total := 0.0
	for i := range d.Cells {
		total += d.Cells[i].Displacement()
	}
	return total
}
