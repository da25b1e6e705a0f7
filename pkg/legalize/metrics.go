package legalize

import (
	"cmp"
	"slices"

	"github.com/matzehuels/legalize/pkg/placement"
)

// Metrics is the displacement summary of a placement.
type Metrics struct {
	Total   float64 `json:"total"`
	Max     float64 `json:"max"`
	MaxCell string  `json:"max_cell,omitempty"` // empty when no cell moved
}

// Overlap names two cells whose current footprints share area.
type Overlap struct {
	A string `json:"a"`
	B string `json:"b"`
}

// CalculateDisplacement summarizes the L1 displacement of every cell.
func (l *Legalizer) CalculateDisplacement() Metrics {
	m := Displacement(l.design.Cells)
	if m.MaxCell != "" {
		c, _ := l.design.Cell(m.MaxCell)
		l.logger.Debug("max displacement",
			"cell", c.Name,
			"from_x", c.OrigX, "from_y", c.OrigY,
			"to_x", c.X, "to_y", c.Y,
			"displacement", m.Max)
	}
	return m
}

// Displacement returns the total and maximum L1 displacement of cells. The
// total is summed in slice order.
func Displacement(cells []placement.Cell) Metrics {
	var m Metrics
	for i := range cells {
		d := cells[i].Displacement()
		m.Total += d
		if d > m.Max {
			m.Max = d
			m.MaxCell = cells[i].Name
		}
	}
	return m
}

// CheckOverlap logs and returns every pair of overlapping cells. Overlaps are
// diagnostics; they never stop the run.
func (l *Legalizer) CheckOverlap() []Overlap {
	out := Overlaps(l.design.Cells)
	for _, o := range out {
		l.logger.Warn("overlap detected", "a", o.A, "b", o.B)
	}
	return out
}

// Overlaps returns every pair of cells whose footprints share area, ordered by
// the index of the first and then the second cell.
//
// Cells are swept by left edge, so only pairs whose x-extents intersect are
// compared. The result is the same as comparing all pairs.
func Overlaps(cells []placement.Cell) []Overlap {
	order := make([]int, len(cells))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		return cmp.Or(cmp.Compare(cells[a].X, cells[b].X), cmp.Compare(a, b))
	})

	var pairs [][2]int
	for k, i := range order {
		ri := cells[i].Rect()
		for _, j := range order[k+1:] {
			rj := cells[j].Rect()
			if rj.MinX >= ri.MaxX {
				break
			}
			if ri.Overlaps(rj) {
				pairs = append(pairs, [2]int{min(i, j), max(i, j)})
			}
		}
	}

	slices.SortFunc(pairs, func(a, b [2]int) int {
		return cmp.Or(cmp.Compare(a[0], b[0]), cmp.Compare(a[1], b[1]))
	})
	out := make([]Overlap, len(pairs))
	for k, p := range pairs {
		out[k] = Overlap{A: cells[p[0]].Name, B: cells[p[1]].Name}
	}
	return out
}
