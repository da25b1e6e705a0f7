package report

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/matzehuels/legalize/pkg/placement"
)

// Stats summarizes the per-cell displacement of the movable cells.
type Stats struct {
	Cells  int     `json:"cells"` // movable cells
	Moved  int     `json:"moved"`
	Total  float64 `json:"total"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
	P99    float64 `json:"p99"`
	Max    float64 `json:"max"`
}

// Bin is one histogram bucket covering [Lo, Hi).
type Bin struct {
	Lo, Hi float64
	Count  int
}

// Displacements returns the displacement of every movable cell, sorted
// ascending.
func Displacements(d *placement.Design) []float64 {
	out := make([]float64, 0, len(d.Cells))
	for i := range d.Cells {
		if d.Cells[i].Fixed {
			continue
		}
		out = append(out, d.Cells[i].Displacement())
	}
	slices.Sort(out)
	return out
}

// Summarize computes displacement statistics over the movable cells.
func Summarize(d *placement.Design) Stats {
	x := Displacements(d)
	s := Stats{Cells: len(x)}
	if len(x) == 0 {
		return s
	}
	for _, v := range x {
		if v > 0 {
			s.Moved++
		}
	}
	s.Total = floats.Sum(x)
	s.Mean, s.StdDev = stat.MeanStdDev(x, nil)
	if math.IsNaN(s.StdDev) {
		s.StdDev = 0
	}
	s.Median = stat.Quantile(0.5, stat.Empirical, x, nil)
	s.P90 = stat.Quantile(0.9, stat.Empirical, x, nil)
	s.P99 = stat.Quantile(0.99, stat.Empirical, x, nil)
	s.Max = x[len(x)-1]
	return s
}

// Histogram buckets the movable cells' displacements into n equal-width bins
// spanning [0, max]. It returns nil when there are no movable cells.
func Histogram(d *placement.Design, n int) []Bin {
	x := Displacements(d)
	if len(x) == 0 || n <= 0 {
		return nil
	}
	hi := x[len(x)-1]
	if hi <= 0 {
		hi = 1
	}
	// The last divider must exceed the maximum value.
	dividers := floats.Span(make([]float64, n+1), 0, math.Nextafter(hi, math.Inf(1)))
	counts := stat.Histogram(nil, dividers, x, nil)

	bins := make([]Bin, n)
	for i := range bins {
		bins[i] = Bin{Lo: dividers[i], Hi: dividers[i+1], Count: int(counts[i])}
	}
	return bins
}
