package legalize

import (
	"math"

	"github.com/matzehuels/legalize/pkg/placement"
)

// ComputeDensity sets each cell's Density to the number of other cells whose
// current lower-left corner lies within epsilon × siteWidth (Euclidean,
// inclusive).
func (l *Legalizer) ComputeDensity(epsilon float64) {
	ComputeDensity(l.design.Cells, epsilon*l.design.SiteWidth)
}

// ComputeDensity sets each cell's Density to the number of other cells within
// radius of its current position.
//
// Cells are hashed into square buckets slightly wider than radius, so every
// neighbor lies in one of the nine buckets around a cell. The counts equal
// the all-pairs definition.
func ComputeDensity(cells []placement.Cell, radius float64) {
	if !(radius > 0) || math.IsInf(radius, 1) {
		densityAllPairs(cells, radius)
		return
	}

	size := radius * (1 + 1e-9)
	type bucket struct{ x, y int64 }
	key := func(c *placement.Cell) bucket {
		return bucket{int64(math.Floor(c.X / size)), int64(math.Floor(c.Y / size))}
	}

	buckets := make(map[bucket][]int, len(cells))
	for i := range cells {
		k := key(&cells[i])
		buckets[k] = append(buckets[k], i)
	}

	for i := range cells {
		c := &cells[i]
		k := key(c)
		n := 0
		for dx := int64(-1); dx <= 1; dx++ {
			for dy := int64(-1); dy <= 1; dy++ {
				for _, j := range buckets[bucket{k.x + dx, k.y + dy}] {
					if j != i && within(c, &cells[j], radius) {
						n++
					}
				}
			}
		}
		c.Density = n
	}
}

func densityAllPairs(cells []placement.Cell, radius float64) {
	for i := range cells {
		n := 0
		for j := range cells {
			if j != i && within(&cells[i], &cells[j], radius) {
				n++
			}
		}
		cells[i].Density = n
	}
}

func within(a, b *placement.Cell, radius float64) bool {
	return distance(a.X, a.Y, b.X, b.Y) <= radius
}

func distance(x1, y1, x2, y2 float64) float64 {
	dx, dy := x1-x2, y1-y2
	return math.Sqrt(dx*dx + dy*dy)
}
