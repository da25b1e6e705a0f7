package legalize

import (
	"slices"
	"sort"
)

const (
	// DensityTolerance is the largest density difference between a cell and a
	// cluster's first member for the cell to join that cluster.
	DensityTolerance = 3

	// ProximityFactor scales the site width into the largest distance between
	// a cell and a cluster's first member for the cell to join that cluster.
	ProximityFactor = 2.0
)

// Cluster is an ordered group of cell indices. Order is placement order.
type Cluster struct {
	Members []int

	// OutOfBounds marks the cluster of cells whose original footprint is not
	// inside the chip boundary. It is always the first cluster when present.
	OutOfBounds bool
}

// Clusters returns the partition computed by the last SortAndCluster call.
func (l *Legalizer) Clusters() []Cluster { return l.clusters }

// SortAndCluster partitions the cells into clusters and fixes the order in
// which they are placed. Densities must be computed first.
//
// Cells whose original footprint leaves the chip boundary go into a leading
// out-of-bounds cluster. The rest are visited by descending density (ties
// keep input order) and join the first cluster whose first member is both
// close in density and close in space; otherwise they start a new cluster.
// The out-of-bounds cluster never takes new members. Finally every cluster is
// sorted by ascending cell width, stable.
func (l *Legalizer) SortAndCluster() []Cluster {
	cells := l.design.Cells
	bounds, hasBounds := l.design.Grid.Bounds()

	var oob Cluster
	oob.OutOfBounds = true
	rest := make([]int, 0, len(cells))
	for i := range cells {
		if !hasBounds || !bounds.Contains(cells[i].OrigRect()) {
			oob.Members = append(oob.Members, i)
			continue
		}
		rest = append(rest, i)
	}

	sort.SliceStable(rest, func(a, b int) bool {
		return cells[rest[a]].Density > cells[rest[b]].Density
	})

	var clusters []Cluster
	if len(oob.Members) > 0 {
		clusters = append(clusters, oob)
	}
	first := len(clusters)
	radius := ProximityFactor * l.design.SiteWidth
	for _, i := range rest {
		c := &cells[i]
		joined := false
		for k := first; k < len(clusters); k++ {
			lead := &cells[clusters[k].Members[0]]
			if abs(c.Density-lead.Density) <= DensityTolerance && distance(c.X, c.Y, lead.X, lead.Y) <= radius {
				clusters[k].Members = append(clusters[k].Members, i)
				joined = true
				break
			}
		}
		if !joined {
			clusters = append(clusters, Cluster{Members: []int{i}})
		}
	}

	for k := range clusters {
		slices.SortStableFunc(clusters[k].Members, func(a, b int) int {
			switch wa, wb := cells[a].Width, cells[b].Width; {
			case wa < wb:
				return -1
			case wa > wb:
				return 1
			}
			return 0
		})
	}

	l.clusters = clusters
	return clusters
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
