package legalize

import (
	"context"
	"math"

	"github.com/matzehuels/legalize/pkg/observability"
	"github.com/matzehuels/legalize/pkg/placement"
)

// run is a cell's binding to consecutive sites of one row.
// count == 0 means the cell is not bound.
type run struct {
	first int // arena index of the first site
	count int
}

func (r run) bound() bool { return r.count > 0 }

// sitesFor returns how many consecutive sites a cell of the given width needs.
func sitesFor(width, siteWidth float64) int {
	return int(math.Ceil(width / siteWidth))
}

// PlaceCells assigns every movable cell to the free run of sites nearest (L1)
// to its anchor, visiting clusters and members in order.
//
// Sites under fixed cells are reserved first. Fixed cells and cells that are
// already bound are skipped, so calling PlaceCells again is a no-op. A cell
// with no feasible run keeps its position and is reported in the returned
// slice of unplaced cell indices.
func (l *Legalizer) PlaceCells(ctx context.Context) []int {
	l.reserveFixed()

	hooks := observability.Legalize()
	var unplaced []int
	for _, cl := range l.clusters {
		for _, i := range cl.Members {
			c := &l.design.Cells[i]
			if c.Fixed || l.bound[i].bound() {
				continue
			}
			r, ok := l.nearestRun(c)
			if !ok {
				l.logger.Warn("failed to find placement", "cell", c.Name, "width", c.Width, "x", c.OrigX, "y", c.OrigY)
				hooks.OnPlacementFailure(ctx, c.Name)
				unplaced = append(unplaced, i)
				continue
			}
			l.bind(i, r)
		}
	}
	l.unplaced = unplaced
	return unplaced
}

// Unplaced returns the indices of cells the last PlaceCells call could not bind.
func (l *Legalizer) Unplaced() []int { return l.unplaced }

// reserveFixed marks every site whose footprint overlaps a fixed cell as
// occupied by that cell.
func (l *Legalizer) reserveFixed() {
	g := l.design.Grid
	for i := range l.design.Cells {
		c := &l.design.Cells[i]
		if !c.Fixed {
			continue
		}
		fp := c.Rect()
		for r, row := range g.Rows() {
			if !row.Bounds().Overlaps(fp) {
				continue
			}
			sites := g.RowSites(r)
			for j := range sites {
				s := &sites[j]
				site := placement.Rect{MinX: s.X, MinY: s.Y, MaxX: s.X + row.SiteWidth, MaxY: s.Y + row.SiteHeight}
				if site.Overlaps(fp) {
					s.Occupant = i
				}
			}
		}
	}
}

// nearestRun scans every row for the free run of sitesFor(c.Width) sites whose
// first site is closest to the cell's anchor and whose extent stays inside the
// row. Ties keep the first run found in row, then site, order.
func (l *Legalizer) nearestRun(c *placement.Cell) (run, bool) {
	g := l.design.Grid
	need := sitesFor(c.Width, l.design.SiteWidth)
	if need <= 0 {
		return run{}, false
	}

	best, bestDist := run{}, math.Inf(1)
	for r, row := range g.Rows() {
		limit := row.MaxX()
		sites := g.RowSites(r)
		free := 0
		for j := range sites {
			if sites[j].Occupied() {
				free = 0
				continue
			}
			free++
			if free < need {
				continue
			}
			start := &sites[j-need+1]
			if start.X+c.Width > limit {
				// later starts only move further right
				break
			}
			if d := c.DisplacementAt(start.X, start.Y); d < bestDist {
				best = run{first: row.FirstSite + j - need + 1, count: need}
				bestDist = d
			}
		}
	}
	return best, best.bound()
}

// bind records the run for cell i, marks its sites and moves the cell there.
func (l *Legalizer) bind(i int, r run) {
	l.bound[i] = r
	g := l.design.Grid
	g.Bind(r.first, r.count, i)
	s := g.Site(r.first)
	l.design.Cells[i].X, l.design.Cells[i].Y = s.X, s.Y
}
