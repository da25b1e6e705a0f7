package legalize_test

import (
	"context"
	"fmt"

	"github.com/matzehuels/legalize/pkg/legalize"
	"github.com/matzehuels/legalize/pkg/placement"
)

func Example() {
	d, err := placement.NewDesign("tiny",
		[]placement.CellSpec{
			{Name: "u1", Width: 2, Height: 1, X: 0.4, Y: 0.2},
			{Name: "u2", Width: 1, Height: 1, X: 0.9, Y: 0},
		},
		[]placement.RowSpec{{OriginX: 0, OriginY: 0, SiteWidth: 1, SiteHeight: 1, SiteCount: 8}},
		0, 0)
	if err != nil {
		panic(err)
	}

	l, err := legalize.New(d, legalize.Config{MaxDuration: -1})
	if err != nil {
		panic(err)
	}
	res := l.Run(context.Background())

	for _, c := range d.Cells {
		fmt.Printf("%s %g %g : %s\n", c.Name, c.X, c.Y, c.Orientation)
	}
	fmt.Printf("total %.1f, max %.1f (%s)\n", res.Metrics.Total, res.Metrics.Max, res.Metrics.MaxCell)
	// Output:
	// u1 2 0 : N
	// u2 1 0 : N
	// total 1.9, max 1.8 (u1)
}
