package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/legalize/pkg/legalize"
	"github.com/matzehuels/legalize/pkg/placement"
)

// DOTOptions configures [ClusterDOT].
type DOTOptions struct {
	// MaxClusters limits the number of clusters drawn. Zero draws all.
	MaxClusters int
	// Detailed adds density and original position to node labels.
	Detailed bool
}

// ClusterDOT describes the cluster partition as a Graphviz graph: one
// subgraph per cluster, members chained left to right in placement order.
func ClusterDOT(d *placement.Design, clusters []legalize.Cluster, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph clusters {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=10];\n")
	buf.WriteString("  edge [arrowsize=0.5, color=\"#999999\"];\n")

	n := len(clusters)
	if opts.MaxClusters > 0 && n > opts.MaxClusters {
		n = opts.MaxClusters
	}
	for ci, cl := range clusters[:n] {
		label := fmt.Sprintf("cluster %d (%d cells)", ci, len(cl.Members))
		if cl.OutOfBounds {
			label = fmt.Sprintf("out of bounds (%d cells)", len(cl.Members))
		}
		fmt.Fprintf(&buf, "\n  subgraph cluster_%d {\n", ci)
		fmt.Fprintf(&buf, "    label=%q;\n", label)
		if cl.OutOfBounds {
			buf.WriteString("    style=dashed; color=red;\n")
		}
		for _, idx := range cl.Members {
			c := &d.Cells[idx]
			fmt.Fprintf(&buf, "    %q [label=%q];\n", c.Name, cellLabel(c, opts.Detailed))
		}
		if len(cl.Members) > 1 {
			names := make([]string, len(cl.Members))
			for i, idx := range cl.Members {
				names[i] = fmt.Sprintf("%q", d.Cells[idx].Name)
			}
			fmt.Fprintf(&buf, "    %s;\n", strings.Join(names, " -> "))
		}
		buf.WriteString("  }\n")
	}
	buf.WriteString("}\n")
	return buf.String()
}

func cellLabel(c *placement.Cell, detailed bool) string {
	if !detailed {
		return c.Name
	}
	return fmt.Sprintf("%s\nd=%d w=%g\n(%g, %g)", c.Name, c.Density, c.Width, c.OrigX, c.OrigY)
}

// RenderDOT lays out a DOT graph with Graphviz and returns SVG.
func RenderDOT(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
