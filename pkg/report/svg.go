package report

import (
	"bytes"
	"fmt"
	"html"
	"math"

	"github.com/matzehuels/legalize/pkg/placement"
)

// DefaultSVGWidth is the pixel width of the drawing.
const DefaultSVGWidth = 1200.0

const svgCSS = `
    .row { fill: #f4f4f4; stroke: #d0d0d0; stroke-width: 0.5; }
    .cell { stroke: #333; stroke-width: 0.5; }
    .fixed { fill: #9a9a9a; }
    .unplaced { fill: none; stroke: #d00; stroke-dasharray: 3 2; }
    .vector { stroke: #1f4e9c; stroke-width: 0.6; opacity: 0.7; }
    .label { font: 8px sans-serif; fill: #222; }`

type SVGOption func(*svgRenderer)

type svgRenderer struct {
	width    float64
	vectors  bool
	labels   bool
	unplaced map[string]bool
}

// WithWidth sets the pixel width; the height follows the design's aspect ratio.
func WithWidth(px float64) SVGOption { return func(r *svgRenderer) { r.width = px } }

// WithVectors draws a line from each moved cell's anchor to its position.
func WithVectors() SVGOption { return func(r *svgRenderer) { r.vectors = true } }

// WithLabels prints cell names.
func WithLabels() SVGOption { return func(r *svgRenderer) { r.labels = true } }

// WithUnplaced outlines the named cells instead of filling them.
func WithUnplaced(names []string) SVGOption {
	return func(r *svgRenderer) {
		for _, n := range names {
			r.unplaced[n] = true
		}
	}
}

// RenderSVG draws the design's rows and cells. Movable cells are shaded from
// green (not moved) to red (the largest displacement); fixed cells are grey.
func RenderSVG(d *placement.Design, opts ...SVGOption) []byte {
	r := svgRenderer{width: DefaultSVGWidth, unplaced: map[string]bool{}}
	for _, opt := range opts {
		opt(&r)
	}

	view := extent(d)
	scale := r.width / math.Max(view.Width(), 1e-9)
	height := math.Max(view.Height()*scale, 1)
	// SVG y grows downwards.
	tx := func(x float64) float64 { return (x - view.MinX) * scale }
	ty := func(y float64) float64 { return height - (y-view.MinY)*scale }

	maxDisp := 0.0
	for i := range d.Cells {
		if !d.Cells[i].Fixed {
			maxDisp = math.Max(maxDisp, d.Cells[i].Displacement())
		}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		r.width, height, r.width, height)
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", svgCSS)

	for _, row := range d.Grid.Rows() {
		b := row.Bounds()
		fmt.Fprintf(&buf, `  <rect class="row" x="%.2f" y="%.2f" width="%.2f" height="%.2f"/>`+"\n",
			tx(b.MinX), ty(b.MaxY), b.Width()*scale, b.Height()*scale)
	}

	for i := range d.Cells {
		c := &d.Cells[i]
		x, y := tx(c.X), ty(c.Y+c.Height)
		w, h := c.Width*scale, c.Height*scale
		name := html.EscapeString(c.Name)
		switch {
		case c.Fixed:
			fmt.Fprintf(&buf, `  <rect class="cell fixed" x="%.2f" y="%.2f" width="%.2f" height="%.2f"><title>%s (fixed)</title></rect>`+"\n",
				x, y, w, h, name)
		case r.unplaced[c.Name]:
			fmt.Fprintf(&buf, `  <rect class="cell unplaced" x="%.2f" y="%.2f" width="%.2f" height="%.2f"><title>%s (unplaced)</title></rect>`+"\n",
				x, y, w, h, name)
		default:
			disp := c.Displacement()
			fmt.Fprintf(&buf, `  <rect class="cell" x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s"><title>%s: %g</title></rect>`+"\n",
				x, y, w, h, heat(disp, maxDisp), name, disp)
		}
	}

	if r.vectors {
		for i := range d.Cells {
			c := &d.Cells[i]
			if c.Fixed || r.unplaced[c.Name] || c.Displacement() == 0 {
				continue
			}
			fmt.Fprintf(&buf, `  <line class="vector" x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"/>`+"\n",
				tx(c.OrigX+c.Width/2), ty(c.OrigY+c.Height/2), tx(c.X+c.Width/2), ty(c.Y+c.Height/2))
		}
	}

	if r.labels {
		for i := range d.Cells {
			c := &d.Cells[i]
			fmt.Fprintf(&buf, `  <text class="label" x="%.2f" y="%.2f">%s</text>`+"\n",
				tx(c.X)+1, ty(c.Y)-1, html.EscapeString(c.Name))
		}
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// extent is the union of the row area and every cell at its current and
// original position.
func extent(d *placement.Design) placement.Rect {
	view, ok := d.Grid.Bounds()
	for i := range d.Cells {
		c := &d.Cells[i]
		if !ok {
			view, ok = c.Rect(), true
		}
		view = view.Union(c.Rect()).Union(c.OrigRect())
	}
	return view
}

// heat maps v in [0, max] onto a green-to-red hue.
func heat(v, max float64) string {
	t := 0.0
	if max > 0 {
		t = math.Min(v/max, 1)
	}
	return fmt.Sprintf("hsl(%.0f, 70%%, 55%%)", 120*(1-t))
}
