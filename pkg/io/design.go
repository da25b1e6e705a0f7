package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/legalize/pkg/placement"
)

type design struct {
	Name       string   `json:"name,omitempty"`
	SiteWidth  float64  `json:"site_width,omitempty"`
	SiteHeight float64  `json:"site_height,omitempty"`
	Rows       []row    `json:"rows"`
	Cells      []cell   `json:"cells"`
	Summary    *Summary `json:"summary,omitempty"`
}

type row struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	SiteWidth  float64 `json:"site_width"`
	SiteHeight float64 `json:"site_height"`
	Sites      int     `json:"sites"`
}

type cell struct {
	Name   string   `json:"name"`
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	OrigX  *float64 `json:"orig_x,omitempty"`
	OrigY  *float64 `json:"orig_y,omitempty"`
	Fixed  bool     `json:"fixed,omitempty"`
	Orient string   `json:"orient,omitempty"`
}

// Summary is the outcome of a legalization run, attached to an export.
type Summary struct {
	TotalDisplacement float64  `json:"total_displacement"`
	MaxDisplacement   float64  `json:"max_displacement"`
	MaxCell           string   `json:"max_cell,omitempty"`
	Unplaced          []string `json:"unplaced,omitempty"`
	Overlaps          int      `json:"overlaps"`
}

// ReadJSON decodes a design from r.
//
// Cell and row records are validated by [placement.NewDesign]; a duplicate
// name or a non-positive size is an error. ReadJSON does not close r.
func ReadJSON(r io.Reader) (*placement.Design, error) {
	var in design
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	rows := make([]placement.RowSpec, len(in.Rows))
	for i, r := range in.Rows {
		rows[i] = placement.RowSpec{
			OriginX:    r.X,
			OriginY:    r.Y,
			SiteWidth:  r.SiteWidth,
			SiteHeight: r.SiteHeight,
			SiteCount:  r.Sites,
		}
	}
	cells := make([]placement.CellSpec, len(in.Cells))
	for i, c := range in.Cells {
		cells[i] = placement.CellSpec{
			Name:        c.Name,
			Width:       c.Width,
			Height:      c.Height,
			X:           c.X,
			Y:           c.Y,
			Fixed:       c.Fixed,
			Orientation: c.Orient,
		}
	}

	d, err := placement.NewDesign(in.Name, cells, rows, in.SiteWidth, in.SiteHeight)
	if err != nil {
		return nil, fmt.Errorf("design %s: %w", in.Name, err)
	}
	return d, nil
}

// ImportJSON reads the design stored at path.
func ImportJSON(path string) (*placement.Design, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// WriteJSON encodes d to w. s may be nil.
func WriteJSON(d *placement.Design, s *Summary, w io.Writer) error {
	out := design{
		Name:       d.Name,
		SiteWidth:  d.SiteWidth,
		SiteHeight: d.SiteHeight,
		Rows:       make([]row, 0, d.Grid.NumRows()),
		Cells:      make([]cell, len(d.Cells)),
		Summary:    s,
	}
	for _, r := range d.Grid.Rows() {
		out.Rows = append(out.Rows, row{
			X:          r.OriginX,
			Y:          r.OriginY,
			SiteWidth:  r.SiteWidth,
			SiteHeight: r.SiteHeight,
			Sites:      r.SiteCount,
		})
	}
	for i := range d.Cells {
		c := &d.Cells[i]
		ox, oy := c.OrigX, c.OrigY
		out.Cells[i] = cell{
			Name:   c.Name,
			Width:  c.Width,
			Height: c.Height,
			X:      c.X,
			Y:      c.Y,
			OrigX:  &ox,
			OrigY:  &oy,
			Fixed:  c.Fixed,
			Orient: c.Orientation,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes d to a file at path.
func ExportJSON(d *placement.Design, s *Summary, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(d, s, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
