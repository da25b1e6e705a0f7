package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/matzehuels/legalize/pkg/legalize"
	"github.com/matzehuels/legalize/pkg/placement"
)

const (
	summarySheet = "Summary"
	cellsSheet   = "Cells"
)

var cellHeader = []any{"Name", "Width", "Height", "Orig X", "Orig Y", "X", "Y", "Displacement", "Fixed", "Unplaced", "Density"}

// RenderXLSX writes a workbook with a summary sheet and one row per cell.
func RenderXLSX(w io.Writer, d *placement.Design, res *legalize.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if err := writeSummary(f, d, res); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}
	if _, err := f.NewSheet(cellsSheet); err != nil {
		return err
	}
	if err := writeCells(f, d, res); err != nil {
		return fmt.Errorf("cells sheet: %w", err)
	}

	_, err := f.WriteTo(w)
	return err
}

func writeSummary(f *excelize.File, d *placement.Design, res *legalize.Result) error {
	s := Summarize(d)
	rows := [][]any{
		{"Design", d.Name},
		{"Cells", len(d.Cells)},
		{"Rows", d.Grid.NumRows()},
		{"Sites", d.Grid.NumSites()},
		{"Clusters", res.Clusters},
		{"Out of bounds", res.OutOfBounds},
		{"Unplaced", len(res.Unplaced)},
		{"Overlaps", len(res.Overlaps)},
		{"Total displacement", res.Metrics.Total},
		{"Max displacement", res.Metrics.Max},
		{"Max cell", res.Metrics.MaxCell},
		{"Mean displacement", s.Mean},
		{"Median displacement", s.Median},
		{"P90 displacement", s.P90},
		{"Std dev", s.StdDev},
		{"Greedy total", res.Anneal.Initial},
		{"Anneal iterations", res.Anneal.Iterations},
		{"Anneal proposals", res.Anneal.Proposals},
		{"Anneal accepted", res.Anneal.Accepted},
		{"Anneal stopped", res.Anneal.Stopped},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &r); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	return f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(rows)), bold)
}

func writeCells(f *excelize.File, d *placement.Design, res *legalize.Result) error {
	unplaced := make(map[string]bool, len(res.Unplaced))
	for _, n := range res.Unplaced {
		unplaced[n] = true
	}

	if err := f.SetSheetRow(cellsSheet, "A1", &cellHeader); err != nil {
		return err
	}
	for i := range d.Cells {
		c := &d.Cells[i]
		row := []any{c.Name, c.Width, c.Height, c.OrigX, c.OrigY, c.X, c.Y, c.Displacement(), c.Fixed, unplaced[c.Name], c.Density}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(cellsSheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SetPanes(cellsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
