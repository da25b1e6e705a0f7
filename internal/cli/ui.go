package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/legalize/pkg/pipeline"
	"github.com/matzehuels/legalize/pkg/report"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(14)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// =============================================================================
// Results
// =============================================================================

// printStats prints design statistics on a single line.
func printStats(cells, rows int, cached bool) {
	status := iconFresh
	statusStyle := styleComputed
	if cached {
		status = iconCached
		statusStyle = styleCached
	}
	parts := []string{
		fmt.Sprintf("%d cells", cells),
		fmt.Sprintf("%d rows", rows),
		statusStyle.Render(status),
	}

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	fmt.Println(line)
}

// printResult prints the outcome of a run: displacement, problems and the
// files written.
func printResult(res *pipeline.Result) {
	lr := res.Legalize
	printStats(res.Stats.Cells, res.Stats.Rows, res.CacheHit)
	fmt.Println()

	printKeyValue("Total", formatFloat(lr.Metrics.Total))
	maxDisp := formatFloat(lr.Metrics.Max)
	if lr.Metrics.MaxCell != "" {
		maxDisp += StyleDim.Render(" (" + lr.Metrics.MaxCell + ")")
	}
	printKeyValue("Max", maxDisp)
	if !res.CacheHit && lr.Anneal.Iterations > 0 {
		printKeyValue("Annealing", fmt.Sprintf("%s → %s in %d iterations",
			formatFloat(lr.Anneal.Initial), formatFloat(lr.Anneal.Best), lr.Anneal.Iterations))
	}
	fmt.Println()
	fmt.Println(statsTable(report.Summarize(res.Design)))

	if n := len(lr.Unplaced); n > 0 {
		printWarning("%d cells could not be placed", n)
		for i, name := range lr.Unplaced {
			if i == 5 {
				printDetail("... and %d more", n-5)
				break
			}
			printDetail("%s", name)
		}
	}
	if n := len(lr.Overlaps); n > 0 {
		printError("%d overlapping cell pairs", n)
	}

	if len(res.Files) > 0 {
		fmt.Println()
		printSuccess("Wrote %d files", len(res.Files))
		for _, f := range res.Files {
			printFile(f)
		}
	}
}

// statsTable renders the displacement distribution of movable cells.
func statsTable(s report.Stats) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Foreground(colorWhite).Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Cells", "Moved", "Mean", "Median", "P90", "P99", "Max").
		Row(
			strconv.Itoa(s.Cells),
			strconv.Itoa(s.Moved),
			formatFloat(s.Mean),
			formatFloat(s.Median),
			formatFloat(s.P90),
			formatFloat(s.P99),
			formatFloat(s.Max),
		).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			return cellStyle
		}).
		Render()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
