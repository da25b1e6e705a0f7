package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/matzehuels/legalize/pkg/legalize"
	"github.com/matzehuels/legalize/pkg/placement"
)

// HistogramBins is the number of buckets in the displacement histogram.
const HistogramBins = 20

// RenderHTML writes a self-contained page with three charts: the displacement
// histogram, the best-known total displacement per annealing iteration, and
// the time spent in each stage.
func RenderHTML(w io.Writer, d *placement.Design, res *legalize.Result) error {
	page := components.NewPage()
	page.PageTitle = "legalize: " + d.Name
	page.AddCharts(histogramChart(d), historyChart(res.Anneal), timingChart(res.Timings))
	return page.Render(w)
}

func histogramChart(d *placement.Design) *charts.Bar {
	s := Summarize(d)
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Displacement",
			Subtitle: fmt.Sprintf("%d movable cells, mean %.3g, p90 %.3g, max %.3g", s.Cells, s.Mean, s.P90, s.Max),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "displacement"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "cells"}),
	)

	bins := Histogram(d, HistogramBins)
	labels := make([]string, len(bins))
	items := make([]opts.BarData, len(bins))
	for i, b := range bins {
		labels[i] = strconv.FormatFloat(b.Lo, 'g', 3, 64)
		items[i] = opts.BarData{Value: b.Count}
	}
	bar.SetXAxis(labels).AddSeries("cells", items)
	return bar
}

func historyChart(st legalize.AnnealStats) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Annealing",
			Subtitle: fmt.Sprintf("%d iterations, stopped: %s", st.Iterations, st.Stopped),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "iteration"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "total displacement"}),
	)

	// Iteration 0 is the greedy placement.
	xs := make([]int, 0, len(st.History)+1)
	ys := make([]opts.LineData, 0, len(st.History)+1)
	xs = append(xs, 0)
	ys = append(ys, opts.LineData{Value: st.Initial})
	for i, v := range st.History {
		xs = append(xs, i+1)
		ys = append(ys, opts.LineData{Value: v})
	}
	line.SetXAxis(xs).AddSeries("best", ys)
	return line
}

func timingChart(t legalize.Timings) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Stages"}))
	pie.AddSeries("seconds", []opts.PieData{
		{Name: "density", Value: t.Density.Seconds()},
		{Name: "cluster", Value: t.Cluster.Seconds()},
		{Name: "place", Value: t.Place.Seconds()},
		{Name: "anneal", Value: t.Anneal.Seconds()},
	})
	return pie
}
