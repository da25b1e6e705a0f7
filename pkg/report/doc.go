// Package report turns a legalized design into human-readable artifacts.
//
// Formats:
//
//   - svg: drawing of the rows and cells, colored by displacement ([RenderSVG])
//   - html: displacement histogram and annealing history charts ([RenderHTML])
//   - xlsx: per-cell table plus a summary sheet ([RenderXLSX])
//   - dot: the cluster partition as a Graphviz graph ([ClusterDOT], [RenderDOT])
//
// All renderers read the design and never modify it. [Summarize] computes the
// displacement statistics shared by the html and xlsx reports.
package report
