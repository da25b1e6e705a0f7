// Package pkg provides the libraries behind the legalize command.
//
// # Overview
//
// Legalization takes a global placement, where standard cells sit at
// arbitrary real coordinates and may overlap, and snaps every movable cell
// onto the sites of the placement rows so that no two cells overlap while
// keeping each cell close to where it started. The packages are organized as:
//
//  1. [placement] - Design model: cells, rows, the site grid
//  2. [legalize] - Density, clustering, greedy placement and annealing
//  3. [bookshelf], [io] - Bookshelf benchmark and JSON readers and writers
//  4. [report] - Statistics and SVG, HTML, XLSX and Graphviz reports
//  5. [pipeline] - Orchestration (load → legalize → render → write) with caching
//  6. [cache], [server], [observability] - Infrastructure
//
// # Data Flow
//
//	Bookshelf benchmark / JSON design
//	         ↓
//	    [bookshelf] or [io] (read)
//	         ↓
//	    [legalize] (density → clusters → place → anneal)
//	         ↓
//	    [bookshelf], [io], [report] (write)
//
// # Quick Start
//
//	d, err := bookshelf.Read("benchmarks/adaptec1", "adaptec1", bookshelf.Options{})
//	if err != nil {
//	    return err
//	}
//	l, err := legalize.New(d, legalize.Config{MaxDuration: time.Minute})
//	if err != nil {
//	    return err
//	}
//	res := l.Run(ctx)
//	fmt.Println(res.Metrics.Total, res.Metrics.Max)
package pkg
