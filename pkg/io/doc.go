// Package io provides JSON import and export for placement designs.
//
// # Overview
//
// Bookshelf benchmarks spread a design over several files. The JSON form
// carries the same information in one document, which is what the HTTP API
// accepts and what `legalize run --format json` writes next to the .pl file.
//
// # JSON Format
//
//	{
//	  "name": "toy",
//	  "site_width": 1,
//	  "site_height": 12,
//	  "rows": [
//	    {"x": 0, "y": 0, "site_width": 1, "site_height": 12, "sites": 200}
//	  ],
//	  "cells": [
//	    {"name": "u1", "width": 3, "height": 12, "x": 10.4, "y": 3},
//	    {"name": "pad", "width": 4, "height": 12, "x": 0, "y": 0, "fixed": true}
//	  ]
//	}
//
// The "x" and "y" of a cell are its position in the input placement and
// become its anchor. "orient" defaults to "N". "site_width" and "site_height"
// may be omitted, in which case the last row's values are used.
//
// # Export
//
// [WriteJSON] writes the current positions as "x"/"y" and the anchor as
// "orig_x"/"orig_y". [ReadJSON] ignores the anchor fields, so re-importing an
// export treats the legalized positions as a new input placement. An optional
// [Summary] adds the displacement metrics of a run.
package io
