package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matzehuels/legalize/pkg/bookshelf"
	pkgio "github.com/matzehuels/legalize/pkg/io"
	"github.com/matzehuels/legalize/pkg/legalize"
	"github.com/matzehuels/legalize/pkg/placement"
	"github.com/matzehuels/legalize/pkg/report"
)

// Summary converts a legalization result into the JSON export summary.
func Summary(res *legalize.Result) *pkgio.Summary {
	return &pkgio.Summary{
		TotalDisplacement: res.Metrics.Total,
		MaxDisplacement:   res.Metrics.Max,
		MaxCell:           res.Metrics.MaxCell,
		Unplaced:          res.Unplaced,
		Overlaps:          len(res.Overlaps),
	}
}

// Render generates the artifacts for every format in opts.Formats.
func Render(d *placement.Design, res *legalize.Result, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))

	for _, format := range opts.Formats {
		var buf bytes.Buffer
		var err error

		switch format {
		case FormatPl:
			err = bookshelf.WritePl(&buf, d.Cells)
		case FormatJSON:
			err = pkgio.WriteJSON(d, Summary(res), &buf)
		case FormatSVG:
			svgOpts := []report.SVGOption{report.WithUnplaced(res.Unplaced)}
			if opts.Vectors {
				svgOpts = append(svgOpts, report.WithVectors())
			}
			buf.Write(report.RenderSVG(d, svgOpts...))
		case FormatHTML:
			err = report.RenderHTML(&buf, d, res)
		case FormatXLSX:
			err = report.RenderXLSX(&buf, d, res)
		default:
			return nil, ValidateFormat(format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = buf.Bytes()
	}
	return artifacts, nil
}

// WriteOutputs writes the artifacts to opts.Output and returns the written
// paths. For a Bookshelf input, the pl format writes a complete benchmark
// (see [bookshelf.Write]) instead of a lone .pl file.
func WriteOutputs(d *placement.Design, artifacts map[string][]byte, opts Options) ([]string, error) {
	if err := os.MkdirAll(opts.Output, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	prefix := opts.OutputPrefix
	if prefix == "" {
		prefix = filepath.Base(filepath.Clean(opts.Output))
	}

	var files []string
	for _, format := range opts.Formats {
		data, ok := artifacts[format]
		if !ok {
			continue
		}
		if format == FormatPl && opts.Design == nil {
			if kind, dir, inPrefix, err := ResolveInput(opts.Input, opts.InputPrefix); err == nil && kind == InputBookshelf {
				paths, err := bookshelf.Write(d, bookshelf.Target{
					InputDir:     dir,
					InputPrefix:  inPrefix,
					OutputDir:    opts.Output,
					OutputPrefix: prefix,
				}, bookshelf.Options{Logger: opts.Logger})
				if err != nil {
					return files, err
				}
				files = append(files, paths...)
				continue
			}
		}

		path := filepath.Join(opts.Output, prefix+"."+format)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return files, fmt.Errorf("write %s: %w", format, err)
		}
		files = append(files, path)
	}
	return files, nil
}
