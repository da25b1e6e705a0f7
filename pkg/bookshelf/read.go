// Package bookshelf reads and writes placement benchmarks in the UCLA
// Bookshelf format.
//
// A benchmark is a directory holding files that share a prefix:
//
//	<prefix>.aux    names the other files
//	<prefix>.nodes  cell names and sizes, "terminal" marks fixed cells
//	<prefix>.pl     cell positions and orientations, "/FIXED" marks fixed cells
//	<prefix>.scl    row definitions in CoreRow ... End blocks
//
// Reading is lenient: missing files and lines that cannot be parsed are
// logged and skipped, the way placement tools usually treat these inputs.
// [Write] emits a new .pl with the legalized positions and copies the rest of
// the benchmark next to it under a new prefix.
package bookshelf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/legalize/pkg/placement"
)

// Options configures Read and Write.
type Options struct {
	// Logger receives diagnostics about skipped input. Nil discards them.
	Logger *log.Logger
}

func (o Options) logger() *log.Logger {
	if o.Logger == nil {
		return log.New(io.Discard)
	}
	return o.Logger
}

// Files are the benchmark file names, relative to the benchmark directory.
type Files struct {
	Nodes string
	Pl    string
	Scl   string
}

// DefaultFiles returns the file names implied by prefix alone.
func DefaultFiles(prefix string) Files {
	return Files{Nodes: prefix + ".nodes", Pl: prefix + ".pl", Scl: prefix + ".scl"}
}

// Read loads the benchmark <dir>/<prefix>.* into a design named prefix.
//
// The .aux file, when present, overrides the default file names. The global
// site width and height are taken from the last Sitewidth and Height entries
// of the .scl file, defaulting to 1.
func Read(dir, prefix string, opts Options) (*placement.Design, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("benchmark directory: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("benchmark directory: %s is not a directory", dir)
	}

	r := &reader{logger: opts.logger()}
	files := DefaultFiles(prefix)
	r.withFile(dir, prefix+".aux", func(f io.Reader) { files = r.parseAux(f, files) })

	var (
		cells []placement.CellSpec
		rows  []placement.RowSpec
	)
	r.withFile(dir, files.Nodes, func(f io.Reader) { cells = r.parseNodes(f) })
	r.withFile(dir, files.Pl, func(f io.Reader) { r.parsePl(f, cells) })
	sw, sh := 1.0, 1.0
	r.withFile(dir, files.Scl, func(f io.Reader) { rows, sw, sh = r.parseScl(f) })

	d, err := placement.NewDesign(prefix, cells, rows, sw, sh)
	if err != nil {
		return nil, fmt.Errorf("build design: %w", err)
	}
	r.logger.Debug("read benchmark", "prefix", prefix, "cells", len(cells), "rows", len(rows), "site_width", sw)
	return d, nil
}

type reader struct {
	logger *log.Logger
}

func (r *reader) withFile(dir, name string, fn func(io.Reader)) {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		r.logger.Warn("failed to open benchmark file", "file", name, "err", err)
		return
	}
	defer f.Close()
	fn(f)
}

// parseAux reads the file list from the first line of an .aux file.
func (r *reader) parseAux(f io.Reader, files Files) Files {
	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return files
	}
	fields := strings.Fields(sc.Text())
	if len(fields) > 0 {
		fields = fields[1:] // "RowBasedPlacement"
	}
	for _, name := range fields {
		switch {
		case strings.Contains(name, ".nodes"):
			files.Nodes = name
		case strings.Contains(name, ".pl"):
			files.Pl = name
		case strings.Contains(name, ".scl"):
			files.Scl = name
		}
	}
	return files
}

func (r *reader) parseNodes(f io.Reader) []placement.CellSpec {
	var (
		cells []placement.CellSpec
		seen  = make(map[string]bool)
	)
	r.eachLine(f, func(n int, line string) {
		if strings.Contains(line, "UCLA") || strings.Contains(line, "NumNodes") || strings.Contains(line, "NumTerminals") {
			return
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			r.logger.Warn("skipping malformed node", "line", n, "text", line)
			return
		}
		w, errW := strconv.ParseFloat(fields[1], 64)
		h, errH := strconv.ParseFloat(fields[2], 64)
		if errW != nil || errH != nil || !(w > 0) || !(h > 0) {
			r.logger.Warn("skipping node with bad size", "line", n, "text", line)
			return
		}
		if seen[fields[0]] {
			r.logger.Warn("skipping duplicate node", "line", n, "cell", fields[0])
			return
		}
		seen[fields[0]] = true

		fixed := false
		for _, flag := range fields[3:] {
			if flag == "terminal" || flag == "terminal_NI" {
				fixed = true
			}
		}
		cells = append(cells, placement.CellSpec{Name: fields[0], Width: w, Height: h, Fixed: fixed})
	})
	return cells
}

func (r *reader) parsePl(f io.Reader, cells []placement.CellSpec) {
	index := make(map[string]int, len(cells))
	for i, c := range cells {
		index[c.Name] = i
	}
	r.eachLine(f, func(n int, line string) {
		if strings.HasPrefix(line, "UCLA") {
			return
		}
		fields := strings.Fields(strings.ReplaceAll(line, ":", " "))
		if len(fields) < 3 {
			r.logger.Warn("skipping malformed placement", "line", n, "text", line)
			return
		}
		x, errX := strconv.ParseFloat(fields[1], 64)
		y, errY := strconv.ParseFloat(fields[2], 64)
		if errX != nil || errY != nil {
			r.logger.Warn("skipping placement with bad coordinates", "line", n, "text", line)
			return
		}
		i, ok := index[fields[0]]
		if !ok {
			r.logger.Warn("placement for unknown cell", "line", n, "cell", fields[0])
			return
		}
		c := &cells[i]
		c.X, c.Y = x, y
		for _, tok := range fields[3:] {
			if tok == "/FIXED" || tok == "/FIXED_NI" {
				c.Fixed = true
			} else if c.Orientation == "" {
				c.Orientation = tok
			}
		}
	})
}

var subrowRe = regexp.MustCompile(`SubrowOrigin\s*:\s*(-?[0-9.eE+-]+)\s*Num[Ss]ites\s*:\s*(-?\d+)`)

// parseScl reads CoreRow blocks. A row inherits the site width and height in
// effect when its block starts; the last values seen become the global ones.
func (r *reader) parseScl(f io.Reader) (rows []placement.RowSpec, siteWidth, siteHeight float64) {
	siteWidth, siteHeight = 1.0, 1.0
	var cur *placement.RowSpec
	r.eachLine(f, func(n int, line string) {
		if strings.Contains(line, "CoreRow") {
			cur = &placement.RowSpec{SiteWidth: siteWidth, SiteHeight: siteHeight}
			return
		}
		if cur == nil {
			return
		}
		if strings.Contains(line, "End") {
			rows = append(rows, *cur)
			cur = nil
			return
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key == "SubrowOrigin" {
			m := subrowRe.FindStringSubmatch(line)
			if m == nil {
				r.logger.Warn("skipping malformed subrow", "line", n, "text", line)
				return
			}
			x, errX := strconv.ParseFloat(m[1], 64)
			count, errN := strconv.Atoi(m[2])
			if errX != nil || errN != nil {
				r.logger.Warn("skipping malformed subrow", "line", n, "text", line)
				return
			}
			cur.OriginX, cur.SiteCount = x, count
			return
		}

		var dst *float64
		switch key {
		case "Coordinate":
			dst = &cur.OriginY
		case "Height":
			dst = &cur.SiteHeight
		case "Sitewidth":
			dst = &cur.SiteWidth
		default:
			return
		}
		v, err := strconv.ParseFloat(strings.Fields(value + " ")[0], 64)
		if err != nil {
			r.logger.Warn("skipping malformed row entry", "line", n, "text", line)
			return
		}
		*dst = v
		switch key {
		case "Height":
			siteHeight = v
		case "Sitewidth":
			siteWidth = v
		}
	})

	valid := rows[:0]
	for i, row := range rows {
		if !(row.SiteWidth > 0) || !(row.SiteHeight > 0) || row.SiteCount < 0 {
			r.logger.Warn("skipping row with bad geometry", "row", i, "site_width", row.SiteWidth, "height", row.SiteHeight, "sites", row.SiteCount)
			continue
		}
		valid = append(valid, row)
	}
	return valid, siteWidth, siteHeight
}

// eachLine calls fn with every trimmed, non-empty, non-comment line.
func (r *reader) eachLine(f io.Reader, fn func(n int, line string)) {
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fn(n, line)
	}
	if err := sc.Err(); err != nil {
		r.logger.Warn("stopped reading benchmark file", "line", n, "err", err)
	}
}
