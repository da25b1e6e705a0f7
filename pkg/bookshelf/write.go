package bookshelf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/legalize/pkg/placement"
)

// copied are the benchmark files carried over unchanged by Write.
var copied = []string{".nodes", ".scl", ".nets", ".wts"}

// Target describes where Write reads the original benchmark from and where
// the legalized one goes.
type Target struct {
	InputDir     string
	InputPrefix  string
	OutputDir    string
	OutputPrefix string
}

// Write stores the design as the benchmark <OutputDir>/<OutputPrefix>.*.
//
// The .pl file is generated from the current cell positions. The .nodes,
// .scl, .nets and .wts files are copied from the input benchmark, and the .aux
// file is copied with every occurrence of the input prefix replaced. Failing
// to copy a file is logged; failing to write the .pl is an error. Write
// returns the paths of the files it produced, .pl first.
func Write(d *placement.Design, t Target, opts Options) ([]string, error) {
	logger := opts.logger()
	if err := os.MkdirAll(t.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	pl := filepath.Join(t.OutputDir, t.OutputPrefix+".pl")
	if err := writeFile(pl, func(w io.Writer) error { return WritePl(w, d.Cells) }); err != nil {
		return nil, fmt.Errorf("write placement: %w", err)
	}
	paths := []string{pl}

	for _, ext := range copied {
		src := filepath.Join(t.InputDir, t.InputPrefix+ext)
		dst := filepath.Join(t.OutputDir, t.OutputPrefix+ext)
		if src == dst {
			paths = append(paths, dst)
			continue
		}
		if err := copyFile(src, dst); err != nil {
			logger.Warn("failed to copy benchmark file", "src", src, "err", err)
			continue
		}
		paths = append(paths, dst)
	}

	aux := filepath.Join(t.OutputDir, t.OutputPrefix+".aux")
	if err := rewriteAux(filepath.Join(t.InputDir, t.InputPrefix+".aux"), aux, t.InputPrefix, t.OutputPrefix); err != nil {
		logger.Warn("failed to write aux file", "err", err)
	} else {
		paths = append(paths, aux)
	}
	return paths, nil
}

// WritePl writes cells in .pl format: a header, then one line per cell with
// its position and orientation. Fixed cells carry a /FIXED marker.
func WritePl(w io.Writer, cells []placement.Cell) error {
	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, "UCLA pl 1.0\n\n")
	for i := range cells {
		c := &cells[i]
		fmt.Fprintf(bw, "%s\t%s\t%s : %s", c.Name, formatCoord(c.X), formatCoord(c.Y), c.Orientation)
		if c.Fixed {
			fmt.Fprint(bw, " /FIXED")
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return writeFile(dst, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}

func rewriteAux(src, dst, from, to string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	out := string(data)
	if from != "" {
		out = strings.ReplaceAll(out, from, to)
	}
	return os.WriteFile(dst, []byte(out), 0o644)
}
