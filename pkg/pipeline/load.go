package pipeline

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/legalize/pkg/bookshelf"
	pkgerr "github.com/matzehuels/legalize/pkg/errors"
	pkgio "github.com/matzehuels/legalize/pkg/io"
	"github.com/matzehuels/legalize/pkg/placement"
)

// Input kinds.
const (
	InputBookshelf = "bookshelf"
	InputJSON      = "json"
)

// ResolveInput determines how Input is read. A directory is a Bookshelf
// benchmark whose prefix defaults to the directory's base name; a .aux file
// names both the directory and the prefix; a .json file is a JSON design.
func ResolveInput(input, prefix string) (kind, dir, pfx string, err error) {
	fi, err := os.Stat(input)
	if errors.Is(err, fs.ErrNotExist) {
		return "", "", "", pkgerr.Wrap(pkgerr.ErrCodeFileNotFound, err, "input %s", input)
	}
	if err != nil {
		return "", "", "", pkgerr.Wrap(pkgerr.ErrCodeInvalidPath, err, "input %s", input)
	}

	if fi.IsDir() {
		if prefix == "" {
			prefix = filepath.Base(filepath.Clean(input))
		}
		return InputBookshelf, input, prefix, nil
	}

	switch ext := strings.ToLower(filepath.Ext(input)); ext {
	case ".json":
		return InputJSON, filepath.Dir(input), strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)), nil
	case ".aux":
		if prefix == "" {
			prefix = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		}
		return InputBookshelf, filepath.Dir(input), prefix, nil
	default:
		return "", "", "", pkgerr.New(pkgerr.ErrCodeUnsupported, "input %s: expected a benchmark directory, .aux or .json file", input)
	}
}

// Load reads the design named by opts.Input, or returns opts.Design when set.
func Load(opts Options) (*placement.Design, error) {
	if opts.Design != nil {
		return opts.Design, nil
	}
	kind, dir, prefix, err := ResolveInput(opts.Input, opts.InputPrefix)
	if err != nil {
		return nil, err
	}

	var d *placement.Design
	switch kind {
	case InputJSON:
		d, err = pkgio.ImportJSON(opts.Input)
	default:
		d, err = bookshelf.Read(dir, prefix, bookshelf.Options{Logger: opts.Logger})
	}
	if err != nil {
		return nil, pkgerr.Wrap(pkgerr.ErrCodeInvalidDesign, err, "load %s", opts.Input)
	}
	if d.Name == "" {
		d.Name = prefix
	}
	return d, nil
}
