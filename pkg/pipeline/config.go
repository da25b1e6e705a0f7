package pipeline

import (
	"strings"

	"github.com/BurntSushi/toml"

	pkgerr "github.com/matzehuels/legalize/pkg/errors"
)

// LoadOptionsFile reads options from a TOML file. Durations are written as
// strings ("90s", "5m"). Unknown keys are an error so that typos do not
// silently fall back to defaults.
//
//	input = "benchmarks/adaptec1"
//	epsilon = 8
//	max_duration = "2m"
//	formats = ["pl", "svg"]
//
//	[schedule]
//	initial = 500
//	cooling = 0.98
func LoadOptionsFile(path string) (Options, error) {
	var o Options
	md, err := toml.DecodeFile(path, &o)
	if err != nil {
		return Options{}, pkgerr.Wrap(pkgerr.ErrCodeInvalidFormat, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Options{}, pkgerr.New(pkgerr.ErrCodeInvalidOptions, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if md.IsDefined("max_duration") && o.MaxDuration == 0 {
		o.SkipAnneal = true
	}
	return o, nil
}
