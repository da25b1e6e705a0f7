package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/cobra"

	"github.com/matzehuels/legalize/pkg/pipeline"
)

// parseRun parses args with the run command's flags and returns the merged
// options.
func parseRun(t *testing.T, args ...string) (pipeline.Options, error) {
	t.Helper()
	var got pipeline.Options
	cmd := newRunCmd(func(_ *cobra.Command, opts pipeline.Options, _ *runOpts) error {
		got = opts
		return nil
	})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return got, err
}

func TestRunOptions(t *testing.T) {
	config := filepath.Join(t.TempDir(), "legalize.toml")
	body := "input = \"bench/adaptec1\"\nepsilon = 4\nmax_duration = \"90s\"\nformats = [\"json\"]\n"
	if err := os.WriteFile(config, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want pipeline.Options
	}{
		{
			name: "flag defaults",
			args: []string{"in", "out"},
			want: pipeline.Options{
				Input:       "in",
				Output:      "out",
				Epsilon:     pipeline.DefaultEpsilon,
				MaxDuration: pipeline.DefaultMaxDuration,
				Seed:        pipeline.DefaultSeed,
				Workers:     pipeline.DefaultWorkers,
			},
		},
		{
			name: "short flags",
			args: []string{"in", "out", "-e", "8", "-t", "0.5", "--skip-anneal", "-f", "pl, svg"},
			want: pipeline.Options{
				Input:       "in",
				Output:      "out",
				Epsilon:     8,
				MaxDuration: 30 * time.Second,
				Seed:        pipeline.DefaultSeed,
				Workers:     pipeline.DefaultWorkers,
				SkipAnneal:  true,
				Formats:     []string{"pl", "svg"},
			},
		},
		{
			name: "zero budget skips annealing",
			args: []string{"in", "-t", "0"},
			want: pipeline.Options{
				Input:      "in",
				Epsilon:    pipeline.DefaultEpsilon,
				Seed:       pipeline.DefaultSeed,
				Workers:    pipeline.DefaultWorkers,
				SkipAnneal: true,
			},
		},
		{
			name: "config file",
			args: []string{"--config", config},
			want: pipeline.Options{
				Input:       "bench/adaptec1",
				Epsilon:     4,
				MaxDuration: 90 * time.Second,
				Formats:     []string{"json"},
			},
		},
		{
			name: "flags override config",
			args: []string{"--config", config, "other", "out", "-e", "2"},
			want: pipeline.Options{
				Input:       "other",
				Output:      "out",
				Epsilon:     2,
				MaxDuration: 90 * time.Second,
				Formats:     []string{"json"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRun(t, tt.args...)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.IgnoreUnexported(pipeline.Options{})); diff != "" {
				t.Errorf("options (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunOptionsNoInput(t *testing.T) {
	if _, err := parseRun(t); err == nil {
		t.Error("expected an error without input")
	}
}

// writeBenchmark writes a one-row benchmark named toy and returns its directory.
func writeBenchmark(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "toy")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"toy.aux":   "RowBasedPlacement : toy.nodes toy.nets toy.wts toy.pl toy.scl\n",
		"toy.nodes": "UCLA nodes 1.0\nNumNodes : 3\nNumTerminals : 1\n\ta\t1\t1\n\tb\t2\t1\n\tpad\t1\t1\tterminal\n",
		"toy.pl":    "UCLA pl 1.0\n\na\t2.4\t0.2\t: N\nb\t2.6\t0\t: N\npad\t0\t0\t: N /FIXED\n",
		"toy.scl":   "UCLA scl 1.0\nNumRows : 1\n\nCoreRow Horizontal\n  Coordinate : 0\n  Height : 1\n  Sitewidth : 1\n  SubrowOrigin : 0 NumSites : 10\nEnd\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRunCommand(t *testing.T) {
	in := writeBenchmark(t)
	out := filepath.Join(t.TempDir(), "toy-legal")

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"run", in, out, "--skip-anneal", "--no-cache", "-f", "pl,svg"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"toy-legal.pl", "toy-legal.aux", "toy-legal.nodes", "toy-legal.scl", "toy-legal.svg"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
}

func TestRunCommandCancelled(t *testing.T) {
	in := writeBenchmark(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"run", in, t.TempDir(), "--no-cache", "--max-iterations", "3"})
	if err := root.ExecuteContext(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestClustersCommand(t *testing.T) {
	in := writeBenchmark(t)
	out := filepath.Join(t.TempDir(), "toy.dot")

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"clusters", in, "-o", out, "--detailed"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "digraph clusters {") {
		t.Errorf("dot = %.40q", data)
	}
}
