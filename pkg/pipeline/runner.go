package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/legalize/pkg/cache"
	pkgio "github.com/matzehuels/legalize/pkg/io"
	"github.com/matzehuels/legalize/pkg/legalize"
	"github.com/matzehuels/legalize/pkg/observability"
	"github.com/matzehuels/legalize/pkg/placement"
)

// Runner executes the pipeline with caching. It holds no per-run state, so
// several goroutines may share one Runner.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil keyer means cache.DefaultKeyer, a nil
// cache disables caching.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs load → legalize → render → write.
//
// A cached result for the same design and options is applied instead of
// legalizing again, unless opts.Refresh is set. Results of runs cut short by
// cancellation are not cached.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{RunID: uuid.NewString()}
	logger := opts.Logger.With("run", result.RunID[:8])
	opts.Logger = logger
	hooks := observability.Pipeline()

	// Stage 1: Load
	source := opts.Input
	if source == "" {
		source = "request"
	}
	hooks.OnLoadStart(ctx, source)
	loadStart := time.Now()
	d, err := Load(opts)
	result.Stats.LoadTime = time.Since(loadStart)
	if err != nil {
		hooks.OnLoadComplete(ctx, source, 0, 0, result.Stats.LoadTime, err)
		return nil, err
	}
	hooks.OnLoadComplete(ctx, source, len(d.Cells), d.Grid.NumRows(), result.Stats.LoadTime, nil)
	result.Design = d
	result.Stats.Cells = len(d.Cells)
	result.Stats.Rows = d.Grid.NumRows()
	logger.Info("loaded design",
		"name", d.Name,
		"cells", len(d.Cells),
		"rows", d.Grid.NumRows(),
		"sites", d.Grid.NumSites(),
		"duration", result.Stats.LoadTime)

	// Stage 2: Legalize
	legalizeStart := time.Now()
	res, hit, hash, err := r.legalize(ctx, d, opts)
	result.Stats.LegalizeTime = time.Since(legalizeStart)
	if err != nil {
		return nil, fmt.Errorf("legalize: %w", err)
	}
	result.Legalize = res
	result.CacheHit = hit
	result.DesignHash = hash
	logger.Info("legalized design",
		"total", res.Metrics.Total,
		"max", res.Metrics.Max,
		"unplaced", len(res.Unplaced),
		"cached", hit,
		"duration", result.Stats.LegalizeTime)

	// Stage 3: Render and write
	hooks.OnWriteStart(ctx, opts.Formats)
	writeStart := time.Now()
	result.Artifacts, err = Render(d, res, opts)
	if err == nil && opts.Output != "" {
		result.Files, err = WriteOutputs(d, result.Artifacts, opts)
	}
	result.Stats.WriteTime = time.Since(writeStart)
	hooks.OnWriteComplete(ctx, opts.Formats, result.Stats.WriteTime, err)
	if err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	if len(result.Files) > 0 {
		logger.Info("wrote outputs", "files", len(result.Files), "dir", opts.Output, "duration", result.Stats.WriteTime)
	}

	return result, nil
}

// legalize applies a cached result for d or runs the legalizer.
func (r *Runner) legalize(ctx context.Context, d *placement.Design, opts Options) (res *legalize.Result, hit bool, hash string, err error) {
	var buf bytes.Buffer
	if err := pkgio.WriteJSON(d, nil, &buf); err != nil {
		return nil, false, "", err
	}
	hash = cache.Hash(buf.Bytes())
	key := r.Keyer.PlacementKey(hash, opts.PlacementKeyOpts())
	cacheHooks := observability.Cache()

	if !opts.Refresh {
		data, ok, err := r.Cache.Get(ctx, key)
		switch {
		case err != nil:
			opts.Logger.Warn("cache lookup failed", "err", err)
		case ok:
			if res, err := applyCached(d, data); err == nil {
				cacheHooks.OnCacheHit(ctx, "placement")
				return res, true, hash, nil
			}
			opts.Logger.Debug("discarding unusable cache entry", "key", key)
		}
		cacheHooks.OnCacheMiss(ctx, "placement")
	}

	hooks := observability.Pipeline()
	hooks.OnLegalizeStart(ctx, d.Name, len(d.Cells))
	start := time.Now()
	l, err := legalize.New(d, opts.LegalizeConfig())
	if err != nil {
		hooks.OnLegalizeComplete(ctx, d.Name, time.Since(start), err)
		return nil, false, hash, err
	}
	res = l.Run(ctx)
	hooks.OnLegalizeComplete(ctx, d.Name, time.Since(start), nil)

	if res.Anneal.Stopped == legalize.StopCanceled {
		return res, false, hash, nil
	}
	if data, err := marshalCached(d, res); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLPlacement); err != nil {
			opts.Logger.Warn("cache store failed", "err", err)
		} else {
			cacheHooks.OnCacheSet(ctx, "placement", len(data))
		}
	}
	return res, false, hash, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// cachedRun is the cache entry of a legalization: every cell's final position
// and density, in design order, plus the run summary.
type cachedRun struct {
	Cells  [][3]float64     `json:"cells"` // x, y, density
	Result *legalize.Result `json:"result"`
}

func marshalCached(d *placement.Design, res *legalize.Result) ([]byte, error) {
	run := cachedRun{Cells: make([][3]float64, len(d.Cells)), Result: res}
	for i := range d.Cells {
		c := &d.Cells[i]
		run.Cells[i] = [3]float64{c.X, c.Y, float64(c.Density)}
	}
	return json.Marshal(run)
}

func applyCached(d *placement.Design, data []byte) (*legalize.Result, error) {
	var run cachedRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	if len(run.Cells) != len(d.Cells) || run.Result == nil {
		return nil, fmt.Errorf("cached run has %d cells, design has %d", len(run.Cells), len(d.Cells))
	}
	for i, v := range run.Cells {
		c := &d.Cells[i]
		c.X, c.Y, c.Density = v[0], v[1], int(v[2])
	}
	return run.Result, nil
}
