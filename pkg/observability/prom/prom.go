// Package prom implements the observability hooks with Prometheus
// collectors. The server registers them and exposes /metrics.
package prom

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/legalize/pkg/observability"
)

const namespace = "legalize"

// durationBuckets span sub-millisecond stages up to the default five minute
// annealing budget.
var durationBuckets = prometheus.ExponentialBuckets(0.001, 4, 11)

// Metrics implements every hook interface in package observability.
type Metrics struct {
	loads        *prometheus.CounterVec
	loadDuration prometheus.Histogram
	designCells  prometheus.Histogram

	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	inFlight      prometheus.Gauge
	writeDuration prometheus.Histogram

	stageDuration *prometheus.HistogramVec
	failures      prometheus.Counter
	iterations    prometheus.Counter
	best          prometheus.Gauge

	cache     *prometheus.CounterVec
	cacheSize prometheus.Histogram

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
// It panics if a collector is already registered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		loads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "loads_total",
			Help: "Designs loaded, by outcome.",
		}, []string{"status"}),
		loadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "load_duration_seconds",
			Help: "Time spent reading a design.", Buckets: durationBuckets,
		}),
		designCells: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "design_cells",
			Help: "Number of cells per loaded design.", Buckets: prometheus.ExponentialBuckets(10, 10, 7),
		}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "legalizations_total",
			Help: "Legalization runs, by outcome.",
		}, []string{"status"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "legalization_duration_seconds",
			Help: "Wall time of a legalization run.", Buckets: durationBuckets,
		}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "legalizations_in_flight",
			Help: "Legalization runs in progress.",
		}),
		writeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "write_duration_seconds",
			Help: "Time spent rendering and writing outputs.", Buckets: durationBuckets,
		}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "legalizer", Name: "stage_duration_seconds",
			Help: "Duration of each legalization stage.", Buckets: durationBuckets,
		}, []string{"stage"}),
		failures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "legalizer", Name: "placement_failures_total",
			Help: "Cells that found no free run of sites.",
		}),
		iterations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "legalizer", Name: "anneal_iterations_total",
			Help: "Completed outer annealing iterations.",
		}),
		best: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "legalizer", Name: "anneal_best_displacement",
			Help: "Best-known total displacement of the most recent annealing iteration.",
		}),
		cache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "operations_total",
			Help: "Cache operations, by key type and result.",
		}, []string{"key_type", "result"}),
		cacheSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "cache", Name: "entry_bytes",
			Help: "Size of cache entries written.", Buckets: prometheus.ExponentialBuckets(256, 4, 10),
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help: "HTTP request latency.", Buckets: durationBuckets,
		}, []string{"method", "route"}),
	}
}

// Install makes m the global receiver of every hook.
func (m *Metrics) Install() {
	observability.SetPipelineHooks(m)
	observability.SetLegalizeHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Pipeline hooks

func (m *Metrics) OnLoadStart(context.Context, string) {}

func (m *Metrics) OnLoadComplete(_ context.Context, _ string, cells, _ int, d time.Duration, err error) {
	m.loads.WithLabelValues(status(err)).Inc()
	m.loadDuration.Observe(d.Seconds())
	if err == nil {
		m.designCells.Observe(float64(cells))
	}
}

func (m *Metrics) OnLegalizeStart(context.Context, string, int) { m.inFlight.Inc() }

func (m *Metrics) OnLegalizeComplete(_ context.Context, _ string, d time.Duration, err error) {
	m.inFlight.Dec()
	m.runs.WithLabelValues(status(err)).Inc()
	m.runDuration.Observe(d.Seconds())
}

func (m *Metrics) OnWriteStart(context.Context, []string) {}

func (m *Metrics) OnWriteComplete(_ context.Context, _ []string, d time.Duration, _ error) {
	m.writeDuration.Observe(d.Seconds())
}

// Legalize hooks

func (m *Metrics) OnStage(_ context.Context, stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) OnPlacementFailure(context.Context, string) { m.failures.Inc() }

func (m *Metrics) OnAnnealIteration(_ context.Context, _ int, best float64) {
	m.iterations.Inc()
	m.best.Set(best)
}

// Cache hooks

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cache.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cache.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cache.WithLabelValues(keyType, "set").Inc()
	m.cacheSize.Observe(float64(size))
}

// HTTP hooks

func (m *Metrics) OnRequest(context.Context, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, method, route string, code int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	method = strings.ToUpper(method)
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.LegalizeHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)
