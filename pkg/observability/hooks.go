// Package observability provides hooks for metrics, tracing, and logging.
//
// Instrumentation is optional: library packages emit events through hook
// interfaces, and the binary decides which backend (if any) receives them.
// Every hook has a no-op default, so nothing needs to be registered for the
// libraries to work.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    m := prom.New(prometheus.DefaultRegisterer)
//	    observability.SetPipelineHooks(m)
//	    observability.SetLegalizeHooks(m)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnLoadStart(ctx, source)
//	// ... read the design ...
//	observability.Pipeline().OnLoadComplete(ctx, source, cells, rows, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the legalization pipeline.
type PipelineHooks interface {
	// Load events
	OnLoadStart(ctx context.Context, source string)
	OnLoadComplete(ctx context.Context, source string, cells, rows int, duration time.Duration, err error)

	// Legalize events
	OnLegalizeStart(ctx context.Context, design string, cells int)
	OnLegalizeComplete(ctx context.Context, design string, duration time.Duration, err error)

	// Write events
	OnWriteStart(ctx context.Context, formats []string)
	OnWriteComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// =============================================================================
// Legalize Hooks
// =============================================================================

// LegalizeHooks receives events from inside the legalizer. Calls are made from
// the goroutine that owns the design, never from annealing workers.
type LegalizeHooks interface {
	// OnStage records the duration of one legalization stage
	// ("density", "cluster", "place", "anneal").
	OnStage(ctx context.Context, stage string, duration time.Duration)

	// OnPlacementFailure records a cell that found no free run of sites.
	OnPlacementFailure(ctx context.Context, cell string)

	// OnAnnealIteration records the best-known total displacement after an
	// outer annealing iteration.
	OnAnnealIteration(ctx context.Context, iteration int, best float64)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP server.
type HTTPHooks interface {
	// OnRequest records an incoming request.
	OnRequest(ctx context.Context, method, route string)

	// OnResponse records a completed request.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnLoadStart(context.Context, string) {}
func (NoopPipelineHooks) OnLoadComplete(context.Context, string, int, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnLegalizeStart(context.Context, string, int)                      {}
func (NoopPipelineHooks) OnLegalizeComplete(context.Context, string, time.Duration, error) {}
func (NoopPipelineHooks) OnWriteStart(context.Context, []string)                          {}
func (NoopPipelineHooks) OnWriteComplete(context.Context, []string, time.Duration, error) {}

// NoopLegalizeHooks is a no-op implementation of LegalizeHooks.
type NoopLegalizeHooks struct{}

func (NoopLegalizeHooks) OnStage(context.Context, string, time.Duration)  {}
func (NoopLegalizeHooks) OnPlacementFailure(context.Context, string)      {}
func (NoopLegalizeHooks) OnAnnealIteration(context.Context, int, float64) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	legalizeHooks LegalizeHooks = NoopLegalizeHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetLegalizeHooks registers custom legalizer hooks.
func SetLegalizeHooks(h LegalizeHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		legalizeHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Legalize returns the registered legalizer hooks.
func Legalize() LegalizeHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return legalizeHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	legalizeHooks = NoopLegalizeHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
