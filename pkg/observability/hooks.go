// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about rendering, pool activity, cache operations, and the
// tile server.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetRenderHooks(&myRenderHooks{})
//	    observability.SetPoolHooks(&myPoolHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Render().OnRenderStart(ctx, backend, zoom, x, y)
//	// ... render ...
//	observability.Render().OnRenderComplete(ctx, backend, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Render Hooks
// =============================================================================

// RenderHooks receives events from rendering operations.
type RenderHooks interface {
	// OnRenderStart records the beginning of a tile or viewport render.
	OnRenderStart(ctx context.Context, backend string, zoom uint8, x, y uint32)

	// OnRenderComplete records the outcome of a render.
	OnRenderComplete(ctx context.Context, backend string, duration time.Duration, err error)

	// OnStyleLoad records a style (re)load into a backend.
	OnStyleLoad(ctx context.Context, path string, duration time.Duration, err error)
}

// =============================================================================
// Pool Hooks
// =============================================================================

// PoolHooks receives events from the render pools.
type PoolHooks interface {
	// OnWorkerSpawn records a worker subprocess starting.
	OnWorkerSpawn(ctx context.Context, pid int)

	// OnWorkerExit records a worker subprocess going away. err carries the
	// reason its response stream ended, nil for a clean shutdown.
	OnWorkerExit(ctx context.Context, pid int, err error)

	// OnRequestDispatched records a request being handed to a worker.
	OnRequestDispatched(ctx context.Context, requestID uint64, pid int)

	// OnRequestCompleted records a request finishing, however it ended.
	OnRequestCompleted(ctx context.Context, requestID uint64, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, backend string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, backend string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, backend string, size int)
}

// =============================================================================
// Server Hooks
// =============================================================================

// ServerHooks receives events from the tile server.
type ServerHooks interface {
	// OnTileServed records a completed tile request.
	OnTileServed(ctx context.Context, zoom uint8, x, y uint32, status int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopRenderHooks is a no-op implementation of RenderHooks.
type NoopRenderHooks struct{}

func (NoopRenderHooks) OnRenderStart(context.Context, string, uint8, uint32, uint32)    {}
func (NoopRenderHooks) OnRenderComplete(context.Context, string, time.Duration, error)  {}
func (NoopRenderHooks) OnStyleLoad(context.Context, string, time.Duration, error)       {}

// NoopPoolHooks is a no-op implementation of PoolHooks.
type NoopPoolHooks struct{}

func (NoopPoolHooks) OnWorkerSpawn(context.Context, int)                                 {}
func (NoopPoolHooks) OnWorkerExit(context.Context, int, error)                           {}
func (NoopPoolHooks) OnRequestDispatched(context.Context, uint64, int)                   {}
func (NoopPoolHooks) OnRequestCompleted(context.Context, uint64, time.Duration, error)   {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopServerHooks is a no-op implementation of ServerHooks.
type NoopServerHooks struct{}

func (NoopServerHooks) OnTileServed(context.Context, uint8, uint32, uint32, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	renderHooks RenderHooks = NoopRenderHooks{}
	poolHooks   PoolHooks   = NoopPoolHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	serverHooks ServerHooks = NoopServerHooks{}
	hooksMu     sync.RWMutex
)

// SetRenderHooks registers custom render hooks.
// This should be called once at application startup before any rendering.
func SetRenderHooks(h RenderHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		renderHooks = h
	}
}

// SetPoolHooks registers custom pool hooks.
// This should be called once at application startup before any pool is built.
func SetPoolHooks(h PoolHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		poolHooks = h
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

// SetServerHooks registers custom server hooks.
// This should be called once at application startup before the server starts.
func SetServerHooks(h ServerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		serverHooks = h
	}
}

// Render returns the registered render hooks.
func Render() RenderHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return renderHooks
}

// Pool returns the registered pool hooks.
func Pool() PoolHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return poolHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Server returns the registered server hooks.
func Server() ServerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return serverHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	renderHooks = NoopRenderHooks{}
	poolHooks = NoopPoolHooks{}
	cacheHooks = NoopCacheHooks{}
	serverHooks = NoopServerHooks{}
}
