package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/maplibre/maplibre-native-go/pkg/observability"
)

// logHooks forwards observability events from the library packages to the
// CLI logger. Everything routine logs at debug level so it only shows up
// under --verbose; worker deaths are warnings because a dead worker stays
// dead for the life of the pool.
type logHooks struct {
	logger *log.Logger
}

// installHooks registers l as the sink for all hook categories.
func installHooks(l *log.Logger) {
	h := &logHooks{logger: l}
	observability.SetRenderHooks(h)
	observability.SetPoolHooks(h)
	observability.SetCacheHooks(h)
	observability.SetServerHooks(h)
}

func (h *logHooks) OnRenderStart(ctx context.Context, backend string, zoom uint8, x, y uint32) {
	h.logger.Debug("render start", "backend", backend, "tile", tileRef(zoom, x, y))
}

func (h *logHooks) OnRenderComplete(ctx context.Context, backend string, duration time.Duration, err error) {
	if err != nil {
		h.logger.Debug("render failed", "backend", backend, "duration", duration.Round(time.Millisecond), "err", err)
		return
	}
	h.logger.Debug("render done", "backend", backend, "duration", duration.Round(time.Millisecond))
}

func (h *logHooks) OnStyleLoad(ctx context.Context, path string, duration time.Duration, err error) {
	if err != nil {
		h.logger.Debug("style load failed", "path", path, "err", err)
		return
	}
	h.logger.Debug("style loaded", "path", path, "duration", duration.Round(time.Millisecond))
}

func (h *logHooks) OnWorkerSpawn(ctx context.Context, pid int) {
	h.logger.Debug("worker spawned", "pid", pid)
}

func (h *logHooks) OnWorkerExit(ctx context.Context, pid int, err error) {
	if err != nil {
		h.logger.Warn("worker exited", "pid", pid, "err", err)
		return
	}
	h.logger.Debug("worker exited", "pid", pid)
}

func (h *logHooks) OnRequestDispatched(ctx context.Context, requestID uint64, pid int) {
	h.logger.Debug("request dispatched", "id", requestID, "pid", pid)
}

func (h *logHooks) OnRequestCompleted(ctx context.Context, requestID uint64, duration time.Duration, err error) {
	if err != nil {
		h.logger.Debug("request failed", "id", requestID, "duration", duration.Round(time.Millisecond), "err", err)
		return
	}
	h.logger.Debug("request completed", "id", requestID, "duration", duration.Round(time.Millisecond))
}

func (h *logHooks) OnCacheHit(ctx context.Context, backend string) {
	h.logger.Debug("cache hit", "cache", backend)
}

func (h *logHooks) OnCacheMiss(ctx context.Context, backend string) {
	h.logger.Debug("cache miss", "cache", backend)
}

func (h *logHooks) OnCacheSet(ctx context.Context, backend string, size int) {
	h.logger.Debug("cache set", "cache", backend, "bytes", size)
}

func (h *logHooks) OnTileServed(ctx context.Context, zoom uint8, x, y uint32, status int, duration time.Duration) {
	h.logger.Debug("tile served", "tile", tileRef(zoom, x, y), "status", status, "duration", duration.Round(time.Millisecond))
}
