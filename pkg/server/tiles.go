package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maplibre/maplibre-native-go/pkg/cache"
	"github.com/maplibre/maplibre-native-go/pkg/errors"
	"github.com/maplibre/maplibre-native-go/pkg/observability"
)

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	zoom, x, y, err := tileCoords(r)
	if err != nil {
		status := s.writeError(w, err)
		observability.Server().OnTileServed(ctx, zoom, x, y, status, time.Since(start))
		return
	}

	key := cache.TileKey(zoom, x, y, s.keyOpts)
	if data, ok, err := s.tiles.Get(ctx, key); err != nil {
		// A broken cache never breaks a request.
		s.log.Warn("tile cache get failed", "key", key, "err", err)
	} else if ok {
		observability.Cache().OnCacheHit(ctx, s.cacheName)
		s.writeTile(w, data, "HIT")
		observability.Server().OnTileServed(ctx, zoom, x, y, http.StatusOK, time.Since(start))
		return
	}
	observability.Cache().OnCacheMiss(ctx, s.cacheName)

	img, err := s.renderer.RenderTile(ctx, s.style, zoom, x, y)
	if err != nil {
		status := s.writeError(w, err)
		observability.Server().OnTileServed(ctx, zoom, x, y, status, time.Since(start))
		return
	}

	var buf bytes.Buffer
	if err := img.EncodePNG(&buf); err != nil {
		status := s.writeError(w, err)
		observability.Server().OnTileServed(ctx, zoom, x, y, status, time.Since(start))
		return
	}

	if err := s.tiles.Set(ctx, key, buf.Bytes(), s.ttl); err != nil {
		s.log.Warn("tile cache set failed", "key", key, "err", err)
	} else {
		observability.Cache().OnCacheSet(ctx, s.cacheName, buf.Len())
	}

	s.writeTile(w, buf.Bytes(), "MISS")
	observability.Server().OnTileServed(ctx, zoom, x, y, http.StatusOK, time.Since(start))
}

// tileCoords parses and validates the z/x/y route parameters.
func tileCoords(r *http.Request) (zoom uint8, x, y uint32, err error) {
	z64, err := strconv.ParseUint(chi.URLParam(r, "z"), 10, 8)
	if err != nil {
		return 0, 0, 0, errors.New(errors.ErrCodeInvalidTile, "zoom %q is not a number", chi.URLParam(r, "z"))
	}
	x64, err := strconv.ParseUint(chi.URLParam(r, "x"), 10, 32)
	if err != nil {
		return 0, 0, 0, errors.New(errors.ErrCodeInvalidTile, "tile x %q is not a number", chi.URLParam(r, "x"))
	}
	y64, err := strconv.ParseUint(chi.URLParam(r, "y"), 10, 32)
	if err != nil {
		return 0, 0, 0, errors.New(errors.ErrCodeInvalidTile, "tile y %q is not a number", chi.URLParam(r, "y"))
	}

	zoom, x, y = uint8(z64), uint32(x64), uint32(y64)
	if err := errors.ValidateTile(zoom, x, y); err != nil {
		return zoom, x, y, err
	}
	return zoom, x, y, nil
}

func (s *Server) writeTile(w http.ResponseWriter, data []byte, cacheState string) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Cache", cacheState)
	if s.maxAge > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", s.maxAge))
	}
	_, _ = w.Write(data)
}

// writeError maps an error onto an HTTP status and a JSON body, and
// returns the status for hooks.
func (s *Server) writeError(w http.ResponseWriter, err error) int {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("tile request failed", "err", err)
	}
	writeJSON(w, status, map[string]any{
		"error": errors.UserMessage(err),
		"code":  string(errors.GetCode(err)),
	})
	return status
}

// statusFor translates the error taxonomy into HTTP statuses.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidTile, errors.ErrCodeInvalidInput, errors.ErrCodeInvalidStyle:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeChannelClosed, errors.ErrCodeWorkerSpawn:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
