package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/maplibre/maplibre-native-go/pkg/cache"
	"github.com/maplibre/maplibre-native-go/pkg/errors"
	"github.com/maplibre/maplibre-native-go/pkg/pool"
	"github.com/maplibre/maplibre-native-go/pkg/renderer"
)

func writeStyle(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "style.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write style: %v", err)
	}
	return path
}

const validStyle = `{"version":8,"name":"test","layers":[{"id":"bg","type":"background"}]}`

// newTestServer builds a server over a real serial pool with the debug
// backend.
func newTestServer(t *testing.T, style string, tiles cache.Cache) *Server {
	t.Helper()
	opts := renderer.Options{Width: 16, Height: 16}
	p, err := pool.NewSerialPool(opts)
	if err != nil {
		t.Fatalf("NewSerialPool: %v", err)
	}
	t.Cleanup(func() { p.Close() })

	s, err := New(Config{StylePath: style, MaxAge: 60, Options: opts, CacheName: "test"}, p, tiles)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServerServesTiles(t *testing.T) {
	tiles, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	s := newTestServer(t, writeStyle(t, validStyle), tiles)

	rec := get(t, s, "/tiles/0/0/0.png")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type %q, want image/png", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=60" {
		t.Errorf("Cache-Control %q", cc)
	}
	if xc := rec.Header().Get("X-Cache"); xc != "MISS" {
		t.Errorf("first request X-Cache %q, want MISS", xc)
	}

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("response is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 16 {
		t.Errorf("tile is %dx%d, want 16x16", b.Dx(), b.Dy())
	}

	// The second request is served from the cache, byte for byte.
	rec2 := get(t, s, "/tiles/0/0/0.png")
	if rec2.Code != http.StatusOK {
		t.Fatalf("cached request status %d", rec2.Code)
	}
	if xc := rec2.Header().Get("X-Cache"); xc != "HIT" {
		t.Errorf("second request X-Cache %q, want HIT", xc)
	}
	if !bytes.Equal(rec.Body.Bytes(), rec2.Body.Bytes()) {
		t.Error("cached tile differs from rendered tile")
	}
}

func TestServerBareCoordinatePath(t *testing.T) {
	s := newTestServer(t, writeStyle(t, validStyle), nil)

	rec := get(t, s, "/2/1/1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	if _, err := png.Decode(bytes.NewReader(rec.Body.Bytes())); err != nil {
		t.Errorf("response is not a PNG: %v", err)
	}
}

func TestServerRejectsBadCoordinates(t *testing.T) {
	s := newTestServer(t, writeStyle(t, validStyle), nil)

	paths := []string{
		"/tiles/abc/0/0.png", // non-numeric zoom
		"/tiles/0/abc/0.png", // non-numeric x
		"/tiles/0/0/abc.png", // non-numeric y
		"/tiles/256/0/0.png", // zoom overflows a byte
		"/tiles/31/0/0.png",  // zoom past the limit
		"/tiles/2/4/0.png",   // x outside the 4x4 grid of zoom 2
		"/tiles/2/0/4.png",   // y outside the grid
	}
	for _, path := range paths {
		rec := get(t, s, path)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", path, rec.Code)
			continue
		}
		var body struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Errorf("%s: bad error body: %v", path, err)
			continue
		}
		if body.Code != string(errors.ErrCodeInvalidTile) {
			t.Errorf("%s: error code %q, want %q", path, body.Code, errors.ErrCodeInvalidTile)
		}
	}
}

func TestServerHealthz(t *testing.T) {
	s := newTestServer(t, writeStyle(t, validStyle), nil)

	rec := get(t, s, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status %q, want ok", body.Status)
	}
}

func TestServerIndex(t *testing.T) {
	s := newTestServer(t, writeStyle(t, validStyle), nil)

	rec := get(t, s, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type %q, want text/html", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "/tiles/{z}/{x}/{y}.png") {
		t.Error("index page does not reference the tile URL template")
	}
	if !strings.Contains(body, "backend debug") {
		t.Error("index page does not name the backend")
	}
}

// erroringCache fails every read and write.
type erroringCache struct{}

func (erroringCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New(errors.ErrCodeCache, "cache down")
}
func (erroringCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New(errors.ErrCodeCache, "cache down")
}
func (erroringCache) Delete(context.Context, string) error { return nil }
func (erroringCache) Close() error                         { return nil }

func TestServerCacheFailuresAreNonFatal(t *testing.T) {
	s := newTestServer(t, writeStyle(t, validStyle), erroringCache{})

	rec := get(t, s, "/tiles/1/0/0.png")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d with broken cache, want 200", rec.Code)
	}
	if xc := rec.Header().Get("X-Cache"); xc != "MISS" {
		t.Errorf("X-Cache %q, want MISS", xc)
	}
}

func TestServerUnparseableStyle(t *testing.T) {
	// New only hashes the file; the parse failure surfaces on render.
	s := newTestServer(t, writeStyle(t, "{not a style"), nil)

	rec := get(t, s, "/tiles/0/0/0.png")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", rec.Code)
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad error body: %v", err)
	}
	if body.Code != string(errors.ErrCodeBackend) {
		t.Errorf("error code %q, want %q", body.Code, errors.ErrCodeBackend)
	}
}

func TestNewValidatesStyle(t *testing.T) {
	p, err := pool.NewSerialPool(renderer.Options{})
	if err != nil {
		t.Fatalf("NewSerialPool: %v", err)
	}
	defer p.Close()

	if _, err := New(Config{}, p, nil); !errors.Is(err, errors.ErrCodeConfig) {
		t.Errorf("New without style: got %v, want CONFIG_ERROR", err)
	}

	missing := filepath.Join(t.TempDir(), "missing.json")
	if _, err := New(Config{StylePath: missing}, p, nil); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("New with missing style: got %v, want NOT_FOUND", err)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid tile", errors.New(errors.ErrCodeInvalidTile, "zoom"), http.StatusBadRequest},
		{"invalid input", errors.New(errors.ErrCodeInvalidInput, "bad"), http.StatusBadRequest},
		{"invalid style", errors.New(errors.ErrCodeInvalidStyle, "bad"), http.StatusBadRequest},
		{"not found", errors.New(errors.ErrCodeNotFound, "missing"), http.StatusNotFound},
		{"channel closed", errors.New(errors.ErrCodeChannelClosed, "gone"), http.StatusServiceUnavailable},
		{"spawn failed", errors.New(errors.ErrCodeWorkerSpawn, "spawn"), http.StatusServiceUnavailable},
		{"backend", errors.New(errors.ErrCodeBackend, "render"), http.StatusInternalServerError},
		{"uncoded", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestServerRunGracefulShutdown(t *testing.T) {
	style := writeStyle(t, validStyle)
	opts := renderer.Options{Width: 16, Height: 16}
	p, err := pool.NewSerialPool(opts)
	if err != nil {
		t.Fatalf("NewSerialPool: %v", err)
	}
	defer p.Close()

	s, err := New(Config{Addr: "127.0.0.1:0", StylePath: style, Options: opts}, p, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
