package pool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maplibre/maplibre-native-go/pkg/errors"
	"github.com/maplibre/maplibre-native-go/pkg/renderer"
)

// fakeBackend is an instrumented backend for pool tests. It observes
// concurrency with atomics but is otherwise as thread-unsafe as a real
// backend; the pool under test is what keeps it serialized. Non-atomic
// fields must only be written between calls and read after the pool has
// stopped (channel operations order those accesses).
type fakeBackend struct {
	loads     []string // style paths in LoadStyle order
	viewports []renderer.Viewport
	loadErr   error
	renderErr error
	panicNext bool

	// entered/release, when set, turn RenderTile into a rendezvous so a
	// test can hold the worker mid-render.
	entered chan struct{}
	release chan struct{}

	renders   atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
	closes    atomic.Int32
}

func (b *fakeBackend) LoadStyle(path string) error {
	b.loads = append(b.loads, path)
	return b.loadErr
}

func (b *fakeBackend) RenderTile(zoom uint8, x, y uint32) (*renderer.Image, error) {
	cur := b.active.Add(1)
	defer b.active.Add(-1)
	for {
		max := b.maxActive.Load()
		if cur <= max || b.maxActive.CompareAndSwap(max, cur) {
			break
		}
	}

	if b.entered != nil {
		b.entered <- struct{}{}
		<-b.release
	}
	if b.panicNext {
		panic("backend exploded")
	}

	// Stay inside the render long enough for overlapping calls to show up
	// in maxActive if the pool ever lets them through.
	time.Sleep(time.Millisecond)

	b.renders.Add(1)
	if b.renderErr != nil {
		return nil, b.renderErr
	}
	return &renderer.Image{Width: 1, Height: 1, Pix: []byte{zoom, byte(x), byte(y), 255}}, nil
}

func (b *fakeBackend) RenderViewport(v renderer.Viewport) (*renderer.Image, error) {
	b.viewports = append(b.viewports, v)
	b.renders.Add(1)
	if b.renderErr != nil {
		return nil, b.renderErr
	}
	return &renderer.Image{Width: 2, Height: 1, Pix: make([]byte, 8)}, nil
}

func (b *fakeBackend) Close() error {
	b.closes.Add(1)
	return nil
}

func newFakePool(t *testing.T, b *fakeBackend) *SerialPool {
	t.Helper()
	p, err := newSerialPool("fake", func() (renderer.Backend, error) { return b, nil })
	if err != nil {
		t.Fatalf("newSerialPool: %v", err)
	}
	return p
}

func writeStyle(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	style := `{"version":8,"name":"test","layers":[{"id":"bg","type":"background"}]}`
	if err := os.WriteFile(path, []byte(style), 0o644); err != nil {
		t.Fatalf("write style: %v", err)
	}
	return path
}

func TestSerialPoolSerializesBackendAccess(t *testing.T) {
	for _, workers := range []int{2, 5, 20} {
		t.Run(fmt.Sprintf("goroutines-%d", workers), func(t *testing.T) {
			fb := &fakeBackend{}
			p := newFakePool(t, fb)
			style := writeStyle(t, "style.json")

			const rendersPerG = 5
			ctx := context.Background()
			var wg sync.WaitGroup
			errCh := make(chan error, workers*rendersPerG)
			for g := 0; g < workers; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for r := 0; r < rendersPerG; r++ {
						if _, err := p.RenderTile(ctx, style, 4, uint32(g), uint32(r)); err != nil {
							errCh <- err
						}
					}
				}(g)
			}
			wg.Wait()
			close(errCh)
			for err := range errCh {
				t.Errorf("RenderTile error: %v", err)
			}

			if err := p.Close(); err != nil {
				t.Fatalf("Close error: %v", err)
			}

			// The whole point of the pool: never two renders at once.
			if max := fb.maxActive.Load(); max != 1 {
				t.Errorf("backend saw %d concurrent renders, want 1", max)
			}
			if got := fb.renders.Load(); got != int32(workers*rendersPerG) {
				t.Errorf("backend rendered %d times, want %d", got, workers*rendersPerG)
			}
		})
	}
}

func TestSerialPoolRoutesResultsToCallers(t *testing.T) {
	fb := &fakeBackend{}
	p := newFakePool(t, fb)
	defer p.Close()
	style := writeStyle(t, "style.json")

	// Each goroutine renders its own coordinate and must get its own
	// pixels back, not a neighbor's.
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i uint32) {
			defer wg.Done()
			img, err := p.RenderTile(ctx, style, 3, i, 100+i)
			if err != nil {
				t.Errorf("RenderTile(%d): %v", i, err)
				return
			}
			want := []byte{3, byte(i), byte(100 + i), 255}
			for j, b := range want {
				if img.Pix[j] != b {
					t.Errorf("caller %d got pixels %v, want %v", i, img.Pix, want)
					return
				}
			}
		}(uint32(i))
	}
	wg.Wait()
}

func TestSerialPoolReloadsStyleOnlyOnChange(t *testing.T) {
	fb := &fakeBackend{}
	p := newFakePool(t, fb)
	ctx := context.Background()
	styleA := writeStyle(t, "a.json")
	styleB := writeStyle(t, "b.json")

	for _, style := range []string{styleA, styleA, styleB, styleA} {
		if _, err := p.RenderTile(ctx, style, 0, 0, 0); err != nil {
			t.Fatalf("RenderTile(%s): %v", style, err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	// Same path in a row is a cache hit; each switch reloads.
	want := []string{styleA, styleB, styleA}
	if len(fb.loads) != len(want) {
		t.Fatalf("LoadStyle called %d times (%v), want %d", len(fb.loads), fb.loads, len(want))
	}
	for i := range want {
		if fb.loads[i] != want[i] {
			t.Errorf("load %d = %s, want %s", i, fb.loads[i], want[i])
		}
	}
}

func TestSerialPoolMissingStyle(t *testing.T) {
	fb := &fakeBackend{}
	p := newFakePool(t, fb)

	missing := filepath.Join(t.TempDir(), "missing.json")
	_, err := p.RenderTile(context.Background(), missing, 0, 0, 0)
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	wantMsg := fmt.Sprintf("Path %s is not a file", missing)
	if got := errors.UserMessage(err); got != wantMsg {
		t.Errorf("message %q, want %q", got, wantMsg)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if fb.renders.Load() != 0 {
		t.Error("backend should not render when the style is missing")
	}
	if len(fb.loads) != 0 {
		t.Errorf("backend should not load a missing style, got %v", fb.loads)
	}
}

func TestSerialPoolEmptyStylePath(t *testing.T) {
	fb := &fakeBackend{}
	p := newFakePool(t, fb)
	defer p.Close()

	_, err := p.RenderTile(context.Background(), "", 0, 0, 0)
	if !errors.Is(err, errors.ErrCodeInvalidStyle) {
		t.Fatalf("expected INVALID_STYLE, got %v", err)
	}
}

func TestSerialPoolBackendRenderError(t *testing.T) {
	fb := &fakeBackend{renderErr: errors.New(errors.ErrCodeBackend, "tile fell off")}
	p := newFakePool(t, fb)
	defer p.Close()
	ctx := context.Background()
	style := writeStyle(t, "style.json")

	_, err := p.RenderTile(ctx, style, 1, 0, 0)
	if !errors.Is(err, errors.ErrCodeBackend) {
		t.Fatalf("expected BACKEND_ERROR, got %v", err)
	}

	// A failed render is not fatal; the worker keeps serving.
	fb.renderErr = nil
	if _, err := p.RenderTile(ctx, style, 1, 0, 0); err != nil {
		t.Fatalf("render after failure: %v", err)
	}
}

func TestSerialPoolPanicPermanentlyDegrades(t *testing.T) {
	fb := &fakeBackend{}
	p := newFakePool(t, fb)
	ctx := context.Background()
	style := writeStyle(t, "style.json")

	if _, err := p.RenderTile(ctx, style, 0, 0, 0); err != nil {
		t.Fatalf("initial render: %v", err)
	}

	fb.panicNext = true
	_, err := p.RenderTile(ctx, style, 0, 0, 0)
	if !errors.Is(err, errors.ErrCodeChannelClosed) {
		t.Fatalf("expected CHANNEL_CLOSED after panic, got %v", err)
	}

	// The owning goroutine is gone; every later call fails the same way.
	for i := 0; i < 3; i++ {
		if _, err := p.RenderTile(ctx, style, 0, 0, 0); !errors.Is(err, errors.ErrCodeChannelClosed) {
			t.Fatalf("render %d after panic: got %v, want CHANNEL_CLOSED", i, err)
		}
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close after panic: %v", err)
	}
	if fb.closes.Load() != 1 {
		t.Errorf("backend closed %d times, want 1", fb.closes.Load())
	}
}

func TestSerialPoolClose(t *testing.T) {
	fb := &fakeBackend{}
	p := newFakePool(t, fb)
	ctx := context.Background()
	style := writeStyle(t, "style.json")

	if _, err := p.RenderTile(ctx, style, 0, 0, 0); err != nil {
		t.Fatalf("render: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if _, err := p.RenderTile(ctx, style, 0, 0, 0); !errors.Is(err, errors.ErrCodeChannelClosed) {
		t.Fatalf("render after Close: got %v, want CHANNEL_CLOSED", err)
	}

	// Close is idempotent and the backend is released exactly once.
	if err := p.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
	if fb.closes.Load() != 1 {
		t.Errorf("backend closed %d times, want 1", fb.closes.Load())
	}
}

func TestSerialPoolContextCancellation(t *testing.T) {
	fb := &fakeBackend{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	p := newFakePool(t, fb)
	style := writeStyle(t, "style.json")

	// Park the worker inside a render so the next submit cannot be
	// accepted.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := p.RenderTile(context.Background(), style, 0, 0, 0); err != nil {
			t.Errorf("parked render: %v", err)
		}
	}()
	<-fb.entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.RenderTile(ctx, style, 0, 0, 1); err != context.Canceled {
		t.Errorf("canceled render: got %v, want context.Canceled", err)
	}

	close(fb.release)
	wg.Wait()
	if err := p.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}

func TestSerialPoolRenderViewport(t *testing.T) {
	fb := &fakeBackend{}
	p := newFakePool(t, fb)
	style := writeStyle(t, "style.json")

	v := renderer.Viewport{Lat: 52.52, Lon: 13.405, Zoom: 11, Bearing: 30}
	img, err := p.RenderViewport(context.Background(), style, v)
	if err != nil {
		t.Fatalf("RenderViewport: %v", err)
	}
	if img.Width != 2 || img.Height != 1 {
		t.Errorf("unexpected image %dx%d", img.Width, img.Height)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if len(fb.viewports) != 1 || fb.viewports[0] != v {
		t.Errorf("backend saw viewports %v, want [%v]", fb.viewports, v)
	}
}

func TestSerialPoolConstructionFailure(t *testing.T) {
	boom := errors.New(errors.ErrCodeBackend, "no GPU today")
	_, err := newSerialPool("fake", func() (renderer.Backend, error) { return nil, boom })
	if !errors.Is(err, errors.ErrCodeBackend) {
		t.Fatalf("expected construction error, got %v", err)
	}

	// Unknown backend names fail through the public constructor too.
	_, err = NewSerialPool(renderer.Options{Backend: "bogus"})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for unknown backend, got %v", err)
	}
}

func TestGlobalPool(t *testing.T) {
	p1, err := Global()
	if err != nil {
		t.Fatalf("Global: %v", err)
	}
	p2, err := Global()
	if err != nil {
		t.Fatalf("Global (second): %v", err)
	}
	if p1 != p2 {
		t.Error("Global should return the same pool on every call")
	}

	// The package-level helper goes through the same pool.
	missing := filepath.Join(t.TempDir(), "missing.json")
	_, err = RenderTile(context.Background(), missing, 0, 0, 0)
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND through global pool, got %v", err)
	}
}
