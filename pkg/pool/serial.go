package pool

import (
	"context"
	"sync"
	"time"

	"github.com/maplibre/maplibre-native-go/pkg/errors"
	"github.com/maplibre/maplibre-native-go/pkg/observability"
	"github.com/maplibre/maplibre-native-go/pkg/renderer"
)

// serialOp selects what a serial job renders.
type serialOp int

const (
	opTile serialOp = iota
	opViewport
)

type serialJob struct {
	op       serialOp
	style    string
	zoom     uint8
	x, y     uint32
	viewport renderer.Viewport

	// done has capacity 1 so the worker's send never blocks, even when
	// the caller has already given up and gone away.
	done chan serialResult
}

type serialResult struct {
	img *renderer.Image
	err error
}

// SerialPool owns one backend on a dedicated goroutine and funnels all
// rendering through it. Any number of goroutines may call it concurrently;
// the backend only ever sees one request at a time, in arrival order.
type SerialPool struct {
	backendName string

	requests chan serialJob
	closing  chan struct{} // closed by Close; tells the worker to stop
	stopped  chan struct{} // closed when the worker goroutine has exited

	closeOnce sync.Once
}

// NewSerialPool starts the worker goroutine and constructs the backend on
// it; the backend value never crosses goroutines. A construction failure
// is returned here and no goroutine is left behind.
func NewSerialPool(opts renderer.Options) (*SerialPool, error) {
	opts = opts.Normalized()
	return newSerialPool(opts.Backend, func() (renderer.Backend, error) {
		return renderer.Open(opts.Backend, opts)
	})
}

func newSerialPool(name string, open func() (renderer.Backend, error)) (*SerialPool, error) {
	p := &SerialPool{
		backendName: name,
		requests:    make(chan serialJob),
		closing:     make(chan struct{}),
		stopped:     make(chan struct{}),
	}

	ready := make(chan error, 1)
	go p.run(open, ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return p, nil
}

// run is the worker goroutine. It owns the backend from construction to
// Close and is the only code that touches it.
func (p *SerialPool) run(open func() (renderer.Backend, error), ready chan<- error) {
	defer close(p.stopped)

	backend, err := open()
	if err != nil {
		ready <- err
		return
	}
	ready <- nil
	defer backend.Close()

	var styles styleCache
	for {
		select {
		case <-p.closing:
			return
		case job := <-p.requests:
			if !p.serve(backend, &styles, job) {
				return
			}
		}
	}
}

// serve handles one job and reports whether the worker should keep going.
// A panicking backend fails the in-flight request and stops the worker;
// the pool is permanently degraded after that, like any dead owner.
func (p *SerialPool) serve(backend renderer.Backend, styles *styleCache, job serialJob) (ok bool) {
	ok = true
	defer func() {
		if r := recover(); r != nil {
			ok = false
			job.done <- serialResult{err: errors.New(errors.ErrCodeChannelClosed, "render worker panicked: %v", r)}
		}
	}()

	start := time.Now()
	observability.Render().OnRenderStart(context.Background(), p.backendName, job.zoom, job.x, job.y)

	var res serialResult
	if res.err = styles.ensure(backend, job.style); res.err == nil {
		switch job.op {
		case opTile:
			res.img, res.err = backend.RenderTile(job.zoom, job.x, job.y)
		case opViewport:
			res.img, res.err = backend.RenderViewport(job.viewport)
		}
	}

	observability.Render().OnRenderComplete(context.Background(), p.backendName, time.Since(start), res.err)
	job.done <- res
	return ok
}

// RenderTile renders the tile at zoom/x/y with the style at stylePath.
// Safe for concurrent use.
func (p *SerialPool) RenderTile(ctx context.Context, stylePath string, zoom uint8, x, y uint32) (*renderer.Image, error) {
	return p.submit(ctx, serialJob{op: opTile, style: stylePath, zoom: zoom, x: x, y: y})
}

// RenderViewport renders a static viewport with the style at stylePath.
// Safe for concurrent use.
func (p *SerialPool) RenderViewport(ctx context.Context, stylePath string, v renderer.Viewport) (*renderer.Image, error) {
	return p.submit(ctx, serialJob{op: opViewport, style: stylePath, viewport: v})
}

func (p *SerialPool) submit(ctx context.Context, job serialJob) (*renderer.Image, error) {
	if err := errors.ValidateStylePath(job.style); err != nil {
		return nil, err
	}
	job.done = make(chan serialResult, 1)

	select {
	case p.requests <- job:
	case <-p.stopped:
		return nil, errors.New(errors.ErrCodeChannelClosed, "render worker is gone")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-job.done:
		return res.img, res.err
	case <-p.stopped:
		// The worker may have delivered the result just before exiting.
		select {
		case res := <-job.done:
			return res.img, res.err
		default:
			return nil, errors.New(errors.ErrCodeChannelClosed, "render worker is gone")
		}
	case <-ctx.Done():
		// The job may still be rendered; its result is dropped on the
		// buffered channel.
		return nil, ctx.Err()
	}
}

// Close stops the worker goroutine and releases the backend. Requests
// issued after Close fail with a CHANNEL_CLOSED error. Close waits for an
// in-flight job to finish.
func (p *SerialPool) Close() error {
	p.closeOnce.Do(func() {
		close(p.closing)
	})
	<-p.stopped
	return nil
}

// =============================================================================
// Global pool
// =============================================================================

var (
	globalOnce sync.Once
	globalPool *SerialPool
	globalErr  error
)

// Global returns the process-wide serial pool, creating it with default
// options on first use. The pool lives for the remainder of the process
// and is never closed; a construction failure is sticky and returned to
// every caller.
func Global() (*SerialPool, error) {
	globalOnce.Do(func() {
		globalPool, globalErr = NewSerialPool(renderer.Options{})
	})
	return globalPool, globalErr
}

// RenderTile renders a tile through the process-wide pool.
func RenderTile(ctx context.Context, stylePath string, zoom uint8, x, y uint32) (*renderer.Image, error) {
	p, err := Global()
	if err != nil {
		return nil, err
	}
	return p.RenderTile(ctx, stylePath, zoom, x, y)
}
