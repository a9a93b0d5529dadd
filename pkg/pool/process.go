package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/maplibre/maplibre-native-go/pkg/errors"
	"github.com/maplibre/maplibre-native-go/pkg/observability"
	"github.com/maplibre/maplibre-native-go/pkg/renderer"
	"github.com/maplibre/maplibre-native-go/pkg/wire"
)

// workerShutdownTimeout is how long Close waits for a worker to exit after
// its stdin is closed before killing it.
const workerShutdownTimeout = 5 * time.Second

// TileRenderer is the rendering surface shared by both pool kinds.
type TileRenderer interface {
	RenderTile(ctx context.Context, stylePath string, zoom uint8, x, y uint32) (*renderer.Image, error)
}

var (
	_ TileRenderer = (*SerialPool)(nil)
	_ TileRenderer = (*ProcessPool)(nil)
)

// ProcessPool fans tile renders out to worker subprocesses. Each worker is
// this same executable started in worker mode, owns one backend, and
// serves requests serially; the pool multiplexes callers onto workers
// round robin and correlates responses by request id, so up to N renders
// proceed in parallel.
type ProcessPool struct {
	workers []*worker

	// nextID and nextWorker advance independently; request ids say nothing
	// about which worker handled them.
	nextID     atomic.Uint64
	nextWorker atomic.Uint64

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// worker is the parent-side handle for one subprocess.
type worker struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	// writeMu serializes request frames onto stdin so concurrent callers
	// cannot interleave partial frames. Each worker has its own lock;
	// writes to different workers proceed in parallel.
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[uint64]chan wire.Response // nil once the reader has exited

	done    chan struct{} // closed when the reader goroutine exits
	exitErr error         // why the response stream ended; set before done closes
}

// NewProcessPool spawns n workers. Construction is atomic: if any spawn
// fails, the workers already started are torn down and the error is
// returned.
func NewProcessPool(n int, opts renderer.Options) (*ProcessPool, error) {
	if n <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "worker count %d, need at least 1", n)
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeWorkerSpawn, err, "locate current executable")
	}

	opts = opts.Normalized()
	p := &ProcessPool{workers: make([]*worker, 0, n)}
	for i := 0; i < n; i++ {
		w, err := spawnWorker(exe, workerOptions(opts, i))
		if err != nil {
			p.kill()
			return nil, errors.Wrap(errors.ErrCodeWorkerSpawn, err, "spawn worker %d of %d", i+1, n)
		}
		p.workers = append(p.workers, w)
	}
	return p, nil
}

// workerOptions derives per-worker options. Workers must never share a
// cache database; concurrent writers corrupt it, so each worker gets a
// unique path next to the configured one.
func workerOptions(opts renderer.Options, i int) renderer.Options {
	if opts.CachePath == "" {
		return opts
	}
	dir, file := filepath.Split(opts.CachePath)
	ext := filepath.Ext(file)
	stem := strings.TrimSuffix(file, ext)
	opts.CachePath = filepath.Join(dir, fmt.Sprintf("%s-%d-%s%s", stem, i, uuid.NewString()[:8], ext))
	return opts
}

func spawnWorker(exe string, opts renderer.Options) (*worker, error) {
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(exe, WorkerFlag)
	cmd.Env = append(os.Environ(), workerOptionsEnv+"="+string(optsJSON))
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	w := &worker{
		cmd:     cmd,
		stdin:   stdin,
		pending: make(map[uint64]chan wire.Response),
		done:    make(chan struct{}),
	}
	observability.Pool().OnWorkerSpawn(context.Background(), w.pid())

	go w.readResponses(stdout)
	return w, nil
}

func (w *worker) pid() int {
	if w.cmd.Process == nil {
		return 0
	}
	return w.cmd.Process.Pid
}

// readResponses pumps the worker's stdout, completing pending requests by
// correlation id. It exits when the stream ends or turns to garbage;
// callers still waiting then observe done and fail with CHANNEL_CLOSED.
func (w *worker) readResponses(stdout io.Reader) {
	var cause error
	for {
		payload, err := wire.ReadFrame(stdout)
		if err != nil {
			if err != io.EOF {
				cause = err
			}
			break
		}

		resp, err := wire.DecodeResponse(payload)
		if err != nil {
			// Framing is intact but the payload is garbage; responses can
			// no longer be trusted to correlate.
			cause = err
			break
		}

		w.pendingMu.Lock()
		ch, ok := w.pending[resp.ID]
		if ok {
			delete(w.pending, resp.ID)
		}
		w.pendingMu.Unlock()

		if !ok {
			// The caller gave up on this id before the response arrived.
			continue
		}
		ch <- resp
	}

	w.exitErr = cause

	// Dropping the table unblocks nothing by itself, but it makes every
	// later register fail fast and releases the entries of callers that
	// already returned.
	w.pendingMu.Lock()
	w.pending = nil
	w.pendingMu.Unlock()

	close(w.done)
	observability.Pool().OnWorkerExit(context.Background(), w.pid(), cause)
}

// register adds a pending entry for id. It fails once the worker is gone.
func (w *worker) register(id uint64) (chan wire.Response, error) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if w.pending == nil {
		return nil, errors.New(errors.ErrCodeChannelClosed, "worker %d is gone", w.pid())
	}
	ch := make(chan wire.Response, 1)
	w.pending[id] = ch
	return ch, nil
}

func (w *worker) deregister(id uint64) {
	w.pendingMu.Lock()
	if w.pending != nil {
		delete(w.pending, id)
	}
	w.pendingMu.Unlock()
}

// RenderTile renders the tile at zoom/x/y with the style at stylePath on
// one of the pool's workers. Safe for concurrent use; concurrent calls
// spread across workers round robin.
func (p *ProcessPool) RenderTile(ctx context.Context, stylePath string, zoom uint8, x, y uint32) (*renderer.Image, error) {
	if err := errors.ValidateStylePath(stylePath); err != nil {
		return nil, err
	}
	if p.closed.Load() || len(p.workers) == 0 {
		return nil, errors.New(errors.ErrCodeChannelClosed, "process pool is closed")
	}

	// Check the path here while it can still produce a typed error; the
	// worker re-checks before rendering in case the file vanishes in
	// between.
	if info, err := os.Stat(stylePath); err != nil || !info.Mode().IsRegular() {
		return nil, errors.New(errors.ErrCodeNotFound, "Path %s is not a file", stylePath)
	}

	id := p.nextID.Add(1)
	w := p.workers[(p.nextWorker.Add(1)-1)%uint64(len(p.workers))]

	ch, err := w.register(id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	observability.Pool().OnRequestDispatched(ctx, id, w.pid())

	payload := wire.EncodeRequest(wire.Request{ID: id, Style: stylePath, Zoom: zoom, X: x, Y: y})
	w.writeMu.Lock()
	err = wire.WriteFrame(w.stdin, payload)
	w.writeMu.Unlock()
	if err != nil {
		w.deregister(id)
		err = errors.Wrap(errors.ErrCodeWorkerIO, err, "send request %d to worker %d", id, w.pid())
		observability.Pool().OnRequestCompleted(ctx, id, time.Since(start), err)
		return nil, err
	}

	select {
	case resp := <-ch:
		img, err := responseImage(resp)
		observability.Pool().OnRequestCompleted(ctx, id, time.Since(start), err)
		return img, err

	case <-w.done:
		w.deregister(id)
		// The response may have been delivered right before the reader
		// exited; prefer it if so.
		select {
		case resp := <-ch:
			img, err := responseImage(resp)
			observability.Pool().OnRequestCompleted(ctx, id, time.Since(start), err)
			return img, err
		default:
		}
		err := errors.New(errors.ErrCodeChannelClosed, "worker %d exited before replying to request %d", w.pid(), id)
		observability.Pool().OnRequestCompleted(ctx, id, time.Since(start), err)
		return nil, err

	case <-ctx.Done():
		// Abandon the request; the reader drops the response if it ever
		// arrives.
		w.deregister(id)
		observability.Pool().OnRequestCompleted(ctx, id, time.Since(start), ctx.Err())
		return nil, ctx.Err()
	}
}

// responseImage converts a wire response into the caller-facing result.
func responseImage(resp wire.Response) (*renderer.Image, error) {
	if resp.Tag == wire.TagFailure {
		return nil, errors.New(errors.ErrCodeBackend, "%s", resp.Message)
	}
	return renderer.NewImage(resp.Width, resp.Height, resp.Pix)
}

// Workers returns the number of workers the pool was built with.
func (p *ProcessPool) Workers() int {
	return len(p.workers)
}

// Close shuts the pool down: every worker's stdin is closed so it exits on
// EOF, stragglers are killed after a timeout, and all shutdown errors are
// aggregated. The pool is unusable afterwards.
func (p *ProcessPool) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		var errs error
		for _, w := range p.workers {
			errs = multierr.Append(errs, w.shutdown())
		}
		p.closeErr = errs
	})
	return p.closeErr
}

func (w *worker) shutdown() error {
	closeErr := w.stdin.Close()

	select {
	case <-w.done:
	case <-time.After(workerShutdownTimeout):
		if err := w.cmd.Process.Kill(); err != nil {
			closeErr = multierr.Append(closeErr, err)
		}
		<-w.done
	}

	// Reap after the reader has drained stdout.
	if err := w.cmd.Wait(); err != nil {
		return multierr.Append(closeErr, err)
	}
	return closeErr
}

// kill tears down already-started workers after a partial construction
// failure. Errors are ignored; the pool never existed as far as the
// caller is concerned.
func (p *ProcessPool) kill() {
	for _, w := range p.workers {
		_ = w.stdin.Close()
		if w.cmd.Process != nil {
			_ = w.cmd.Process.Kill()
		}
		_ = w.cmd.Wait()
	}
	p.workers = nil
}
