package pool

import (
	"encoding/json"
	"io"
	"os"

	"github.com/maplibre/maplibre-native-go/pkg/errors"
	"github.com/maplibre/maplibre-native-go/pkg/renderer"
	"github.com/maplibre/maplibre-native-go/pkg/wire"
)

// WorkerFlag marks a process as a render worker. main() must check
// IsWorkerProcess before any other startup work; worker processes never
// parse regular CLI flags, print banners, or touch the terminal.
const WorkerFlag = "--maplibre-worker"

// workerOptionsEnv carries the parent pool's renderer options to its
// workers as JSON, so a worker renders with the same configuration the
// pool was built with.
const workerOptionsEnv = "MLN_WORKER_OPTIONS"

// IsWorkerProcess reports whether this process was started as a render
// worker.
func IsWorkerProcess() bool {
	for _, arg := range os.Args[1:] {
		if arg == WorkerFlag {
			return true
		}
	}
	return false
}

// WorkerConfig configures RunWorker. The zero value serves a real worker
// process: the real standard streams and options from the environment.
type WorkerConfig struct {
	Stdin  io.Reader
	Stdout io.Writer

	// Options overrides the environment-provided renderer options.
	// Tests use this; real workers leave it nil.
	Options *renderer.Options
}

// RunWorker runs the worker side of the process pool protocol until the
// request stream ends.
//
// Each request is answered with exactly one response carrying the same
// id. Per-request failures (missing style, render errors) are reported as
// failure responses and the loop keeps serving; only a broken stream ends
// it. A clean EOF on stdin is the orderly shutdown signal and returns nil.
func RunWorker(cfg WorkerConfig) error {
	stdin := cfg.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	var opts renderer.Options
	if cfg.Options != nil {
		opts = *cfg.Options
	} else if raw := os.Getenv(workerOptionsEnv); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			return errors.Wrap(errors.ErrCodeConfig, err, "parse %s", workerOptionsEnv)
		}
	}

	backend, err := renderer.Open(opts.Backend, opts)
	if err != nil {
		return err
	}
	defer backend.Close()

	var styles styleCache
	for {
		payload, err := wire.ReadFrame(stdin)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// A truncated or oversized frame leaves the stream position
			// unknowable; bail out rather than guess at the framing.
			return err
		}

		req, err := wire.DecodeRequest(payload)
		if err != nil {
			return err
		}

		resp := serveRequest(backend, &styles, req)
		out, err := wire.EncodeResponse(resp)
		if err != nil {
			// Pixel data inconsistent with its dimensions; report the
			// failure instead of wedging the stream.
			out, _ = wire.EncodeResponse(wire.Failure(req.ID, err.Error()))
		}
		if err := wire.WriteFrame(stdout, out); err != nil {
			return err
		}
	}
}

// serveRequest renders one request, mapping every failure into a failure
// response rather than a worker exit.
func serveRequest(backend renderer.Backend, styles *styleCache, req wire.Request) wire.Response {
	if err := styles.ensure(backend, req.Style); err != nil {
		return wire.Failure(req.ID, err.Error())
	}

	img, err := backend.RenderTile(req.Zoom, req.X, req.Y)
	if err != nil {
		return wire.Failure(req.ID, err.Error())
	}
	return wire.Success(req.ID, img.Width, img.Height, img.Pix)
}
