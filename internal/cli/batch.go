package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	charmlog "github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/maplibre/maplibre-native-go/pkg/errors"
	"github.com/maplibre/maplibre-native-go/pkg/pool"
	"github.com/maplibre/maplibre-native-go/pkg/renderer"
)

// Pool kinds selectable with --pool.
const (
	poolSerial  = "serial"  // one in-process backend, requests serialized
	poolProcess = "process" // worker subprocesses, renders in parallel
)

// tilePool is what the batch and serve commands need from either pool kind.
type tilePool interface {
	pool.TileRenderer
	Close() error
}

// newPool builds the requested pool kind.
func newPool(kind string, workers int, opts renderer.Options) (tilePool, error) {
	switch kind {
	case "", poolSerial:
		return pool.NewSerialPool(opts)
	case poolProcess:
		return pool.NewProcessPool(workers, opts)
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown pool %q (available: %s, %s)", kind, poolSerial, poolProcess)
	}
}

// batchOpts holds the command-line flags for the batch command.
type batchOpts struct {
	style    string // style file path
	outDir   string // output directory
	template string // per-tile path template under outDir

	zoom                   uint8  // zoom level to render
	minX, maxX, minY, maxY uint32 // tile rectangle; defaults to the full level

	poolKind string // serial or process
	workers  int    // process-pool size
	jobs     int    // concurrent renders; 0 picks a default per pool kind

	backend   string // rendering backend name
	apiKey    string // tile provider API key
	cachePath string // backend tile cache database
	plain     bool   // disable the progress UI
}

// batchResult reports one finished tile to the progress display.
type batchResult struct {
	zoom uint8
	x, y uint32
	err  error
}

// newBatchCmd creates the batch command for rendering a rectangle of tiles.
func newBatchCmd() *cobra.Command {
	var opts batchOpts

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Render a rectangle of tiles to a directory",
		Long: `Render every tile of a zoom level, or a rectangle of it, to PNG files.

  mln batch --style style.json -z 4 -o tiles/

renders all 256 tiles of zoom 4 into tiles/4/{x}/{y}.png. Use --min-x,
--max-x, --min-y, --max-y to restrict the rectangle, and --pool process
--workers N to spread renders over worker subprocesses. Failed tiles are
reported and skipped; the command exits nonzero if any tile failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath(cmd))
			if err != nil {
				return err
			}
			applyBatchConfig(cmd, cfg, &opts)
			if opts.style == "" {
				return errors.New(errors.ErrCodeConfig, "a style is required (--style, MLN_STYLE, or config file)")
			}
			if err := errors.ValidateZoom(opts.zoom); err != nil {
				return err
			}
			fillRangeDefaults(cmd, &opts)
			if err := validateBatch(&opts); err != nil {
				return err
			}
			return runBatch(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.style, "style", "s", "", "style file to render with")
	cmd.Flags().StringVarP(&opts.outDir, "output", "o", "tiles", "output directory")
	cmd.Flags().StringVar(&opts.template, "template", "{z}/{x}/{y}.png", "per-tile path template")
	cmd.Flags().Uint8VarP(&opts.zoom, "zoom", "z", 0, "zoom level to render")
	cmd.Flags().Uint32Var(&opts.minX, "min-x", 0, "first tile column (default 0)")
	cmd.Flags().Uint32Var(&opts.maxX, "max-x", 0, "last tile column (default level edge)")
	cmd.Flags().Uint32Var(&opts.minY, "min-y", 0, "first tile row (default 0)")
	cmd.Flags().Uint32Var(&opts.maxY, "max-y", 0, "last tile row (default level edge)")
	cmd.Flags().StringVar(&opts.poolKind, "pool", poolSerial, "rendering pool: serial or process")
	cmd.Flags().IntVar(&opts.workers, "workers", 4, "worker subprocesses for --pool process")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "concurrent renders (default matches the pool)")
	cmd.Flags().StringVarP(&opts.backend, "backend", "b", "", "rendering backend (default debug)")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "tile provider API key")
	cmd.Flags().StringVarP(&opts.cachePath, "cache", "c", "", "backend tile cache database file")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "plain log output instead of the progress UI")

	return cmd
}

// applyBatchConfig fills flags the user did not set from the config file
// and environment. A configured worker count also selects the process pool
// unless --pool was given explicitly.
func applyBatchConfig(cmd *cobra.Command, cfg *config, opts *batchOpts) {
	base := cfg.rendererOptions()
	flags := cmd.Flags()

	if !flags.Changed("style") && cfg.Style != "" {
		opts.style = cfg.Style
	}
	if !flags.Changed("backend") {
		opts.backend = base.Backend
	}
	if !flags.Changed("api-key") {
		opts.apiKey = base.APIKey
	}
	if !flags.Changed("cache") {
		opts.cachePath = base.CachePath
	}
	if !flags.Changed("workers") && cfg.Pool.Workers > 0 {
		opts.workers = cfg.Pool.Workers
		if !flags.Changed("pool") {
			opts.poolKind = poolProcess
		}
	}
}

// fillRangeDefaults expands unset max-x/max-y to the level edge.
func fillRangeDefaults(cmd *cobra.Command, opts *batchOpts) {
	edge := uint32(1)<<opts.zoom - 1
	if !cmd.Flags().Changed("max-x") {
		opts.maxX = edge
	}
	if !cmd.Flags().Changed("max-y") {
		opts.maxY = edge
	}
}

func validateBatch(opts *batchOpts) error {
	if err := errors.ValidateTile(opts.zoom, opts.minX, opts.minY); err != nil {
		return err
	}
	if err := errors.ValidateTile(opts.zoom, opts.maxX, opts.maxY); err != nil {
		return err
	}
	if opts.minX > opts.maxX || opts.minY > opts.maxY {
		return errors.New(errors.ErrCodeInvalidTile, "empty tile range %d..%d x %d..%d", opts.minX, opts.maxX, opts.minY, opts.maxY)
	}
	if !strings.Contains(opts.template, "{x}") || !strings.Contains(opts.template, "{y}") {
		return errors.New(errors.ErrCodeConfig, "template %q must contain {x} and {y}", opts.template)
	}
	if opts.jobs < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "jobs must not be negative")
	}
	return nil
}

// total returns the number of tiles in the rectangle.
func (o *batchOpts) total() int {
	return int(uint64(o.maxX-o.minX+1) * uint64(o.maxY-o.minY+1))
}

// concurrency returns the effective number of in-flight renders. A serial
// pool processes one request at a time, so extra jobs would only queue.
func (o *batchOpts) concurrency() int {
	if o.jobs > 0 {
		return o.jobs
	}
	if o.poolKind == poolProcess {
		return o.workers
	}
	return 1
}

func (o *batchOpts) rendererOptions() renderer.Options {
	return renderer.Options{
		Backend:   o.backend,
		APIKey:    o.apiKey,
		CachePath: o.cachePath,
	}
}

// runBatch renders the tile rectangle, reporting progress either through
// the bubbletea UI or plain log lines.
func runBatch(ctx context.Context, opts *batchOpts) error {
	logger := loggerFromContext(ctx)
	total := opts.total()

	p, err := newPool(opts.poolKind, opts.workers, opts.rendererOptions())
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Debugf("Rendering %d tiles at zoom %d with %d concurrent renders", total, opts.zoom, opts.concurrency())

	results := make(chan batchResult, opts.concurrency())
	engineErr := make(chan error, 1)
	start := time.Now()
	go func() {
		engineErr <- renderRange(ctx, p, opts, results)
		close(results)
	}()

	useUI := !opts.plain &&
		isatty.IsTerminal(os.Stdout.Fd()) &&
		logger.GetLevel() > charmlog.DebugLevel

	var done, failed int
	if useUI {
		final, uiErr := tea.NewProgram(newBatchModel(total, results, cancel)).Run()
		if uiErr != nil {
			cancel()
			for range results {
				// Drain so the engine can finish.
			}
			<-engineErr
			return uiErr
		}
		m := final.(batchModel)
		done, failed = m.done, m.failed
	} else {
		for r := range results {
			done++
			if r.err != nil {
				failed++
				logger.Error("Tile failed", "tile", tileRef(r.zoom, r.x, r.y), "err", r.err)
				continue
			}
			if done%64 == 0 || done == total {
				logger.Infof("Rendered %d/%d tiles", done, total)
			}
		}
	}
	err = <-engineErr
	elapsed := time.Since(start)

	if err != nil {
		return err
	}

	if failed > 0 {
		printWarning("Rendered zoom %d with failures", opts.zoom)
	} else {
		printSuccess("Rendered zoom %d", opts.zoom)
	}
	printRenderStats(done-failed, failed, elapsed)
	printFile(opts.outDir)
	if failed > 0 {
		return errors.New(errors.ErrCodeBackend, "%d of %d tiles failed", failed, total)
	}
	printNextStep("Serve tiles over HTTP", fmt.Sprintf("mln serve --style %s", opts.style))
	return nil
}

// renderRange walks the rectangle and renders each tile on the group.
// Render failures are reported as results and do not stop the batch; only
// context cancellation does.
func renderRange(ctx context.Context, p tilePool, opts *batchOpts, results chan<- batchResult) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency())

	for y := opts.minY; y <= opts.maxY; y++ {
		for x := opts.minX; x <= opts.maxX; x++ {
			if gctx.Err() != nil {
				return g.Wait()
			}
			g.Go(func() error {
				img, err := p.RenderTile(gctx, opts.style, opts.zoom, x, y)
				if err == nil {
					err = writeTile(opts.outDir, opts.template, opts.zoom, x, y, img)
				}
				if gctx.Err() != nil {
					return gctx.Err()
				}
				select {
				case results <- batchResult{zoom: opts.zoom, x: x, y: y, err: err}:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
	}
	return g.Wait()
}

// writeTile expands the path template and writes one tile under dir.
func writeTile(dir, template string, zoom uint8, x, y uint32, img *renderer.Image) error {
	rel := strings.NewReplacer(
		"{z}", fmt.Sprintf("%d", zoom),
		"{x}", fmt.Sprintf("%d", x),
		"{y}", fmt.Sprintf("%d", y),
	).Replace(template)
	path := filepath.Join(dir, rel)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", filepath.Dir(path))
	}
	return writePNG(path, img)
}
