package cli

import (
	"context"
	"fmt"
	"math"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/maplibre/maplibre-native-go/pkg/errors"
	"github.com/maplibre/maplibre-native-go/pkg/pool"
	"github.com/maplibre/maplibre-native-go/pkg/renderer"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	style  string // style file path
	output string // output PNG path; derived from the coordinate when empty

	zoom float64 // tile zoom level, or camera zoom in viewport mode
	x    uint32  // tile column
	y    uint32  // tile row
	lat  float64 // camera latitude (viewport mode)
	lon  float64 // camera longitude (viewport mode)

	width     uint32  // image width in logical pixels
	height    uint32  // image height in logical pixels
	ratio     float64 // pixel ratio for high-DPI output
	cachePath string  // backend tile cache database
	assetRoot string  // directory for asset:// resources
	backend   string  // rendering backend name
	apiKey    string  // tile provider API key
}

// newRenderCmd creates the render command for one-shot tile and viewport
// renders. Giving --lat or --lon switches from tile mode (integer z/x/y)
// to viewport mode (camera position, fractional zoom).
func newRenderCmd() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a single tile or viewport to a PNG file",
		Long: `Render one image using a MapLibre style.

Tile mode renders the slippy-map tile z/x/y:

  mln render --style style.json -z 2 -x 1 -y 1

Viewport mode renders an arbitrary camera position and is selected by
passing --lat or --lon:

  mln render --style style.json --lat 52.52 --lon 13.40 -z 10.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath(cmd))
			if err != nil {
				return err
			}
			applyRenderConfig(cmd, cfg, &opts)
			if opts.style == "" {
				return errors.New(errors.ErrCodeConfig, "a style is required (--style, MLN_STYLE, or config file)")
			}

			viewport := cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon")
			return runRender(cmd.Context(), &opts, viewport)
		},
	}

	cmd.Flags().StringVarP(&opts.style, "style", "s", "", "style file to render with")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output PNG file")
	cmd.Flags().Float64VarP(&opts.zoom, "zoom", "z", 0, "zoom level")
	cmd.Flags().Uint32VarP(&opts.x, "x", "x", 0, "tile column")
	cmd.Flags().Uint32VarP(&opts.y, "y", "y", 0, "tile row")
	cmd.Flags().Float64Var(&opts.lat, "lat", 0, "camera latitude (enables viewport mode)")
	cmd.Flags().Float64Var(&opts.lon, "lon", 0, "camera longitude (enables viewport mode)")
	cmd.Flags().Uint32Var(&opts.width, "width", 0, "image width in pixels (default 512)")
	cmd.Flags().Uint32Var(&opts.height, "height", 0, "image height in pixels (default 512)")
	cmd.Flags().Float64VarP(&opts.ratio, "pixel-ratio", "r", 0, "pixel ratio for high-DPI output (default 1.0)")
	cmd.Flags().StringVarP(&opts.cachePath, "cache", "c", "", "backend tile cache database file")
	cmd.Flags().StringVarP(&opts.assetRoot, "asset-root", "a", "", "directory for asset:// resources")
	cmd.Flags().StringVarP(&opts.backend, "backend", "b", "", "rendering backend (default debug)")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "tile provider API key")

	return cmd
}

// applyRenderConfig fills flags the user did not set from the config file
// and environment. Flags always win.
func applyRenderConfig(cmd *cobra.Command, cfg *config, opts *renderOpts) {
	base := cfg.rendererOptions()
	flags := cmd.Flags()

	if !flags.Changed("style") && cfg.Style != "" {
		opts.style = cfg.Style
	}
	if !flags.Changed("backend") {
		opts.backend = base.Backend
	}
	if !flags.Changed("width") {
		opts.width = base.Width
	}
	if !flags.Changed("height") {
		opts.height = base.Height
	}
	if !flags.Changed("pixel-ratio") {
		opts.ratio = base.PixelRatio
	}
	if !flags.Changed("cache") {
		opts.cachePath = base.CachePath
	}
	if !flags.Changed("asset-root") {
		opts.assetRoot = base.AssetRoot
	}
	if !flags.Changed("api-key") {
		opts.apiKey = base.APIKey
	}
}

// rendererOptions converts the resolved flags to renderer.Options.
func (o *renderOpts) rendererOptions() renderer.Options {
	return renderer.Options{
		Backend:    o.backend,
		Width:      o.width,
		Height:     o.height,
		PixelRatio: o.ratio,
		CachePath:  o.cachePath,
		AssetRoot:  o.assetRoot,
		APIKey:     o.apiKey,
	}
}

// tileZoom converts the shared zoom flag to a tile zoom level, rejecting
// fractional or out-of-range values.
func tileZoom(zoom float64) (uint8, error) {
	if zoom != math.Trunc(zoom) || zoom < 0 || zoom > errors.MaxZoom {
		return 0, errors.New(errors.ErrCodeInvalidTile, "tile zoom %v must be an integer between 0 and %d", zoom, errors.MaxZoom)
	}
	return uint8(zoom), nil
}

// outputPath derives the output file for a render when --output is unset.
func (o *renderOpts) outputPath(viewport bool) string {
	if o.output != "" {
		return o.output
	}
	if viewport {
		return fmt.Sprintf("viewport_%.4f_%.4f_z%g.png", o.lat, o.lon, o.zoom)
	}
	return fmt.Sprintf("tile_%g_%d_%d.png", o.zoom, o.x, o.y)
}

// runRender renders one image through an in-process serial pool and writes
// it to a PNG file.
func runRender(ctx context.Context, opts *renderOpts, viewport bool) error {
	logger := loggerFromContext(ctx)

	var zoom uint8
	if !viewport {
		z, err := tileZoom(opts.zoom)
		if err != nil {
			return err
		}
		if err := errors.ValidateTile(z, opts.x, opts.y); err != nil {
			return err
		}
		zoom = z
	}

	p, err := pool.NewSerialPool(opts.rendererOptions())
	if err != nil {
		return err
	}
	defer p.Close()

	var label string
	if viewport {
		label = fmt.Sprintf("%.4f, %.4f @ z%g", opts.lat, opts.lon, opts.zoom)
	} else {
		label = tileRef(zoom, opts.x, opts.y)
	}

	// The spinner shares stderr with debug logging.
	var spin *spinner
	prog := newProgress(logger)
	if logger.GetLevel() > charmlog.DebugLevel {
		spin = newSpinner(ctx, "Rendering "+label)
		spin.start()
	} else {
		logger.Infof("Rendering %s", label)
	}

	var img *renderer.Image
	if viewport {
		img, err = p.RenderViewport(ctx, opts.style, renderer.Viewport{
			Lat:  opts.lat,
			Lon:  opts.lon,
			Zoom: opts.zoom,
		})
	} else {
		img, err = p.RenderTile(ctx, opts.style, zoom, opts.x, opts.y)
	}
	if err != nil {
		if spin != nil {
			spin.stopError("Render failed")
		}
		return err
	}

	path := opts.outputPath(viewport)
	if err := writePNG(path, img); err != nil {
		if spin != nil {
			spin.stopError("Render failed")
		}
		return err
	}

	if spin != nil {
		spin.stopSuccess("Rendered %s (%dx%d)", label, img.Width, img.Height)
	} else {
		prog.done(fmt.Sprintf("Rendered %s (%dx%d)", label, img.Width, img.Height))
	}
	printFile(path)
	return nil
}

// writePNG encodes img to a new file at path.
func writePNG(path string, img *renderer.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", path)
	}
	if err := img.EncodePNG(f); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "encode %s", path)
	}
	return f.Close()
}
