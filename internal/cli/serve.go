package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/maplibre/maplibre-native-go/pkg/cache"
	"github.com/maplibre/maplibre-native-go/pkg/errors"
	"github.com/maplibre/maplibre-native-go/pkg/renderer"
	"github.com/maplibre/maplibre-native-go/pkg/server"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr  string
	style string

	poolKind string
	workers  int

	backend   string
	apiKey    string
	width     uint32
	height    uint32
	ratio     float64
	assetRoot string
	cachePath string

	maxAge  int
	tileTTL time.Duration

	cacheBackend    string
	cacheDir        string
	redisURL        string
	mongoURI        string
	mongoDB         string
	mongoCollection string
	keyPrefix       string
}

// newServeCmd creates the serve command that runs the HTTP tile server.
func newServeCmd() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rendered tiles over HTTP",
		Long: `Serve rendered map tiles at /tiles/{z}/{x}/{y}.png.

  mln serve --style style.json --addr :8080

Tiles are rendered on demand and cached; --cache-backend selects where
(file, redis, mongo, or null to disable). Use --pool process --workers N
to render on worker subprocesses instead of in-process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath(cmd))
			if err != nil {
				return err
			}
			applyServeConfig(cmd, cfg, &opts)
			if opts.style == "" {
				return errors.New(errors.ErrCodeConfig, "a style is required (--style, MLN_STYLE, or config file)")
			}
			return runServe(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVarP(&opts.style, "style", "s", "", "style file to render with")
	cmd.Flags().StringVar(&opts.poolKind, "pool", poolSerial, "rendering pool: serial or process")
	cmd.Flags().IntVar(&opts.workers, "workers", 4, "worker subprocesses for --pool process")
	cmd.Flags().StringVarP(&opts.backend, "backend", "b", "", "rendering backend (default debug)")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "tile provider API key")
	cmd.Flags().Uint32Var(&opts.width, "width", 0, "tile width in pixels (default 512)")
	cmd.Flags().Uint32Var(&opts.height, "height", 0, "tile height in pixels (default 512)")
	cmd.Flags().Float64VarP(&opts.ratio, "pixel-ratio", "r", 0, "device pixel ratio (default 1)")
	cmd.Flags().StringVarP(&opts.assetRoot, "asset-root", "a", "", "directory for file:// style resources")
	cmd.Flags().StringVarP(&opts.cachePath, "cache", "c", "", "backend tile cache database file")
	cmd.Flags().IntVar(&opts.maxAge, "max-age", 3600, "Cache-Control max-age sent to clients, in seconds")
	cmd.Flags().DurationVar(&opts.tileTTL, "tile-ttl", 24*time.Hour, "how long cached tiles live (0 = forever)")
	cmd.Flags().StringVar(&opts.cacheBackend, "cache-backend", "file", "tile cache backend: null, file, redis, or mongo")
	cmd.Flags().StringVar(&opts.cacheDir, "cache-dir", "", "directory for the file cache (default ~/.cache/mln)")
	cmd.Flags().StringVar(&opts.redisURL, "redis-url", "redis://localhost:6379", "redis connection URL")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo-uri", "mongodb://localhost:27017", "mongodb connection URI")
	cmd.Flags().StringVar(&opts.mongoDB, "mongo-db", "", "mongodb database (default maplibre)")
	cmd.Flags().StringVar(&opts.mongoCollection, "mongo-collection", "", "mongodb collection (default tiles)")
	cmd.Flags().StringVar(&opts.keyPrefix, "key-prefix", "", "prefix for shared cache keys")

	return cmd
}

// applyServeConfig fills flags the user did not set from the config file
// and environment.
func applyServeConfig(cmd *cobra.Command, cfg *config, opts *serveOpts) {
	base := cfg.rendererOptions()
	cc := cfg.cacheConfig()
	flags := cmd.Flags()

	if !flags.Changed("style") && cfg.Style != "" {
		opts.style = cfg.Style
	}
	if !flags.Changed("addr") && cfg.Server.Addr != "" {
		opts.addr = cfg.Server.Addr
	}
	if !flags.Changed("max-age") && cfg.Server.MaxAge > 0 {
		opts.maxAge = cfg.Server.MaxAge
	}
	if !flags.Changed("tile-ttl") && cfg.Server.TileTTL.Duration > 0 {
		opts.tileTTL = cfg.Server.TileTTL.Duration
	}
	if !flags.Changed("workers") && cfg.Pool.Workers > 0 {
		opts.workers = cfg.Pool.Workers
		if !flags.Changed("pool") {
			opts.poolKind = poolProcess
		}
	}

	if !flags.Changed("backend") {
		opts.backend = base.Backend
	}
	if !flags.Changed("api-key") {
		opts.apiKey = base.APIKey
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
	if !flags.Changed("asset-root") {
		opts.assetRoot = base.AssetRoot
	}
	if !flags.Changed("cache") {
		opts.cachePath = base.CachePath
	}

	if !flags.Changed("cache-backend") && cc.Backend != "" {
		opts.cacheBackend = cc.Backend
	}
	if !flags.Changed("cache-dir") {
		opts.cacheDir = cc.Dir
	}
	if !flags.Changed("redis-url") && cc.RedisURL != "" {
		opts.redisURL = cc.RedisURL
	}
	if !flags.Changed("mongo-uri") && cc.MongoURI != "" {
		opts.mongoURI = cc.MongoURI
	}
	if !flags.Changed("mongo-db") {
		opts.mongoDB = cc.MongoDatabase
	}
	if !flags.Changed("mongo-collection") {
		opts.mongoCollection = cc.MongoCollection
	}
	if !flags.Changed("key-prefix") {
		opts.keyPrefix = cc.KeyPrefix
	}
}

func (o *serveOpts) rendererOptions() renderer.Options {
	return renderer.Options{
		Backend:    o.backend,
		APIKey:     o.apiKey,
		Width:      o.width,
		Height:     o.height,
		PixelRatio: o.ratio,
		AssetRoot:  o.assetRoot,
		CachePath:  o.cachePath,
	}
}

// cacheConfig builds the tile cache configuration, resolving the default
// file cache directory when none was given.
func (o *serveOpts) cacheConfig() (cache.Config, error) {
	cfg := cache.Config{
		Backend:         o.cacheBackend,
		Dir:             o.cacheDir,
		RedisURL:        o.redisURL,
		MongoURI:        o.mongoURI,
		MongoDatabase:   o.mongoDB,
		MongoCollection: o.mongoCollection,
		KeyPrefix:       o.keyPrefix,
		TTL:             o.tileTTL,
	}
	if cfg.Backend == "file" && cfg.Dir == "" {
		dir, err := cacheDir()
		if err != nil {
			return cache.Config{}, errors.Wrap(errors.ErrCodeConfig, err, "resolve cache directory")
		}
		cfg.Dir = dir
	}
	return cfg, nil
}

// runServe brings up the pool, cache, and HTTP server, then blocks until
// ctx is cancelled.
func runServe(ctx context.Context, opts *serveOpts) error {
	logger := loggerFromContext(ctx)

	p, err := newPool(opts.poolKind, opts.workers, opts.rendererOptions())
	if err != nil {
		return err
	}
	defer p.Close()

	ccfg, err := opts.cacheConfig()
	if err != nil {
		return err
	}
	tiles, err := cache.Open(ctx, ccfg)
	if err != nil {
		return err
	}
	defer tiles.Close()

	srv, err := server.New(server.Config{
		Addr:      opts.addr,
		StylePath: opts.style,
		TileTTL:   opts.tileTTL,
		MaxAge:    opts.maxAge,
		Options:   opts.rendererOptions(),
		CacheName: opts.cacheBackend,
		Logger:    logger,
	}, p, tiles)
	if err != nil {
		return err
	}

	printSuccess("Tile server ready")
	printKeyValue("Tiles", StyleLink.Render(serveURL(opts.addr)+"/tiles/{z}/{x}/{y}.png"))
	printKeyValue("Style", opts.style)
	printKeyValue("Pool", poolLabel(opts.poolKind, opts.workers))
	printKeyValue("Cache", opts.cacheBackend)
	printNewline()

	return srv.Run(ctx)
}

// serveURL turns a listen address into something clickable.
func serveURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return fmt.Sprintf("http://localhost%s", addr)
	}
	return fmt.Sprintf("http://%s", addr)
}

func poolLabel(kind string, workers int) string {
	if kind == poolProcess {
		return fmt.Sprintf("%s (%d workers)", kind, workers)
	}
	if kind == "" {
		return poolSerial
	}
	return kind
}
