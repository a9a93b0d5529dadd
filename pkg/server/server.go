package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/maplibre/maplibre-native-go/pkg/cache"
	"github.com/maplibre/maplibre-native-go/pkg/errors"
	"github.com/maplibre/maplibre-native-go/pkg/pool"
	"github.com/maplibre/maplibre-native-go/pkg/renderer"
)

const (
	defaultAddr     = ":8080"
	shutdownTimeout = 10 * time.Second
)

// Config configures a tile server.
type Config struct {
	// Addr is the listen address. Default ":8080".
	Addr string

	// StylePath is the style every tile is rendered with. Required; the
	// file must exist when the server starts.
	StylePath string

	// TileTTL is how long cached tiles live. Zero means forever.
	TileTTL time.Duration

	// MaxAge is the Cache-Control max-age sent to clients, in seconds.
	MaxAge int

	// Options are the render settings of the pool this server fronts.
	// The server folds them into cache keys so differently configured
	// servers can share one cache.
	Options renderer.Options

	// CacheName labels the cache backend in logs and hooks.
	CacheName string

	// Logger receives request and cache logs. Defaults to log.Default().
	Logger *log.Logger
}

// Server handles tile HTTP traffic in front of a rendering pool.
type Server struct {
	addr      string
	style     string
	ttl       time.Duration
	maxAge    int
	keyOpts   cache.TileKeyOpts
	cacheName string

	renderer pool.TileRenderer
	tiles    cache.Cache
	log      *log.Logger
	router   chi.Router
}

// New builds a server over an existing pool and tile cache. The style
// file is read once here, both to fail fast on a bad path and to pin its
// content hash into cache keys.
func New(cfg Config, r pool.TileRenderer, tiles cache.Cache) (*Server, error) {
	if cfg.StylePath == "" {
		return nil, errors.New(errors.ErrCodeConfig, "tile server requires a style path")
	}
	styleData, err := os.ReadFile(cfg.StylePath)
	if err != nil {
		return nil, errors.New(errors.ErrCodeNotFound, "Path %s is not a file", cfg.StylePath)
	}

	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if tiles == nil {
		tiles = cache.NewNullCache()
	}
	opts := cfg.Options.Normalized()

	s := &Server{
		addr:   cfg.Addr,
		style:  cfg.StylePath,
		ttl:    cfg.TileTTL,
		maxAge: cfg.MaxAge,
		keyOpts: cache.TileKeyOpts{
			Backend:    opts.Backend,
			StyleHash:  cache.Hash(styleData),
			Width:      opts.Width,
			Height:     opts.Height,
			PixelRatio: opts.PixelRatio,
			Debug:      opts.Debug,
		},
		cacheName: cfg.CacheName,
		renderer:  r,
		tiles:     tiles,
		log:       cfg.Logger,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/tiles/{z}/{x}/{y}.png", s.handleTile)
	r.Get("/{z}/{x}/{y}", s.handleTile)
	return r
}

// Handler returns the HTTP handler, for embedding the tile routes into a
// larger mux or driving them from tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then shuts down gracefully. In-flight
// requests get shutdownTimeout to finish.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfig, err, "listen on %s", s.addr)
	}
	s.log.Info("tile server listening", "addr", ln.Addr().String(), "style", s.style, "cache", s.cacheName)

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return errors.Wrap(errors.ErrCodeInternal, err, "serve")
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "shutdown")
	}
	s.log.Info("tile server stopped")
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// requestLogger logs one line per request at debug level.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).Round(time.Millisecond),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
