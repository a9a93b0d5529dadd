// Package pkg provides the core libraries for rendering MapLibre map tiles.
//
// # Overview
//
// mln wraps a non-thread-safe native map renderer in safe concurrent
// machinery: rendering pools that serialize or parallelize access, a binary
// wire protocol for talking to render worker processes, tile caches, and an
// HTTP tile server. The pkg directory is organized into these areas:
//
//  1. [renderer] - Backends, styles, viewports, and image encoding
//  2. [pool] - Serial and multi-process rendering pools
//  3. [wire] - Binary request/response protocol for worker processes
//  4. [cache] - Tile cache backends (file, Redis, MongoDB)
//  5. [server] - HTTP tile server
//  6. [errors] - Error codes and input validation
//  7. [observability] - Hook points for logging and metrics
//
// # Architecture
//
// The typical data flow for one tile:
//
//	HTTP request or CLI invocation
//	         ↓
//	    [server] or cmd/mln (validate coordinates)
//	         ↓
//	    [cache] lookup (hit: done)
//	         ↓
//	    [pool] SerialPool (in-process) or ProcessPool ([wire] to workers)
//	         ↓
//	    [renderer] backend renders, PNG encoding
//
// # Quick Start
//
// Render one tile through a serial pool:
//
//	import (
//	    "context"
//	    "os"
//
//	    "github.com/maplibre/maplibre-native-go/pkg/pool"
//	    "github.com/maplibre/maplibre-native-go/pkg/renderer"
//	)
//
//	p, _ := pool.NewSerialPool(renderer.Options{Width: 512, Height: 512})
//	defer p.Close()
//
//	img, _ := p.RenderTile(context.Background(), "style.json", 4, 3, 2)
//
//	f, _ := os.Create("tile.png")
//	defer f.Close()
//	_ = img.EncodePNG(f)
//
// # Main Packages
//
// [renderer] - The rendering core. A Backend loads styles and renders tiles
// and viewports; backends are explicitly not safe for concurrent use, which
// is why everything goes through a pool. Options configures dimensions,
// pixel ratio, resource URLs, and API keys. The built-in debug backend
// draws labeled placeholder tiles without any native dependency.
//
// [pool] - Concurrency safety over backends. SerialPool owns one backend on
// a dedicated goroutine and serializes all requests onto it. ProcessPool
// spawns worker subprocesses of the current executable and distributes
// tiles round-robin over them, correlating responses by request id. Both
// reload styles only when the style path changes.
//
// [wire] - The length-prefixed little-endian binary protocol between a
// ProcessPool and its workers. Requests carry style path and tile
// coordinates; responses carry raw pixels or an error code and message.
//
// [cache] - Tile caches keyed by everything that affects pixels: style
// content hash, backend, dimensions, and coordinates. File, Redis, and
// MongoDB backends share one interface; the null cache disables caching.
//
// [server] - chi-based HTTP server exposing tiles at /tiles/{z}/{x}/{y}.png
// with cache integration, a health endpoint, and a map index page.
//
// [errors] - Coded errors (INVALID_TILE, BACKEND_ERROR, ...) that survive
// process boundaries, plus the shared coordinate and dimension validators.
//
// [observability] - Typed hook interfaces the CLI points at its logger;
// embedders can point them at metrics instead.
//
// [buildinfo] - Version, commit, and build date, set via ldflags.
//
// # Common Workflows
//
// Parallel rendering across worker processes:
//
//	p, _ := pool.NewProcessPool(4, renderer.Options{})
//	defer p.Close()
//	img, err := p.RenderTile(ctx, "style.json", 12, 2200, 1343)
//
// Serving tiles with a Redis cache:
//
//	tiles, _ := cache.NewRedisCache(ctx, "redis://localhost:6379")
//	srv, _ := server.New(server.Config{StylePath: "style.json"}, p, tiles)
//	_ = srv.Run(ctx)
//
// Rendering an arbitrary viewport instead of a tile:
//
//	img, err := p.RenderViewport(ctx, "style.json", renderer.Viewport{
//	    Lat: 52.52, Lon: 13.405, Zoom: 10.5,
//	})
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/pool/...     # Specific package
//
// The debug backend makes every package testable without native renderer
// libraries; process pool tests re-exec the test binary as workers.
//
// [renderer]: https://pkg.go.dev/github.com/maplibre/maplibre-native-go/pkg/renderer
// [pool]: https://pkg.go.dev/github.com/maplibre/maplibre-native-go/pkg/pool
// [wire]: https://pkg.go.dev/github.com/maplibre/maplibre-native-go/pkg/wire
// [cache]: https://pkg.go.dev/github.com/maplibre/maplibre-native-go/pkg/cache
// [server]: https://pkg.go.dev/github.com/maplibre/maplibre-native-go/pkg/server
// [errors]: https://pkg.go.dev/github.com/maplibre/maplibre-native-go/pkg/errors
// [observability]: https://pkg.go.dev/github.com/maplibre/maplibre-native-go/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/maplibre/maplibre-native-go/pkg/buildinfo
package pkg
