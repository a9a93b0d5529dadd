// Package renderer defines the rendering backend abstraction used by the
// rest of the toolkit.
//
// A Backend turns a loaded style plus a tile coordinate or camera position
// into raster images. Backends are NOT safe for concurrent use; callers
// that need concurrency wrap a backend in one of the pools from
// pkg/pool, which are the only supported ways to share one.
//
// Backends register themselves by name in a process-wide registry
// (see Register and Open). The built-in "debug" backend renders
// deterministic placeholder tiles with no native engine behind it, which
// keeps the toolkit usable for development, testing, and protocol work on
// machines without a rendering engine.
//
// # Options
//
// Options mirrors the configuration surface of a full map engine: image
// size, pixel ratio, tile cache database path, asset root, tile server
// base URL, URL templates, and API key settings. Backends consume what
// they understand and ignore the rest; the debug backend only looks at
// size, pixel ratio, and the debug overlay switch.
package renderer
