// Package server exposes a rendering pool as an HTTP tile server.
//
// Tiles are served in slippy-map layout:
//
//	GET /tiles/{z}/{x}/{y}.png
//	GET /{z}/{x}/{y}
//
// plus a JSON index at / and a liveness probe at /healthz. Rendered tiles
// are stored in a pkg/cache backend keyed by coordinates, style content,
// and render settings; cache failures degrade to rendering, never to
// request failures.
//
// The server does not own its pool or cache. Callers construct those,
// hand them to New, and close them after Run returns; that keeps one pool
// shareable between a server and other frontends.
package server
