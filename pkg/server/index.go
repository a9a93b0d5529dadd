package server

import (
	"html/template"
	"net/http"

	"github.com/maplibre/maplibre-native-go/pkg/buildinfo"
)

// indexHTML is the viewer page served at the root: a full-screen map over
// this server's raster tiles, so a browser pointed at the listen address
// shows rendered output immediately.
const indexHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>maplibre-native-go tile server</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<script src="https://unpkg.com/maplibre-gl@4.7.1/dist/maplibre-gl.js"></script>
<link href="https://unpkg.com/maplibre-gl@4.7.1/dist/maplibre-gl.css" rel="stylesheet">
<style>
  html, body { margin: 0; height: 100%; }
  #map { position: absolute; inset: 0; }
  #info {
    position: absolute; bottom: 8px; left: 8px; z-index: 1;
    background: rgba(255, 255, 255, 0.85); border-radius: 4px;
    padding: 4px 8px; font: 12px/1.5 sans-serif;
  }
  #info code { font-size: 11px; }
</style>
</head>
<body>
<div id="map"></div>
<div id="info">
  <code>{{.Tiles}}</code><br>
  backend {{.Backend}} · {{.Version}}
</div>
<script>
  new maplibregl.Map({
    container: "map",
    style: {
      version: 8,
      sources: {
        tiles: {
          type: "raster",
          tiles: ["{{.Tiles}}"],
          tileSize: 256,
          maxzoom: 22
        }
      },
      layers: [{ id: "tiles", type: "raster", source: "tiles" }]
    },
    center: [0, 0],
    zoom: 1
  });
</script>
</body>
</html>
`

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := indexTmpl.Execute(w, map[string]string{
		"Tiles":   "/tiles/{z}/{x}/{y}.png",
		"Backend": s.keyOpts.Backend,
		"Version": buildinfo.Version,
	})
	if err != nil {
		s.log.Error("render index page", "err", err)
	}
}
