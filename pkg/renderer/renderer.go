package renderer

// Backend is a rendering engine owning native resources.
//
// Implementations are NOT safe for concurrent use. All methods must be
// called from the goroutine (or process) that owns the backend; pkg/pool
// provides the serialization layers that make shared use safe.
type Backend interface {
	// LoadStyle parses and installs the style document at path. A failed
	// load leaves the previously installed style in place.
	LoadStyle(path string) error

	// RenderTile renders the tile at zoom/x/y using the installed style.
	RenderTile(zoom uint8, x, y uint32) (*Image, error)

	// RenderViewport renders an arbitrary camera position using the
	// installed style.
	RenderViewport(v Viewport) (*Image, error)

	// Close releases backend resources. The backend is unusable afterwards.
	Close() error
}

// Viewport describes a camera position for static rendering.
//
// Width, Height, and PixelRatio override the backend options when nonzero;
// zero means "use the backend's configured value".
type Viewport struct {
	Lat     float64
	Lon     float64
	Zoom    float64
	Bearing float64 // degrees clockwise from north
	Pitch   float64 // degrees from nadir

	Width      uint32
	Height     uint32
	PixelRatio float64
}
