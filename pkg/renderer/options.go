package renderer

// Options configures a backend instance.
//
// The zero value is not useful on its own; Normalized fills every unset
// field with its default. Fields a given backend does not understand are
// ignored by it.
type Options struct {
	// Image dimensions in logical pixels. Default 512x512.
	Width  uint32
	Height uint32

	// PixelRatio scales logical pixels to physical pixels for high-DPI
	// output. A 512x512 render at ratio 2 produces a 1024x1024 image.
	// Default 1.0.
	PixelRatio float64

	// CachePath is the tile cache database file. Empty means no cache.
	// Pools that spawn multiple workers derive a unique path per worker
	// from this value; a cache database must never be shared.
	CachePath string

	// AssetRoot is the directory for local (asset://) resources.
	// Default is the current working directory.
	AssetRoot string

	// BaseURL is the tile server base. Default "https://demotiles.maplibre.org".
	BaseURL string

	// URISchemeAlias is the custom scheme resolved against BaseURL.
	// Default "maplibre".
	URISchemeAlias string

	// URL templates resolved against BaseURL.
	SourceTemplate  string // default "/tiles/{domain}.json"
	StyleTemplate   string // default "{path}.json"
	SpritesTemplate string // default "/{path}/sprite{scale}.{format}"
	GlyphsTemplate  string // default "/font/{fontstack}/{start}-{end}.pbf"
	TileTemplate    string // default "/{path}"

	// API key settings for providers that require one.
	APIKey              string
	APIKeyParameterName string
	RequiresAPIKey      bool

	// Backend selects a registered backend by name. Default "debug".
	Backend string

	// Debug turns on the diagnostic overlay (tile borders, coordinates)
	// for backends that support one.
	Debug bool
}

// Default option values.
const (
	DefaultTileSize       = 512
	DefaultBaseURL        = "https://demotiles.maplibre.org"
	DefaultURISchemeAlias = "maplibre"
	DefaultBackend        = "debug"
)

// Normalized returns a copy of o with defaults applied to unset fields.
func (o Options) Normalized() Options {
	if o.Width == 0 {
		o.Width = DefaultTileSize
	}
	if o.Height == 0 {
		o.Height = DefaultTileSize
	}
	if o.PixelRatio == 0 {
		o.PixelRatio = 1.0
	}
	if o.AssetRoot == "" {
		o.AssetRoot = "."
	}
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.URISchemeAlias == "" {
		o.URISchemeAlias = DefaultURISchemeAlias
	}
	if o.SourceTemplate == "" {
		o.SourceTemplate = "/tiles/{domain}.json"
	}
	if o.StyleTemplate == "" {
		o.StyleTemplate = "{path}.json"
	}
	if o.SpritesTemplate == "" {
		o.SpritesTemplate = "/{path}/sprite{scale}.{format}"
	}
	if o.GlyphsTemplate == "" {
		o.GlyphsTemplate = "/font/{fontstack}/{start}-{end}.pbf"
	}
	if o.TileTemplate == "" {
		o.TileTemplate = "/{path}"
	}
	if o.Backend == "" {
		o.Backend = DefaultBackend
	}
	return o
}
