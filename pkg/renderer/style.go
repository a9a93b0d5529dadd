package renderer

import (
	"encoding/json"
	"os"

	"github.com/maplibre/maplibre-native-go/pkg/errors"
)

// StyleVersion is the only style specification version the toolkit accepts.
const StyleVersion = 8

// Style is a minimal model of a MapLibre style document. It carries the
// fields the toolkit itself needs (identification, initial camera,
// sources, layers); everything else in the document is ignored rather
// than rejected.
type Style struct {
	Version int                    `json:"version"`
	Name    string                 `json:"name,omitempty"`
	Center  []float64              `json:"center,omitempty"`
	Zoom    float64                `json:"zoom,omitempty"`
	Sources map[string]StyleSource `json:"sources,omitempty"`
	Layers  []StyleLayer           `json:"layers"`
}

// StyleSource is one entry of a style's sources map.
type StyleSource struct {
	Type  string   `json:"type"`
	URL   string   `json:"url,omitempty"`
	Tiles []string `json:"tiles,omitempty"`
}

// StyleLayer is one entry of a style's layer list.
type StyleLayer struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Source string         `json:"source,omitempty"`
	Paint  map[string]any `json:"paint,omitempty"`
}

// ParseStyle parses and validates a style document.
func ParseStyle(data []byte) (*Style, error) {
	var s Style
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidStyle, err, "parse style document")
	}

	if s.Version != StyleVersion {
		return nil, errors.New(errors.ErrCodeInvalidStyle, "style version %d not supported (want %d)", s.Version, StyleVersion)
	}
	for i, layer := range s.Layers {
		if layer.ID == "" {
			return nil, errors.New(errors.ErrCodeInvalidStyle, "layer %d has no id", i)
		}
		if layer.Type == "" {
			return nil, errors.New(errors.ErrCodeInvalidStyle, "layer %q has no type", layer.ID)
		}
	}
	return &s, nil
}

// LoadStyleFile reads and parses the style document at path.
func LoadStyleFile(path string) (*Style, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidStyle, err, "read style %s", path)
	}
	return ParseStyle(data)
}
