package errors

import (
	"strings"
	"unicode"
)

// MaxZoom is the deepest tile zoom level the toolkit accepts. Web Mercator
// tooling rarely goes past 22; 30 keeps headroom without letting 2^zoom
// arithmetic overflow uint32 tile indices.
const MaxZoom = 30

// MaxDimension caps requested image width/height in pixels.
const MaxDimension = 8192

// ValidateZoom validates a tile zoom level.
func ValidateZoom(zoom uint8) error {
	if zoom > MaxZoom {
		return New(ErrCodeInvalidTile, "zoom %d out of range (max %d)", zoom, MaxZoom)
	}
	return nil
}

// ValidateTile validates a full z/x/y tile coordinate.
// It ensures x and y fall inside the 2^zoom by 2^zoom grid of the level.
func ValidateTile(zoom uint8, x, y uint32) error {
	if err := ValidateZoom(zoom); err != nil {
		return err
	}

	side := uint64(1) << zoom
	if uint64(x) >= side {
		return New(ErrCodeInvalidTile, "tile x %d out of range for zoom %d (max %d)", x, zoom, side-1)
	}
	if uint64(y) >= side {
		return New(ErrCodeInvalidTile, "tile y %d out of range for zoom %d (max %d)", y, zoom, side-1)
	}
	return nil
}

// ValidateDimensions validates requested image dimensions.
// Zero dimensions and anything past MaxDimension are rejected.
func ValidateDimensions(width, height uint32) error {
	if width == 0 || height == 0 {
		return New(ErrCodeInvalidInput, "image dimensions cannot be zero (got %dx%d)", width, height)
	}
	if width > MaxDimension || height > MaxDimension {
		return New(ErrCodeInvalidInput, "image dimensions %dx%d too large (max %d)", width, height, MaxDimension)
	}
	return nil
}

// ValidateStylePath validates a style path before it is handed to a backend.
// It rejects empty paths and paths containing control characters or null
// bytes, which could not name a real file on any supported platform.
func ValidateStylePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidStyle, "style path cannot be empty")
	}

	if strings.ContainsRune(path, '\x00') {
		return New(ErrCodeInvalidStyle, "style path contains a null byte")
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidStyle, "style path contains invalid control characters")
		}
	}

	return nil
}
