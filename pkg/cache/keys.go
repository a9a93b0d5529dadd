package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// TileKeyOpts pins the render parameters that change tile bytes. Two
// requests with equal coordinates but different options must never share
// a cache entry.
type TileKeyOpts struct {
	// Backend is the renderer backend name; different engines produce
	// different pixels for the same tile.
	Backend string

	// StyleHash is a content hash of the style document (see Hash).
	// Hashing the content rather than the path means editing a style in
	// place invalidates its tiles.
	StyleHash string

	Width      uint32
	Height     uint32
	PixelRatio float64
	Debug      bool
}

// TileKey derives the cache key for a rendered tile.
func TileKey(zoom uint8, x, y uint32, opts TileKeyOpts) string {
	return hashKey("tile", zoom, x, y, opts)
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...interface{}) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	// Full SHA-256 (64 hex chars) to prevent collisions.
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
