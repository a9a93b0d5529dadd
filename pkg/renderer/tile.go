package renderer

import "math"

// TileCenter returns the WGS84 coordinate at the center of the slippy-map
// tile zoom/x/y. Backends point the camera here before rendering a tile.
func TileCenter(zoom uint8, x, y uint32) (lat, lon float64) {
	zz := math.Pow(2, float64(zoom))
	lon = (float64(x)+0.5)/zz*360 - 180
	lat = math.Atan(math.Sinh(math.Pi*(1-2*(float64(y)+0.5)/zz))) * 180 / math.Pi
	return lat, lon
}
