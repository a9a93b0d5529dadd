package renderer

import (
	"fmt"
	"hash/fnv"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/maplibre/maplibre-native-go/pkg/errors"
)

func init() {
	Register("debug", newDebugBackend)
}

// debugBackend renders deterministic placeholder tiles in pure Go. It
// parses real style documents and honors the load/render lifecycle of a
// full engine, so pools, protocol, and server code can be exercised end
// to end without a native renderer.
type debugBackend struct {
	opts   Options
	style  *Style
	closed bool
}

func newDebugBackend(opts Options) (Backend, error) {
	if err := errors.ValidateDimensions(opts.Width, opts.Height); err != nil {
		return nil, err
	}
	return &debugBackend{opts: opts}, nil
}

func (b *debugBackend) LoadStyle(path string) error {
	if b.closed {
		return errors.New(errors.ErrCodeBackend, "backend is closed")
	}

	style, err := LoadStyleFile(path)
	if err != nil {
		return err
	}
	b.style = style
	return nil
}

func (b *debugBackend) RenderTile(zoom uint8, x, y uint32) (*Image, error) {
	if b.closed {
		return nil, errors.New(errors.ErrCodeBackend, "backend is closed")
	}
	if b.style == nil {
		return nil, errors.New(errors.ErrCodeBackend, "style not specified")
	}

	lat, lon := TileCenter(zoom, x, y)
	label := fmt.Sprintf("%d/%d/%d", zoom, x, y)
	return b.render(lat, lon, float64(zoom), label, b.opts.Width, b.opts.Height, b.opts.PixelRatio)
}

func (b *debugBackend) RenderViewport(v Viewport) (*Image, error) {
	if b.closed {
		return nil, errors.New(errors.ErrCodeBackend, "backend is closed")
	}
	if b.style == nil {
		return nil, errors.New(errors.ErrCodeBackend, "style not specified")
	}

	width, height, ratio := v.Width, v.Height, v.PixelRatio
	if width == 0 {
		width = b.opts.Width
	}
	if height == 0 {
		height = b.opts.Height
	}
	if ratio == 0 {
		ratio = b.opts.PixelRatio
	}
	if err := errors.ValidateDimensions(width, height); err != nil {
		return nil, err
	}

	label := fmt.Sprintf("%.4f %.4f @%.1f", v.Lat, v.Lon, v.Zoom)
	return b.render(v.Lat, v.Lon, v.Zoom, label, width, height, ratio)
}

func (b *debugBackend) Close() error {
	b.closed = true
	b.style = nil
	return nil
}

// render draws the placeholder image. Output depends only on the style
// name, the camera, the label, and the dimensions, so renders are
// reproducible byte for byte.
func (b *debugBackend) render(lat, lon, zoom float64, label string, width, height uint32, ratio float64) (*Image, error) {
	r1, g1, b1, r2, g2, b2 := styleColors(b.style.Name)

	dc := gg.NewContext(int(width), int(height))
	dc.SetRGB255(r1, g1, b1)
	dc.Clear()

	// Checkerboard shifted by the camera so adjacent tiles differ.
	const square = 32
	shift := int(math.Abs(math.Floor(lon*100))+math.Abs(math.Floor(lat*100))) % 2
	dc.SetRGB255(r2, g2, b2)
	for y := 0; y*square < int(height); y++ {
		for x := 0; x*square < int(width); x++ {
			if (x+y+shift)%2 == 0 {
				continue
			}
			dc.DrawRectangle(float64(x*square), float64(y*square), square, square)
			dc.Fill()
		}
	}

	// Center crosshair scaled by zoom.
	cx, cy := float64(width)/2, float64(height)/2
	arm := 8 + zoom*2
	dc.SetRGB255(255-r1, 255-g1, 255-b1)
	dc.SetLineWidth(2)
	dc.DrawLine(cx-arm, cy, cx+arm, cy)
	dc.DrawLine(cx, cy-arm, cx, cy+arm)
	dc.Stroke()

	if b.opts.Debug {
		dc.SetLineWidth(4)
		dc.DrawRectangle(0, 0, float64(width), float64(height))
		dc.Stroke()

		if fp := debugFontPath(); fp != "" {
			if err := dc.LoadFontFace(fp, 16); err == nil {
				dc.DrawStringAnchored(label, cx, cy-arm-16, 0.5, 0.5)
				dc.DrawStringAnchored(b.style.Name, cx, cy+arm+16, 0.5, 0.5)
			}
		}
	}

	// Clone always goes through imaging so the pixel layout is identical
	// on the scaled and unscaled paths.
	out := imaging.Clone(dc.Image())
	if ratio != 1.0 {
		pw := int(math.Round(float64(width) * ratio))
		ph := int(math.Round(float64(height) * ratio))
		if pw < 1 || ph < 1 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "pixel ratio %g collapses %dx%d to zero pixels", ratio, width, height)
		}
		out = imaging.Resize(out, pw, ph, imaging.NearestNeighbor)
	}

	return FromNRGBA(out), nil
}

// styleColors derives the two checkerboard colors from the style name.
func styleColors(name string) (r1, g1, b1, r2, g2, b2 int) {
	h := fnv.New32a()
	h.Write([]byte(name))
	sum := h.Sum32()

	r1 = int(80 + sum&0x7F)
	g1 = int(80 + (sum>>8)&0x7F)
	b1 = int(80 + (sum>>16)&0x7F)
	r2 = r1 - 40
	g2 = g1 - 40
	b2 = b1 - 40
	return r1, g1, b1, r2, g2, b2
}
