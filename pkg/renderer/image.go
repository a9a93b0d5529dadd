package renderer

import (
	"image"
	"image/png"
	"io"

	"github.com/maplibre/maplibre-native-go/pkg/errors"
)

// Image is a rendered raster. Pixels are RGBA, row-major, four bytes per
// pixel, so len(Pix) is always Width*Height*4.
type Image struct {
	Width  uint32
	Height uint32
	Pix    []byte
}

// NewImage builds an Image from raw pixel data, validating that the data
// length matches the dimensions.
func NewImage(width, height uint32, pix []byte) (*Image, error) {
	want := uint64(width) * uint64(height) * 4
	if uint64(len(pix)) != want {
		return nil, errors.New(errors.ErrCodeInvalidInput, "image data %d bytes, want %d for %dx%d", len(pix), want, width, height)
	}
	return &Image{Width: width, Height: height, Pix: pix}, nil
}

// NRGBA returns a stdlib view of the image sharing the pixel buffer.
func (img *Image) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    img.Pix,
		Stride: int(img.Width) * 4,
		Rect:   image.Rect(0, 0, int(img.Width), int(img.Height)),
	}
}

// EncodePNG writes the image to w as PNG.
func (img *Image) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, img.NRGBA()); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode %dx%d png", img.Width, img.Height)
	}
	return nil
}

// FromNRGBA copies a stdlib image into an Image.
func FromNRGBA(src *image.NRGBA) *Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := &Image{Width: uint32(w), Height: uint32(h), Pix: make([]byte, w*h*4)}
	rowLen := w * 4
	for y := 0; y < h; y++ {
		srcRow := src.Pix[y*src.Stride : y*src.Stride+rowLen]
		copy(out.Pix[y*rowLen:], srcRow)
	}
	return out
}
