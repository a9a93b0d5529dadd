package renderer

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/maplibre/maplibre-native-go/pkg/errors"
)

func TestNewImage(t *testing.T) {
	tests := []struct {
		name          string
		width, height uint32
		pixLen        int
		wantErr       bool
	}{
		{"valid 1x1", 1, 1, 4, false},
		{"valid 512x512", 512, 512, 512 * 512 * 4, false},
		{"empty", 0, 0, 0, false},
		{"short data", 2, 2, 15, true},
		{"long data", 2, 2, 17, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := NewImage(tt.width, tt.height, make([]byte, tt.pixLen))
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewImage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeInvalidInput) {
					t.Errorf("NewImage() code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidInput)
				}
				return
			}
			if img.Width != tt.width || img.Height != tt.height {
				t.Errorf("NewImage() dims = %dx%d, want %dx%d", img.Width, img.Height, tt.width, tt.height)
			}
		})
	}
}

func TestImageNRGBASharesBuffer(t *testing.T) {
	img, err := NewImage(2, 2, make([]byte, 16))
	if err != nil {
		t.Fatalf("NewImage() error: %v", err)
	}

	view := img.NRGBA()
	img.Pix[0] = 0xFF
	if view.Pix[0] != 0xFF {
		t.Error("NRGBA() should share the pixel buffer, not copy it")
	}
	if got := view.Bounds(); got != image.Rect(0, 0, 2, 2) {
		t.Errorf("NRGBA() bounds = %v, want (0,0)-(2,2)", got)
	}
}

func TestImageEncodePNG(t *testing.T) {
	pix := make([]byte, 4*3*4)
	for i := 3; i < len(pix); i += 4 {
		pix[i] = 0xFF // opaque
	}
	img, err := NewImage(4, 3, pix)
	if err != nil {
		t.Fatalf("NewImage() error: %v", err)
	}

	var buf bytes.Buffer
	if err := img.EncodePNG(&buf); err != nil {
		t.Fatalf("EncodePNG() error: %v", err)
	}

	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode() error: %v", err)
	}
	if got := decoded.Bounds(); got.Dx() != 4 || got.Dy() != 3 {
		t.Errorf("decoded bounds = %v, want 4x3", got)
	}
}

func TestFromNRGBA(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for i := range src.Pix {
		src.Pix[i] = byte(i)
	}

	img := FromNRGBA(src)
	if img.Width != 3 || img.Height != 2 {
		t.Fatalf("FromNRGBA() dims = %dx%d, want 3x2", img.Width, img.Height)
	}
	if !bytes.Equal(img.Pix, src.Pix) {
		t.Error("FromNRGBA() pixel mismatch for tight stride")
	}

	// A view with a wide stride must still copy rows contiguously.
	wide := src.SubImage(image.Rect(1, 0, 3, 2)).(*image.NRGBA)
	sub := FromNRGBA(wide)
	if sub.Width != 2 || sub.Height != 2 {
		t.Fatalf("FromNRGBA(sub) dims = %dx%d, want 2x2", sub.Width, sub.Height)
	}
	if len(sub.Pix) != 2*2*4 {
		t.Fatalf("FromNRGBA(sub) pix = %d bytes, want 16", len(sub.Pix))
	}
}
