package renderer

import (
	"sync"

	"github.com/flopp/go-findfont"
)

var (
	fontOnce sync.Once
	fontPath string
)

// debugFontPath locates a usable system TTF for overlay text. The lookup
// runs once per process; an empty result means no font was found and the
// overlay is drawn without text.
func debugFontPath() string {
	fontOnce.Do(func() {
		for _, name := range []string{"DejaVuSans.ttf", "Arial.ttf", "FreeSans.ttf", "LiberationSans-Regular.ttf"} {
			if p, err := findfont.Find(name); err == nil {
				fontPath = p
				return
			}
		}
	})
	return fontPath
}
