package collage

import (
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const (
	captionFontSize = 16
	statsFontSize   = 18
	fontDPI         = 72
)

// dejavuPaths are the system font locations probed before falling back to the
// embedded Go fonts. Debian/Ubuntu and Fedora layouts are covered.
var dejavuPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu-sans-fonts/DejaVuSans.ttf",
}

var dejavuBoldPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/dejavu-sans-fonts/DejaVuSans-Bold.ttf",
}

var (
	fontOnce    sync.Once
	captionFace font.Face
	statsFace   font.Face
)

// faces resolves the annotation fonts once per process. Resolution can never
// fail: system DejaVu is preferred, the embedded Go fonts cover hosts without
// it, and basicfont is the last-resort face.
func faces() (caption, stats font.Face) {
	fontOnce.Do(func() {
		captionFace = resolveFace(dejavuPaths, goregular.TTF, captionFontSize)
		statsFace = resolveFace(dejavuBoldPaths, gobold.TTF, statsFontSize)
	})
	return captionFace, statsFace
}

func resolveFace(paths []string, embedded []byte, size float64) font.Face {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if face, err := newFace(data, size); err == nil {
			log.Debug().Str("path", path).Msg("Loaded annotation font")
			return face
		}
	}

	if face, err := newFace(embedded, size); err == nil {
		return face
	}

	log.Warn().Msg("Falling back to basicfont for collage annotations")
	return basicfont.Face7x13
}

func newFace(ttf []byte, size float64) (font.Face, error) {
	parsed, err := opentype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     fontDPI,
		Hinting: font.HintingFull,
	})
}
