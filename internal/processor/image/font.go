package image

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/photomark/internal/processor"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const DefaultFont = "goregular"

var builtinFonts = map[string][]byte{
	"goregular": goregular.TTF,
	"gobold":    gobold.TTF,
	"goitalic":  goitalic.TTF,
	"gomono":    gomono.TTF,
}

// BuiltinFonts lists the font names that need no file on disk.
func BuiltinFonts() []string {
	return []string{"goregular", "gobold", "goitalic", "gomono"}
}

// parsed fonts are immutable and shared; faces are not and are created
// per draw.
var fontCache sync.Map

func loadFont(name string) (*opentype.Font, error) {
	if f, ok := fontCache.Load(name); ok {
		return f.(*opentype.Font), nil
	}

	data, ok := builtinFonts[strings.ToLower(name)]
	if !ok {
		var err error
		data, err = os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("%w: font %q: %v", processor.ErrInvalidConfig, name, err)
		}
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: font %q: %v", processor.ErrInvalidConfig, name, err)
	}

	actual, _ := fontCache.LoadOrStore(name, f)
	return actual.(*opentype.Font), nil
}

func newFace(name string, size float64) (font.Face, error) {
	f, err := loadFont(name)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: font %q size %g: %v", processor.ErrInvalidConfig, name, size, err)
	}
	return face, nil
}
