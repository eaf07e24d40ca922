package image

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/photomark/internal/processor"
	"golang.org/x/image/colornames"
)

// parseColor understands #rgb, #rgba, #rrggbb, #rrggbbaa, rgb(), rgba(),
// SVG color names, "transparent" and "none".
func parseColor(spec string) (color.Color, error) {
	s := strings.ToLower(strings.TrimSpace(spec))
	switch {
	case s == "":
		return nil, fmt.Errorf("%w: empty color", processor.ErrInvalidConfig)
	case s == "transparent" || s == "none":
		return color.Transparent, nil
	case strings.HasPrefix(s, "#"):
		return parseHexColor(s[1:], spec)
	case strings.HasPrefix(s, "rgba(") || strings.HasPrefix(s, "rgb("):
		return parseFuncColor(s, spec)
	}

	if c, ok := colornames.Map[s]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: unknown color %q", processor.ErrInvalidConfig, spec)
}

func parseHexColor(hex, spec string) (color.Color, error) {
	if len(hex) == 3 || len(hex) == 4 {
		var b strings.Builder
		for _, r := range hex {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		hex = b.String()
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return nil, fmt.Errorf("%w: bad hex color %q", processor.ErrInvalidConfig, spec)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: bad hex color %q", processor.ErrInvalidConfig, spec)
	}
	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

func parseFuncColor(s, spec string) (color.Color, error) {
	open := strings.IndexByte(s, '(')
	if !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("%w: bad color %q", processor.ErrInvalidConfig, spec)
	}
	parts := strings.Split(s[open+1:len(s)-1], ",")
	hasAlpha := strings.HasPrefix(s, "rgba(")
	if (hasAlpha && len(parts) != 4) || (!hasAlpha && len(parts) != 3) {
		return nil, fmt.Errorf("%w: bad color %q", processor.ErrInvalidConfig, spec)
	}

	var rgb [3]uint8
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || n < 0 || n > 255 {
			return nil, fmt.Errorf("%w: bad color %q", processor.ErrInvalidConfig, spec)
		}
		rgb[i] = uint8(n)
	}

	alpha := uint8(255)
	if hasAlpha {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || a < 0 || a > 1 {
			return nil, fmt.Errorf("%w: bad color %q", processor.ErrInvalidConfig, spec)
		}
		alpha = uint8(a*255 + 0.5)
	}

	return color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: alpha}, nil
}
