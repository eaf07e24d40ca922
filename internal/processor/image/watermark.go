package image

import (
	"image"
	"image/color"
	"math"

	"github.com/abdul-hamid-achik/photomark/internal/processor"
	"github.com/fogleman/gg"
)

// drawText renders text onto a copy of img. The anchor is computed from
// img's current bounds, so earlier resize and rotate operations are
// already reflected in the placement.
func drawText(img image.Image, text string, x, y float64, gravity processor.Gravity, style textStyle) (image.Image, error) {
	face, err := newFace(style.font, style.fontSize)
	if err != nil {
		return nil, err
	}
	defer func() { _ = face.Close() }()

	bounds := img.Bounds()
	dc := gg.NewContextForImage(img)
	dc.SetFontFace(face)

	px, py, ax, ay := calculateTextPosition(bounds.Dx(), bounds.Dy(), gravity, x, y)

	if style.strokeWidth > 0 && style.stroke != nil && !isTransparent(style.stroke) {
		dc.SetColor(style.stroke)
		for _, d := range strokeOffsets(style.strokeWidth) {
			dc.DrawStringAnchored(text, px+d.X, py+d.Y, ax, ay)
		}
	}

	dc.SetColor(style.fill)
	dc.DrawStringAnchored(text, px, py, ax, ay)

	return dc.Image(), nil
}

// calculateTextPosition maps a gravity and offset to an anchor point and
// gg anchor fractions. Offsets grow inward from the gravity edge: East
// gravities measure x from the right, South gravities measure y from
// the bottom, Center offsets from the middle.
func calculateTextPosition(width, height int, gravity processor.Gravity, x, y float64) (px, py, ax, ay float64) {
	w := float64(width)
	h := float64(height)

	switch gravity {
	case processor.GravityNorthWest, processor.GravityWest, processor.GravitySouthWest:
		px, ax = x, 0
	case processor.GravityNorth, processor.GravityCenter, processor.GravitySouth:
		px, ax = w/2+x, 0.5
	default:
		px, ax = w-x, 1
	}

	switch gravity {
	case processor.GravityNorthWest, processor.GravityNorth, processor.GravityNorthEast:
		py, ay = y, 1
	case processor.GravityWest, processor.GravityCenter, processor.GravityEast:
		py, ay = h/2+y, 0.5
	default:
		py, ay = h-y, 0
	}

	return px, py, ax, ay
}

// strokeOffsets returns the copies that make up an outline of the given
// width. The stroke is centred on the glyph edge, so only half of it lies
// outside the fill; one pixel is the thinnest visible outline.
func strokeOffsets(width float64) []gg.Point {
	if width <= 0 {
		return nil
	}
	radius := math.Max(width/2, 1)
	r := int(math.Ceil(radius))
	var pts []gg.Point
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if float64(dx*dx+dy*dy) <= radius*radius {
				pts = append(pts, gg.Point{X: float64(dx), Y: float64(dy)})
			}
		}
	}
	return pts
}

func isTransparent(c color.Color) bool {
	_, _, _, a := c.RGBA()
	return a == 0
}
