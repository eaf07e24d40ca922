package image

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
)

// forceResize scales to exactly width x height, ignoring aspect ratio.
func forceResize(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	return imaging.Resize(img, width, height, imaging.Lanczos)
}

// rotateClockwise turns img by degrees clockwise. imaging rotates
// counter-clockwise, so the angle is mirrored.
func rotateClockwise(img image.Image, degrees float64, bg color.Color) image.Image {
	ccw := math.Mod(360-math.Mod(degrees, 360), 360)
	if ccw == 0 {
		return img
	}
	return imaging.Rotate(img, ccw, bg)
}

func encodeImage(img image.Image, format imaging.Format, quality int) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	var err error

	switch format {
	case imaging.JPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case imaging.PNG:
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	default:
		err = imaging.Encode(&buf, img, format)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", format, err)
	}

	return &buf, nil
}
