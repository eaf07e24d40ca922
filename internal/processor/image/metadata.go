package image

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/abdul-hamid-achik/photomark/internal/processor"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// readSize reads only the header; the pixels are never decoded.
func readSize(path string) (processor.Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return processor.Size{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return processor.Size{}, fmt.Errorf("%w: %s: %v", processor.ErrCorruptedFile, path, err)
	}

	return processor.Size{Width: cfg.Width, Height: cfg.Height}, nil
}

// readOrientation returns the EXIF orientation label. Files that decode
// as images but carry no EXIF block report OrientationUnknown.
func readOrientation(path string) (processor.Orientation, error) {
	f, err := os.Open(path)
	if err != nil {
		return processor.OrientationUnknown, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if _, _, err := image.DecodeConfig(f); err != nil {
		return processor.OrientationUnknown, fmt.Errorf("%w: %s: %v", processor.ErrCorruptedFile, path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return processor.OrientationUnknown, fmt.Errorf("seek %s: %w", path, err)
	}

	return exifOrientation(f), nil
}

func exifOrientation(r io.Reader) processor.Orientation {
	x, err := exif.Decode(r)
	if err != nil || x == nil {
		return processor.OrientationUnknown
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil || tag == nil || tag.Count == 0 {
		return processor.OrientationUnknown
	}
	v, err := tag.Int(0)
	if err != nil {
		return processor.OrientationUnknown
	}
	return processor.OrientationFromEXIF(v)
}
