package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"

	"github.com/abdul-hamid-achik/photomark/internal/processor"
)

type Info struct {
	Path        string                `json:"path"`
	Width       int                   `json:"width"`
	Height      int                   `json:"height"`
	Format      string                `json:"format"`
	Orientation processor.Orientation `json:"orientation"`
	HasEXIF     bool                  `json:"has_exif"`
	Bytes       int64                 `json:"bytes"`
}

// Inspect reads everything the header and EXIF block can tell without
// decoding pixels.
func (e *Engine) Inspect(ctx context.Context, path string) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", processor.ErrCorruptedFile, path, err)
	}

	return &Info{
		Path:        path,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Format:      format,
		Orientation: exifOrientation(bytes.NewReader(data)),
		HasEXIF:     format == "jpeg" && hasEXIF(data),
		Bytes:       int64(len(data)),
	}, nil
}
