package processor

import (
	"context"
	"errors"
)

var (
	ErrUnsupportedType  = errors.New("processor: unsupported file type")
	ErrProcessingFailed = errors.New("processor: processing failed")
	ErrInvalidConfig    = errors.New("processor: invalid configuration")
	ErrCorruptedFile    = errors.New("processor: file appears corrupted")
)

// Engine is the image backend the pipeline drives. Size and Orientation
// read the file immediately; Open only starts a lazy Chain.
type Engine interface {
	Size(ctx context.Context, path string) (Size, error)
	Orientation(ctx context.Context, path string) (Orientation, error)
	Open(path string) Chain
}

// Chain accumulates operations against one source image. Nothing is
// decoded or written until Write, which performs exactly one write.
type Chain interface {
	Resize(width, height int) Chain
	// Rotate turns the image clockwise by degrees, filling uncovered
	// area with bg.
	Rotate(bg string, degrees float64) Chain
	NoProfile() Chain
	Stroke(color string, width float64) Chain
	Fill(color string) Chain
	Font(name string, size float64) Chain
	DrawText(x, y float64, text string, gravity Gravity) Chain
	Write(ctx context.Context, path string) error
}

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Result struct {
	Path     string         `json:"path"`
	Metadata ResultMetadata `json:"metadata"`
}

type ResultMetadata struct {
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Format   string `json:"format,omitempty"`
	Quality  int    `json:"quality,omitempty"`
	KeptExif bool   `json:"kept_exif"`
	Rotated  bool   `json:"rotated,omitempty"`
}

type Config struct {
	Quality      int
	MaxDimension int
}

func DefaultConfig() *Config {
	return &Config{
		Quality:      85,
		MaxDimension: 16384,
	}
}
