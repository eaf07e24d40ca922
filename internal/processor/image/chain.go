package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/photomark/internal/processor"
	"github.com/disintegration/imaging"
)

var _ processor.Chain = (*Chain)(nil)

type op struct {
	name  string
	apply func(img image.Image) (image.Image, error)
}

// textStyle is the drawing state in effect when DrawText is recorded.
type textStyle struct {
	stroke      color.Color
	strokeWidth float64
	fill        color.Color
	font        string
	fontSize    float64
}

// Chain records operations and runs them on Write. The first recording
// error sticks and is returned by Write before anything is read.
type Chain struct {
	src       string
	config    *processor.Config
	ops       []op
	style     textStyle
	noProfile bool
	err       error
}

func newChain(src string, cfg *processor.Config) *Chain {
	return &Chain{
		src:    src,
		config: cfg,
		style: textStyle{
			fill:     color.Black,
			font:     DefaultFont,
			fontSize: 12,
		},
	}
}

func (c *Chain) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *Chain) Resize(width, height int) processor.Chain {
	if width <= 0 || height <= 0 {
		c.fail(fmt.Errorf("%w: resize to %dx%d", processor.ErrInvalidConfig, width, height))
		return c
	}
	if width > c.config.MaxDimension || height > c.config.MaxDimension {
		c.fail(fmt.Errorf("%w: resize to %dx%d exceeds %d", processor.ErrInvalidConfig, width, height, c.config.MaxDimension))
		return c
	}
	c.ops = append(c.ops, op{
		name: "resize",
		apply: func(img image.Image) (image.Image, error) {
			return forceResize(img, width, height), nil
		},
	})
	return c
}

func (c *Chain) Rotate(bg string, degrees float64) processor.Chain {
	fill, err := parseColor(bg)
	if err != nil {
		c.fail(err)
		return c
	}
	c.ops = append(c.ops, op{
		name: "rotate",
		apply: func(img image.Image) (image.Image, error) {
			return rotateClockwise(img, degrees, fill), nil
		},
	})
	return c
}

func (c *Chain) NoProfile() processor.Chain {
	c.noProfile = true
	return c
}

func (c *Chain) Stroke(colorSpec string, width float64) processor.Chain {
	col, err := parseColor(colorSpec)
	if err != nil {
		c.fail(err)
		return c
	}
	if width < 0 {
		c.fail(fmt.Errorf("%w: negative stroke width %g", processor.ErrInvalidConfig, width))
		return c
	}
	c.style.stroke = col
	c.style.strokeWidth = width
	return c
}

func (c *Chain) Fill(colorSpec string) processor.Chain {
	col, err := parseColor(colorSpec)
	if err != nil {
		c.fail(err)
		return c
	}
	c.style.fill = col
	return c
}

func (c *Chain) Font(name string, size float64) processor.Chain {
	if size <= 0 {
		c.fail(fmt.Errorf("%w: font size %g", processor.ErrInvalidConfig, size))
		return c
	}
	c.style.font = name
	c.style.fontSize = size
	return c
}

func (c *Chain) DrawText(x, y float64, text string, gravity processor.Gravity) processor.Chain {
	if !gravity.Valid() {
		c.fail(fmt.Errorf("%w: unknown gravity %q", processor.ErrInvalidConfig, gravity))
		return c
	}
	style := c.style
	c.ops = append(c.ops, op{
		name: "text",
		apply: func(img image.Image) (image.Image, error) {
			return drawText(img, text, x, y, gravity, style)
		},
	})
	return c
}

// Write decodes the source, applies every recorded operation in order
// and writes the result to path in a single step. A failed Write leaves
// no file behind.
func (c *Chain) Write(ctx context.Context, path string) error {
	if c.err != nil {
		return c.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	outFormat, err := imaging.FormatFromFilename(path)
	if err != nil {
		return fmt.Errorf("%w: %w: %s", processor.ErrInvalidConfig, processor.ErrUnsupportedType, filepath.Ext(path))
	}

	data, err := os.ReadFile(c.src)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.src, err)
	}

	img, srcFormat, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", processor.ErrCorruptedFile, c.src, err)
	}

	carried := srcFormat == "jpeg" && outFormat == imaging.JPEG
	ops := c.ops
	if !c.noProfile && !carried && exifOrientation(bytes.NewReader(data)).NeedsRotation() {
		ops = withUprightRotation(ops)
	}

	for _, o := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err = o.apply(img)
		if err != nil {
			return fmt.Errorf("%s: %w", o.name, err)
		}
	}

	buf, err := encodeImage(img, outFormat, c.config.Quality)
	if err != nil {
		return err
	}

	out := buf.Bytes()
	if !c.noProfile && carried {
		out, err = copyProfile(data, out)
		if err != nil {
			return fmt.Errorf("%w: keep profile: %v", processor.ErrProcessingFailed, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return writeAtomic(path, out)
}

// withUprightRotation bakes a LeftBottom orientation into the pixels for
// outputs that cannot carry the EXIF block. The rotation goes before the
// first text operation so marks are placed on the upright image.
func withUprightRotation(ops []op) []op {
	rotate := op{
		name: "rotate",
		apply: func(img image.Image) (image.Image, error) {
			return rotateClockwise(img, 270, color.Transparent), nil
		},
	}
	out := make([]op, 0, len(ops)+1)
	inserted := false
	for _, o := range ops {
		if !inserted && o.name == "text" {
			out = append(out, rotate)
			inserted = true
		}
		out = append(out, o)
	}
	if !inserted {
		out = append(out, rotate)
	}
	return out
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".photomark-*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
