package processor

import "context"

const (
	StageResize    = "resize"
	StageStrip     = "strip"
	StageWatermark = "watermark"
)

// TransparentFill is the background used for rotation compensation.
const TransparentFill = "transparent"

// Validator is implemented by stages whose options can be checked before
// a chain is opened.
type Validator interface {
	Validate(opts *Options) error
}

type ResizeStage struct{}

func (ResizeStage) Name() string { return StageResize }

func (ResizeStage) Enabled(opts *Options) bool {
	return opts.Size != nil
}

func (ResizeStage) Validate(opts *Options) error {
	return opts.Size.Validate()
}

func (ResizeStage) Apply(ctx context.Context, chain Chain, opts *Options) error {
	if err := opts.Size.Validate(); err != nil {
		return err
	}
	chain.Resize(opts.Size.Width, opts.Size.Height)
	return nil
}

// StripStage drops the EXIF/ICC profile. Images tagged LeftBottom are
// rotated 270 degrees first, otherwise they would lose their upright
// orientation once the tag is gone. A generic auto-orient is not used
// because it mishandles some Fujifilm files.
type StripStage struct{}

func (StripStage) Name() string { return StageStrip }

func (StripStage) Enabled(opts *Options) bool {
	return !opts.KeepExif
}

func (StripStage) Apply(ctx context.Context, chain Chain, opts *Options) error {
	if opts.Orientation.NeedsRotation() {
		chain.Rotate(TransparentFill, 270)
	}
	chain.NoProfile()
	return nil
}

type WatermarkStage struct{}

func (WatermarkStage) Name() string { return StageWatermark }

func (WatermarkStage) Enabled(opts *Options) bool {
	return opts.Font != nil
}

func (WatermarkStage) Validate(opts *Options) error {
	return opts.Font.Validate()
}

func (WatermarkStage) Apply(ctx context.Context, chain Chain, opts *Options) error {
	f := opts.Font
	if err := f.Validate(); err != nil {
		return err
	}
	chain.Stroke(f.StrokeColor, *f.StrokeWidth).
		Fill(f.FillColor).
		Font(f.Font, f.Size).
		DrawText(*f.X, *f.Y, *f.Text, f.Gravity)
	return nil
}
