package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/photomark/internal/logger"
	"github.com/abdul-hamid-achik/photomark/internal/metrics"
	"github.com/abdul-hamid-achik/photomark/internal/processor"
	imgproc "github.com/abdul-hamid-achik/photomark/internal/processor/image"
	"github.com/abdul-hamid-achik/photomark/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const (
	OpQuerySize        = "query_size"
	OpQueryOrientation = "query_orientation"
	OpResize           = "resize"
	OpStripMetadata    = "strip_metadata"
	OpRemoveExifData   = "remove_exif_data"
	OpDrawWatermark    = "draw_watermark"
	OpRun              = "run"
	OpRunStages        = "run_stages"
	OpProcess          = "process"
	OpInspect          = "inspect"
)

// Pipeline drives an image engine through the registered stages. It
// holds no per-call state and is safe for concurrent use.
type Pipeline struct {
	engine   processor.Engine
	registry *processor.Registry
	timeout  time.Duration
	quality  int
}

type Option func(*Pipeline)

func WithEngine(e processor.Engine) Option {
	return func(p *Pipeline) {
		p.engine = e
	}
}

// WithConfig backs the pipeline with the built-in engine using cfg.
func WithConfig(cfg *processor.Config) Option {
	return func(p *Pipeline) {
		p.engine = imgproc.NewEngine(cfg)
		p.quality = cfg.Quality
	}
}

// WithRegistry replaces the default stage set.
func WithRegistry(r *processor.Registry) Option {
	return func(p *Pipeline) {
		p.registry = r
	}
}

// WithTimeout bounds every operation. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.timeout = d
	}
}

func New(opts ...Option) *Pipeline {
	cfg := processor.DefaultConfig()
	p := &Pipeline{
		registry: processor.DefaultRegistry,
		quality:  cfg.Quality,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.engine == nil {
		p.engine = imgproc.NewEngine(cfg)
	}
	return p
}

func (p *Pipeline) Registry() *processor.Registry {
	return p.registry
}

// QuerySize reports the pixel dimensions of the image at path.
func (p *Pipeline) QuerySize(ctx context.Context, path string) (processor.Size, error) {
	var size processor.Size
	err := p.observe(ctx, OpQuerySize, path, func(ctx context.Context) error {
		s, err := p.engine.Size(ctx, path)
		if err != nil {
			return err
		}
		size = s
		tracing.AddSpanAttributes(ctx,
			attribute.Int("image.width", s.Width),
			attribute.Int("image.height", s.Height),
		)
		return nil
	})
	return size, err
}

// QueryOrientation reports the EXIF orientation of the image at path.
// Images without EXIF report OrientationUnknown.
func (p *Pipeline) QueryOrientation(ctx context.Context, path string) (processor.Orientation, error) {
	orientation := processor.OrientationUnknown
	err := p.observe(ctx, OpQueryOrientation, path, func(ctx context.Context) error {
		o, err := p.engine.Orientation(ctx, path)
		if err != nil {
			return err
		}
		orientation = o
		return nil
	})
	return orientation, err
}

// Resize forces the image to exactly size, ignoring aspect ratio.
func (p *Pipeline) Resize(ctx context.Context, in, out string, size processor.SizeConfig) (string, error) {
	opts := processor.Options{Size: &size, KeepExif: true}
	err := p.observe(ctx, OpResize, in, func(ctx context.Context) error {
		return p.runNamed(ctx, in, out, &opts, processor.StageResize)
	})
	return result(out, err)
}

// StripMetadata removes the EXIF and color profile. A LeftBottom image is
// first rotated 270 degrees clockwise onto a transparent background.
func (p *Pipeline) StripMetadata(ctx context.Context, in, out string, orientation processor.Orientation) (string, error) {
	opts := processor.Options{Orientation: orientation}
	err := p.observe(ctx, OpStripMetadata, in, func(ctx context.Context) error {
		return p.runNamed(ctx, in, out, &opts, processor.StageStrip)
	})
	return result(out, err)
}

// RemoveExifData reads the orientation of in and then strips it.
func (p *Pipeline) RemoveExifData(ctx context.Context, in, out string) (string, error) {
	err := p.observe(ctx, OpRemoveExifData, in, func(ctx context.Context) error {
		orientation, err := p.engine.Orientation(ctx, in)
		if err != nil {
			return fmt.Errorf("read orientation: %w", err)
		}
		opts := processor.Options{Orientation: orientation}
		return p.runNamed(ctx, in, out, &opts, processor.StageStrip)
	})
	return result(out, err)
}

// DrawWatermark draws the font text onto the image. The config is validated
// before the engine is touched; an incomplete config creates no output.
func (p *Pipeline) DrawWatermark(ctx context.Context, in, out string, font processor.FontConfig) (string, error) {
	opts := processor.Options{Font: &font, KeepExif: true}
	err := p.observe(ctx, OpDrawWatermark, in, func(ctx context.Context) error {
		return p.runNamed(ctx, in, out, &opts, processor.StageWatermark)
	})
	return result(out, err)
}

// Run applies resize, profile stripping and watermarking, each only when
// opts asks for it, and writes out once.
func (p *Pipeline) Run(ctx context.Context, in, out string, opts processor.Options) (string, error) {
	err := p.observe(ctx, OpRun, in, func(ctx context.Context) error {
		return p.apply(ctx, in, out, &opts, p.registry.Stages())
	})
	return result(out, err)
}

// RunStages is Run restricted to the named stages. The stages still run
// in registration order.
func (p *Pipeline) RunStages(ctx context.Context, in, out string, opts processor.Options, names ...string) (string, error) {
	err := p.observe(ctx, OpRunStages, in, func(ctx context.Context) error {
		return p.runNamed(ctx, in, out, &opts, names...)
	})
	return result(out, err)
}

// Process is Run followed by a size query of the written file.
func (p *Pipeline) Process(ctx context.Context, in, out string, opts processor.Options) (*processor.Result, error) {
	var res *processor.Result
	err := p.observe(ctx, OpProcess, in, func(ctx context.Context) error {
		if err := p.apply(ctx, in, out, &opts, p.registry.Stages()); err != nil {
			return err
		}
		size, err := p.engine.Size(ctx, out)
		if err != nil {
			return fmt.Errorf("read output size: %w", err)
		}
		kept, rotated := p.profileOutcome(ctx, in, out, &opts)
		res = &processor.Result{
			Path: out,
			Metadata: processor.ResultMetadata{
				Width:    size.Width,
				Height:   size.Height,
				Format:   formatName(out),
				Quality:  p.quality,
				KeptExif: kept,
				Rotated:  rotated,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// profileOutcome reports whether the written file still carries EXIF and
// whether its pixels were turned upright. Only JPEG outputs can keep the
// profile; when it is lost the engine rotates a LeftBottom source
// instead.
func (p *Pipeline) profileOutcome(ctx context.Context, in, out string, opts *processor.Options) (kept, rotated bool) {
	if !opts.KeepExif {
		return false, opts.Orientation.NeedsRotation()
	}
	kept = formatName(out) == "jpeg"
	if i, ok := p.engine.(inspector); ok && kept {
		if info, err := i.Inspect(ctx, out); err == nil {
			kept = info.HasEXIF
		}
	}
	if kept {
		return true, false
	}
	o, err := p.engine.Orientation(ctx, in)
	return false, err == nil && o.NeedsRotation()
}

type inspector interface {
	Inspect(ctx context.Context, path string) (*imgproc.Info, error)
}

// Inspect reports header and EXIF facts about path. Engines that cannot
// inspect return an EngineError wrapping processor.ErrUnsupportedType.
func (p *Pipeline) Inspect(ctx context.Context, path string) (*imgproc.Info, error) {
	var info *imgproc.Info
	err := p.observe(ctx, OpInspect, path, func(ctx context.Context) error {
		in, ok := p.engine.(inspector)
		if !ok {
			return fmt.Errorf("%w: engine cannot inspect", processor.ErrUnsupportedType)
		}
		i, err := in.Inspect(ctx, path)
		if err != nil {
			return err
		}
		info = i
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (p *Pipeline) runNamed(ctx context.Context, in, out string, opts *processor.Options, names ...string) error {
	stages, err := p.registry.Select(names...)
	if err != nil {
		return err
	}
	return p.apply(ctx, in, out, opts, stages)
}

// apply validates every enabled stage, records them on one chain and
// writes it. Nothing is opened when validation fails.
func (p *Pipeline) apply(ctx context.Context, in, out string, opts *processor.Options, stages []processor.Stage) error {
	enabled := make([]processor.Stage, 0, len(stages))
	for _, s := range stages {
		if s.Enabled(opts) {
			enabled = append(enabled, s)
		}
	}

	for _, s := range enabled {
		if v, ok := s.(processor.Validator); ok {
			if err := v.Validate(opts); err != nil {
				return fmt.Errorf("%s: %w", s.Name(), err)
			}
		}
	}

	log := logger.FromContext(ctx)
	chain := p.engine.Open(in)
	for _, s := range enabled {
		if err := s.Apply(ctx, chain, opts); err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
		metrics.RecordStage(s.Name())
		log.Debug("stage recorded", "stage", s.Name())
	}

	if err := chain.Write(ctx, out); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	return nil
}

func (p *Pipeline) observe(ctx context.Context, op, path string, fn func(ctx context.Context) error) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	ctx, span := tracing.StartSpan(ctx, "pipeline."+op)
	defer span.End()
	span.SetAttributes(attribute.String("file.path", path))

	if logger.File(ctx) == "" {
		ctx = logger.WithFile(ctx, path)
	}
	log := logger.FromContext(ctx)

	start := time.Now()
	err := classify(op, fn(ctx))
	elapsed := time.Since(start)

	metrics.RecordOperation(op, err, elapsed)
	if err != nil {
		tracing.RecordError(ctx, err)
		log.Debug("operation failed", "operation", op, "duration", elapsed, "error", err)
		return err
	}
	log.Debug("operation completed", "operation", op, "duration", elapsed)
	return nil
}

func result(out string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return out, nil
}

func formatName(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "jpg", "jpeg":
		return "jpeg"
	case "tif", "tiff":
		return "tiff"
	default:
		return ext
	}
}

// OutputDimensions picks (long, short) for landscape sources and
// (short, long) for portrait or square ones.
func OutputDimensions(long, short, width, height int) (int, int) {
	return processor.OutputDimensions(long, short, width, height)
}
