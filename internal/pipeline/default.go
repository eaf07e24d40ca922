package pipeline

import (
	"context"
	"sync"

	"github.com/abdul-hamid-achik/photomark/internal/processor"
)

var (
	defaultOnce     sync.Once
	defaultPipeline *Pipeline
)

// Default returns the shared pipeline backed by the built-in engine.
func Default() *Pipeline {
	defaultOnce.Do(func() {
		defaultPipeline = New()
	})
	return defaultPipeline
}

func QuerySize(ctx context.Context, path string) (processor.Size, error) {
	return Default().QuerySize(ctx, path)
}

func QueryOrientation(ctx context.Context, path string) (processor.Orientation, error) {
	return Default().QueryOrientation(ctx, path)
}

func Resize(ctx context.Context, in, out string, size processor.SizeConfig) (string, error) {
	return Default().Resize(ctx, in, out, size)
}

func StripMetadata(ctx context.Context, in, out string, orientation processor.Orientation) (string, error) {
	return Default().StripMetadata(ctx, in, out, orientation)
}

func RemoveExifData(ctx context.Context, in, out string) (string, error) {
	return Default().RemoveExifData(ctx, in, out)
}

func DrawWatermark(ctx context.Context, in, out string, font processor.FontConfig) (string, error) {
	return Default().DrawWatermark(ctx, in, out, font)
}

func Run(ctx context.Context, in, out string, opts processor.Options) (string, error) {
	return Default().Run(ctx, in, out, opts)
}

func Process(ctx context.Context, in, out string, opts processor.Options) (*processor.Result, error) {
	return Default().Process(ctx, in, out, opts)
}
