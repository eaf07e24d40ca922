package image

import (
	"context"

	"github.com/abdul-hamid-achik/photomark/internal/processor"
)

var _ processor.Engine = (*Engine)(nil)

// Engine is the pure-Go image backend: decode through the standard and
// x/image codecs, transform with imaging, draw text with gg.
type Engine struct {
	config *processor.Config
}

func NewEngine(cfg *processor.Config) *Engine {
	if cfg == nil {
		cfg = processor.DefaultConfig()
	}
	return &Engine{config: cfg}
}

func (e *Engine) Size(ctx context.Context, path string) (processor.Size, error) {
	if err := ctx.Err(); err != nil {
		return processor.Size{}, err
	}
	return readSize(path)
}

func (e *Engine) Orientation(ctx context.Context, path string) (processor.Orientation, error) {
	if err := ctx.Err(); err != nil {
		return processor.OrientationUnknown, err
	}
	return readOrientation(path)
}

func (e *Engine) Open(path string) processor.Chain {
	return newChain(path, e.config)
}
