package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/photomark/internal/apperror"
	"github.com/abdul-hamid-achik/photomark/internal/processor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validFont() processor.FontConfig {
	return processor.FontConfig{
		Font:        "goregular",
		Text:        processor.String("photomark"),
		Size:        24,
		X:           processor.Float(10),
		Y:           processor.Float(10),
		Gravity:     processor.GravitySouthEast,
		StrokeWidth: processor.Float(1),
		StrokeColor: "black",
		FillColor:   "white",
	}
}

func newMockPipeline() (*Pipeline, *processor.MockEngine, *processor.MockChain) {
	engine := &processor.MockEngine{}
	chain := &processor.MockChain{}
	return New(WithEngine(engine)), engine, chain
}

func TestRun_StageOrder(t *testing.T) {
	p, engine, chain := newMockPipeline()
	font := validFont()

	engine.On("Open", "in.jpg").Return(chain).Once()
	resize := chain.On("Resize", 1200, 800).Return().Once()
	rotate := chain.On("Rotate", processor.TransparentFill, 270.0).Return().Once().NotBefore(resize)
	strip := chain.On("NoProfile").Return().Once().NotBefore(rotate)
	stroke := chain.On("Stroke", "black", 1.0).Return().Once().NotBefore(strip)
	fill := chain.On("Fill", "white").Return().Once().NotBefore(stroke)
	face := chain.On("Font", "goregular", 24.0).Return().Once().NotBefore(fill)
	text := chain.On("DrawText", 10.0, 10.0, "photomark", processor.GravitySouthEast).Return().Once().NotBefore(face)
	chain.On("Write", mock.Anything, "out.jpg").Return(nil).Once().NotBefore(text)

	out, err := p.Run(context.Background(), "in.jpg", "out.jpg", processor.Options{
		Size:        &processor.SizeConfig{Width: 1200, Height: 800},
		Font:        &font,
		Orientation: processor.OrientationLeftBottom,
	})

	require.NoError(t, err)
	assert.Equal(t, "out.jpg", out)
	engine.AssertExpectations(t)
	chain.AssertExpectations(t)
}

func TestRun_SkipsDisabledStages(t *testing.T) {
	p, engine, chain := newMockPipeline()

	engine.On("Open", "in.jpg").Return(chain).Once()
	chain.On("Write", mock.Anything, "out.jpg").Return(nil).Once()

	_, err := p.Run(context.Background(), "in.jpg", "out.jpg", processor.Options{KeepExif: true})

	require.NoError(t, err)
	chain.AssertNotCalled(t, "Resize", mock.Anything, mock.Anything)
	chain.AssertNotCalled(t, "NoProfile")
	chain.AssertNotCalled(t, "DrawText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	chain.AssertExpectations(t)
}

func TestRun_CustomRegistry(t *testing.T) {
	engine := &processor.MockEngine{}
	chain := &processor.MockChain{}
	reg := processor.NewRegistry()
	reg.Register(processor.ResizeStage{})
	p := New(WithEngine(engine), WithRegistry(reg))
	font := validFont()

	engine.On("Open", "in.jpg").Return(chain).Once()
	chain.On("Resize", 640, 480).Return().Once()
	chain.On("Write", mock.Anything, "out.jpg").Return(nil).Once()

	_, err := p.Run(context.Background(), "in.jpg", "out.jpg", processor.Options{
		Size: &processor.SizeConfig{Width: 640, Height: 480},
		Font: &font,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{processor.StageResize}, p.Registry().List())
	chain.AssertNotCalled(t, "NoProfile")
	chain.AssertNotCalled(t, "DrawText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	chain.AssertExpectations(t)
}

func TestRun_StripWithoutRotation(t *testing.T) {
	p, engine, chain := newMockPipeline()

	engine.On("Open", "in.jpg").Return(chain).Once()
	strip := chain.On("NoProfile").Return().Once()
	chain.On("Write", mock.Anything, "out.jpg").Return(nil).Once().NotBefore(strip)

	_, err := p.Run(context.Background(), "in.jpg", "out.jpg", processor.Options{Orientation: processor.OrientationTopLeft})

	require.NoError(t, err)
	chain.AssertNotCalled(t, "Rotate", mock.Anything, mock.Anything)
	chain.AssertExpectations(t)
}

func TestRun_InvalidFontNeverOpensChain(t *testing.T) {
	p, engine, _ := newMockPipeline()
	font := validFont()
	font.StrokeColor = ""

	_, err := p.Run(context.Background(), "in.jpg", "out.jpg", processor.Options{
		Size: &processor.SizeConfig{Width: 10, Height: 10},
		Font: &font,
	})

	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Equal(t, []string{"stroke_color"}, MissingFields(err))
	engine.AssertNotCalled(t, "Open", mock.Anything)
}

func TestRun_InvalidSizeIsConfigError(t *testing.T) {
	p, engine, _ := newMockPipeline()

	_, err := p.Run(context.Background(), "in.jpg", "out.jpg", processor.Options{
		Size: &processor.SizeConfig{Width: 0, Height: 800},
	})

	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Equal(t, apperror.ExitConfig, apperror.ExitCode(err))
	engine.AssertNotCalled(t, "Open", mock.Anything)
}

func TestRun_WriteFailureIsEngineError(t *testing.T) {
	p, engine, chain := newMockPipeline()

	engine.On("Open", "in.jpg").Return(chain)
	chain.On("NoProfile").Return()
	chain.On("Write", mock.Anything, "out.jpg").Return(errors.New("disk full"))

	out, err := p.Run(context.Background(), "in.jpg", "out.jpg", processor.Options{})

	require.Error(t, err)
	assert.Empty(t, out)
	assert.True(t, IsEngineError(err))
	assert.False(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "disk full")
}

func TestRun_ClassifiesWriteErrors(t *testing.T) {
	tests := []struct {
		name       string
		writeErr   error
		wantConfig bool
	}{
		{"corrupted source", processor.ErrCorruptedFile, false},
		{"canceled", context.Canceled, false},
		{"bad caller value", fmt.Errorf("%w: unknown color %q", processor.ErrInvalidConfig, "blurple"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, engine, chain := newMockPipeline()
			engine.On("Open", "in.jpg").Return(chain)
			chain.On("NoProfile").Return()
			chain.On("Write", mock.Anything, "out.jpg").Return(tt.writeErr)

			_, err := p.Run(context.Background(), "in.jpg", "out.jpg", processor.Options{})

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.writeErr)
			assert.Equal(t, tt.wantConfig, IsConfigError(err))
			assert.Equal(t, !tt.wantConfig, IsEngineError(err))
		})
	}
}

func TestDrawWatermark_ShortCircuitsOnMissingField(t *testing.T) {
	fields := []struct {
		name  string
		clear func(*processor.FontConfig)
	}{
		{"font", func(f *processor.FontConfig) { f.Font = "" }},
		{"text", func(f *processor.FontConfig) { f.Text = nil }},
		{"size", func(f *processor.FontConfig) { f.Size = 0 }},
		{"x", func(f *processor.FontConfig) { f.X = nil }},
		{"y", func(f *processor.FontConfig) { f.Y = nil }},
		{"gravity", func(f *processor.FontConfig) { f.Gravity = "" }},
		{"stroke_width", func(f *processor.FontConfig) { f.StrokeWidth = nil }},
		{"stroke_color", func(f *processor.FontConfig) { f.StrokeColor = "" }},
		{"fill_color", func(f *processor.FontConfig) { f.FillColor = "" }},
	}

	for _, tt := range fields {
		t.Run(tt.name, func(t *testing.T) {
			p, engine, _ := newMockPipeline()
			font := validFont()
			tt.clear(&font)

			out, err := p.DrawWatermark(context.Background(), "in.jpg", "out.jpg", font)

			require.Error(t, err)
			assert.Empty(t, out)
			assert.True(t, IsConfigError(err))
			assert.Equal(t, []string{tt.name}, MissingFields(err))
			assert.Contains(t, err.Error(), tt.name+" is required")
			engine.AssertNotCalled(t, "Open", mock.Anything)
		})
	}
}

func TestDrawWatermark_KeepsProfile(t *testing.T) {
	p, engine, chain := newMockPipeline()

	engine.On("Open", "in.jpg").Return(chain)
	chain.On("Stroke", "black", 1.0).Return()
	chain.On("Fill", "white").Return()
	chain.On("Font", "goregular", 24.0).Return()
	chain.On("DrawText", 10.0, 10.0, "photomark", processor.GravitySouthEast).Return()
	chain.On("Write", mock.Anything, "out.jpg").Return(nil)

	_, err := p.DrawWatermark(context.Background(), "in.jpg", "out.jpg", validFont())

	require.NoError(t, err)
	chain.AssertNotCalled(t, "NoProfile")
	chain.AssertNotCalled(t, "Resize", mock.Anything, mock.Anything)
}

func TestResize_OnlyResizes(t *testing.T) {
	p, engine, chain := newMockPipeline()

	engine.On("Open", "in.jpg").Return(chain)
	chain.On("Resize", 300, 200).Return().Once()
	chain.On("Write", mock.Anything, "out.jpg").Return(nil).Once()

	out, err := p.Resize(context.Background(), "in.jpg", "out.jpg", processor.SizeConfig{Width: 300, Height: 200})

	require.NoError(t, err)
	assert.Equal(t, "out.jpg", out)
	chain.AssertNotCalled(t, "NoProfile")
	chain.AssertExpectations(t)
}

func TestStripMetadata(t *testing.T) {
	tests := []struct {
		name        string
		orientation processor.Orientation
		rotate      bool
	}{
		{"left bottom", processor.OrientationLeftBottom, true},
		{"top left", processor.OrientationTopLeft, false},
		{"unknown", processor.OrientationUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, engine, chain := newMockPipeline()
			engine.On("Open", "in.jpg").Return(chain)
			strip := chain.On("NoProfile").Return().Once()
			if tt.rotate {
				rotate := chain.On("Rotate", processor.TransparentFill, 270.0).Return().Once()
				strip.NotBefore(rotate)
			}
			chain.On("Write", mock.Anything, "out.jpg").Return(nil).Once().NotBefore(strip)

			_, err := p.StripMetadata(context.Background(), "in.jpg", "out.jpg", tt.orientation)

			require.NoError(t, err)
			if !tt.rotate {
				chain.AssertNotCalled(t, "Rotate", mock.Anything, mock.Anything)
			}
			chain.AssertExpectations(t)
		})
	}
}

func TestRemoveExifData_ReadsOrientationFirst(t *testing.T) {
	p, engine, chain := newMockPipeline()

	orient := engine.On("Orientation", mock.Anything, "in.jpg").Return(processor.OrientationLeftBottom, nil).Once()
	engine.On("Open", "in.jpg").Return(chain).Once().NotBefore(orient)
	chain.On("Rotate", processor.TransparentFill, 270.0).Return().Once()
	chain.On("NoProfile").Return().Once()
	chain.On("Write", mock.Anything, "out.jpg").Return(nil).Once()

	_, err := p.RemoveExifData(context.Background(), "in.jpg", "out.jpg")

	require.NoError(t, err)
	engine.AssertExpectations(t)
	chain.AssertExpectations(t)
}

func TestRemoveExifData_OrientationFailure(t *testing.T) {
	p, engine, _ := newMockPipeline()

	engine.On("Orientation", mock.Anything, "in.jpg").Return(processor.OrientationUnknown, os.ErrNotExist)

	_, err := p.RemoveExifData(context.Background(), "in.jpg", "out.jpg")

	require.Error(t, err)
	assert.True(t, IsEngineError(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
	engine.AssertNotCalled(t, "Open", mock.Anything)
}

func TestRunStages(t *testing.T) {
	p, engine, chain := newMockPipeline()
	font := validFont()

	engine.On("Open", "in.jpg").Return(chain)
	resize := chain.On("Resize", 64, 48).Return().Once()
	stroke := chain.On("Stroke", "black", 1.0).Return().Once().NotBefore(resize)
	chain.On("Fill", "white").Return().NotBefore(stroke)
	chain.On("Font", "goregular", 24.0).Return()
	chain.On("DrawText", 10.0, 10.0, "photomark", processor.GravitySouthEast).Return()
	chain.On("Write", mock.Anything, "out.jpg").Return(nil)

	// Names given out of order still run resize first.
	_, err := p.RunStages(context.Background(), "in.jpg", "out.jpg", processor.Options{
		Size: &processor.SizeConfig{Width: 64, Height: 48},
		Font: &font,
	}, processor.StageWatermark, processor.StageResize)

	require.NoError(t, err)
	chain.AssertNotCalled(t, "NoProfile")
	chain.AssertExpectations(t)
}

func TestRunStages_UnknownStage(t *testing.T) {
	p, engine, _ := newMockPipeline()

	_, err := p.RunStages(context.Background(), "in.jpg", "out.jpg", processor.Options{}, "sharpen")

	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	engine.AssertNotCalled(t, "Open", mock.Anything)
}

func TestQuerySize(t *testing.T) {
	p, engine, _ := newMockPipeline()
	engine.On("Size", mock.Anything, "in.jpg").Return(processor.Size{Width: 4000, Height: 3000}, nil)
	engine.On("Size", mock.Anything, "bad.jpg").Return(processor.Size{}, processor.ErrCorruptedFile)

	size, err := p.QuerySize(context.Background(), "in.jpg")
	require.NoError(t, err)
	assert.Equal(t, processor.Size{Width: 4000, Height: 3000}, size)

	_, err = p.QuerySize(context.Background(), "bad.jpg")
	require.Error(t, err)
	assert.True(t, IsEngineError(err))
	assert.ErrorIs(t, err, processor.ErrCorruptedFile)
}

func TestQueryOrientation(t *testing.T) {
	p, engine, _ := newMockPipeline()
	engine.On("Orientation", mock.Anything, "in.jpg").Return(processor.OrientationRightTop, nil)

	o, err := p.QueryOrientation(context.Background(), "in.jpg")
	require.NoError(t, err)
	assert.Equal(t, processor.OrientationRightTop, o)
}

func TestProcess_ReportsOutput(t *testing.T) {
	p, engine, chain := newMockPipeline()

	engine.On("Open", "in.jpg").Return(chain)
	chain.On("Resize", 1200, 800).Return()
	chain.On("Rotate", processor.TransparentFill, 270.0).Return()
	chain.On("NoProfile").Return()
	chain.On("Write", mock.Anything, "out.JPG").Return(nil)
	engine.On("Size", mock.Anything, "out.JPG").Return(processor.Size{Width: 800, Height: 1200}, nil)

	res, err := p.Process(context.Background(), "in.jpg", "out.JPG", processor.Options{
		Size:        &processor.SizeConfig{Width: 1200, Height: 800},
		Orientation: processor.OrientationLeftBottom,
	})

	require.NoError(t, err)
	assert.Equal(t, "out.JPG", res.Path)
	assert.Equal(t, 800, res.Metadata.Width)
	assert.Equal(t, 1200, res.Metadata.Height)
	assert.Equal(t, "jpeg", res.Metadata.Format)
	assert.Equal(t, 85, res.Metadata.Quality)
	assert.True(t, res.Metadata.Rotated)
	assert.False(t, res.Metadata.KeptExif)
}

func TestTimeout(t *testing.T) {
	engine := &processor.MockEngine{}
	p := New(WithEngine(engine), WithTimeout(time.Millisecond))

	engine.On("Size", mock.Anything, "slow.jpg").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(processor.Size{}, context.DeadlineExceeded)

	_, err := p.QuerySize(context.Background(), "slow.jpg")

	require.Error(t, err)
	assert.True(t, IsEngineError(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOutputDimensions(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"landscape", 4000, 3000, 1200, 800},
		{"portrait", 3000, 4000, 800, 1200},
		{"square goes portrait", 2000, 2000, 800, 1200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := OutputDimensions(1200, 800, tt.width, tt.height)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestFormatName(t *testing.T) {
	assert.Equal(t, "jpeg", formatName("a.jpg"))
	assert.Equal(t, "jpeg", formatName("a.JPEG"))
	assert.Equal(t, "png", formatName("a.png"))
	assert.Equal(t, "tiff", formatName("a.tif"))
}

func TestInspect_UnsupportedEngine(t *testing.T) {
	p, _, _ := newMockPipeline()

	_, err := p.Inspect(context.Background(), "in.jpg")

	require.Error(t, err)
	assert.True(t, IsEngineError(err))
	assert.ErrorIs(t, err, processor.ErrUnsupportedType)
}
