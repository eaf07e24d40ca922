package cli

import (
	"fmt"
	"os"

	"github.com/abdul-hamid-achik/photomark/internal/apperror"
	"github.com/abdul-hamid-achik/photomark/internal/processor"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// fontFlags binds the watermark flags shared by watermark and process.
type fontFlags struct {
	configFile  string
	font        string
	text        string
	size        float64
	x           float64
	y           float64
	gravity     string
	strokeWidth float64
	strokeColor string
	fillColor   string
}

func (f *fontFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.configFile, "font-config", "", "YAML file with a complete font config")
	fs.StringVar(&f.font, "font", "goregular", "Font: a builtin (goregular, gobold, goitalic, gomono) or a .ttf/.otf path")
	fs.StringVar(&f.text, "text", "", "Watermark text")
	fs.Float64Var(&f.size, "size", 24, "Font size in points")
	fs.Float64Var(&f.x, "x", 10, "Horizontal offset from the gravity point")
	fs.Float64Var(&f.y, "y", 10, "Vertical offset from the gravity point")
	fs.StringVar(&f.gravity, "gravity", string(processor.GravitySouthEast), "Anchor: NorthWest, North, NorthEast, West, Center, East, SouthWest, South, SouthEast")
	fs.Float64Var(&f.strokeWidth, "stroke-width", 1, "Outline width")
	fs.StringVar(&f.strokeColor, "stroke-color", "black", "Outline color")
	fs.StringVar(&f.fillColor, "fill", "white", "Text color")
}

// requested reports whether the user asked for a watermark at all.
func (f *fontFlags) requested(cmd *cobra.Command) bool {
	return cmd.Flags().Changed("text") || f.configFile != ""
}

// build returns the font config: the file's values, with any explicitly
// set flag on top. Without a file, flag defaults fill the gaps. An
// incomplete config is returned as is; validation happens in the
// pipeline.
func (f *fontFlags) build(cmd *cobra.Command) (*processor.FontConfig, error) {
	changed := cmd.Flags().Changed
	fc := &processor.FontConfig{}

	if f.configFile != "" {
		data, err := os.ReadFile(f.configFile)
		if err != nil {
			return nil, apperror.WrapWithMessage(err, apperror.ErrConfig, "read font config")
		}
		if err := yaml.Unmarshal(data, fc); err != nil {
			return nil, apperror.WrapWithMessage(
				fmt.Errorf("%w: %v", processor.ErrInvalidConfig, err),
				apperror.ErrConfig, "parse font config")
		}
	}
	useFlag := func(name string) bool {
		return f.configFile == "" || changed(name)
	}

	if useFlag("font") {
		fc.Font = f.font
	}
	if changed("text") {
		fc.Text = processor.String(f.text)
	}
	if useFlag("size") {
		fc.Size = f.size
	}
	if useFlag("x") {
		fc.X = processor.Float(f.x)
	}
	if useFlag("y") {
		fc.Y = processor.Float(f.y)
	}
	if useFlag("gravity") {
		g, err := processor.ParseGravity(f.gravity)
		if err != nil {
			// keep the raw value so validation names the field
			g = processor.Gravity(f.gravity)
		}
		fc.Gravity = g
	}
	if useFlag("stroke-width") {
		fc.StrokeWidth = processor.Float(f.strokeWidth)
	}
	if useFlag("stroke-color") {
		fc.StrokeColor = f.strokeColor
	}
	if useFlag("fill") {
		fc.FillColor = f.fillColor
	}
	return fc, nil
}

// sizeFlags binds --width/--height and the --long/--short layout pair.
type sizeFlags struct {
	width  int
	height int
	long   int
	short  int
}

func (s *sizeFlags) register(fs *pflag.FlagSet) {
	fs.IntVar(&s.width, "width", 0, "Exact output width")
	fs.IntVar(&s.height, "height", 0, "Exact output height")
	fs.IntVar(&s.long, "long", 0, "Long side; the output follows the source orientation")
	fs.IntVar(&s.short, "short", 0, "Short side; the output follows the source orientation")
}

func (s *sizeFlags) exact() bool {
	return s.width != 0 || s.height != 0
}

func (s *sizeFlags) layout() bool {
	return s.long != 0 || s.short != 0
}

func (s *sizeFlags) check() error {
	if s.exact() && s.layout() {
		return apperror.WrapWithMessage(
			fmt.Errorf("%w: --width/--height and --long/--short are mutually exclusive", processor.ErrInvalidConfig),
			apperror.ErrConfig, "invalid flags")
	}
	return nil
}
