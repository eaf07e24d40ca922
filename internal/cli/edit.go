package cli

import (
	"fmt"

	"github.com/abdul-hamid-achik/photomark/internal/apperror"
	"github.com/abdul-hamid-achik/photomark/internal/config"
	"github.com/abdul-hamid-achik/photomark/internal/processor"
	"github.com/spf13/cobra"
)

var resizeCmd = &cobra.Command{
	Use:   "resize <input> <output>",
	Short: "Resize an image to exact dimensions",
	Long: `Resize an image to exact dimensions. The aspect ratio is not kept.

Examples:
  photomark resize in.jpg out.jpg --width 1200 --height 800
  photomark resize in.jpg out.jpg --long 1200 --short 800`,
	Args: cobra.ExactArgs(2),
	RunE: runResize,
}

var stripCmd = &cobra.Command{
	Use:   "strip <input> <output>",
	Short: "Remove EXIF and color profiles",
	Long: `Remove EXIF and color profiles. Images tagged LeftBottom are rotated
270 degrees clockwise first so they stay upright.

The orientation is read from the input unless --orientation is given.`,
	Args: cobra.ExactArgs(2),
	RunE: runStrip,
}

var watermarkCmd = &cobra.Command{
	Use:   "watermark <input> <output>",
	Short: "Draw a text watermark",
	Long: `Draw a text watermark. Offsets grow inward from the gravity edge.

Examples:
  photomark watermark in.jpg out.jpg --text "(c) 2024 Studio"
  photomark watermark in.jpg out.jpg --font-config mark.yaml --gravity NorthWest`,
	Args: cobra.ExactArgs(2),
	RunE: runWatermark,
}

var processCmd = &cobra.Command{
	Use:   "process <input> <output>",
	Short: "Resize, strip and watermark in one pass",
	Long: `Resize, strip and watermark in one pass with a single write.

Stages run in a fixed order: resize, then metadata stripping (with
rotation compensation), then the watermark.

Examples:
  photomark process in.jpg out.jpg --profile web
  photomark process in.jpg out.jpg --long 1200 --short 800 --text "(c) Studio"
  photomark process in.jpg out.jpg --width 640 --height 480 --keep-exif`,
	Args: cobra.ExactArgs(2),
	RunE: runProcess,
}

var (
	resizeSize     sizeFlags
	stripOrient    string
	watermarkFont  fontFlags
	processProfile string
	processSize    sizeFlags
	processKeep    bool
	processOrient  string
	processFont    fontFlags
)

func init() {
	resizeSize.register(resizeCmd.Flags())

	stripCmd.Flags().StringVar(&stripOrient, "orientation", "", "Orientation tag to assume (e.g. LeftBottom)")

	watermarkFont.register(watermarkCmd.Flags())

	processCmd.Flags().StringVarP(&processProfile, "profile", "p", "", "Named profile (web, social, thumbnail, archive or from config)")
	processSize.register(processCmd.Flags())
	processCmd.Flags().BoolVar(&processKeep, "keep-exif", false, "Keep EXIF and color profiles")
	processCmd.Flags().StringVar(&processOrient, "orientation", "", "Orientation tag to assume instead of reading it")
	processFont.register(processCmd.Flags())
}

func runResize(cmd *cobra.Command, args []string) error {
	if err := resizeSize.check(); err != nil {
		return err
	}
	ctx := commandContext(cmd)
	in, out := args[0], args[1]

	var size processor.SizeConfig
	switch {
	case resizeSize.layout():
		src, err := pipe.QuerySize(ctx, in)
		if err != nil {
			return err
		}
		size = config.Layout{Long: resizeSize.long, Short: resizeSize.short}.Size(src.Width, src.Height)
	case resizeSize.exact():
		size = processor.SizeConfig{Width: resizeSize.width, Height: resizeSize.height}
	default:
		return apperror.WrapWithMessage(
			fmt.Errorf("%w: specify --width/--height or --long/--short", processor.ErrInvalidConfig),
			apperror.ErrConfig, "missing size")
	}

	written, err := pipe.Resize(ctx, in, out, size)
	if err != nil {
		return err
	}
	return printer.Result(map[string]any{"path": written, "width": size.Width, "height": size.Height}, func() {
		printer.Success("%s %dx%d", written, size.Width, size.Height)
	})
}

func runStrip(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	in, out := args[0], args[1]

	var (
		written string
		err     error
	)
	if stripOrient == "" {
		written, err = pipe.RemoveExifData(ctx, in, out)
	} else {
		orientation, perr := parseOrientationFlag(stripOrient)
		if perr != nil {
			return perr
		}
		written, err = pipe.StripMetadata(ctx, in, out, orientation)
	}
	if err != nil {
		return err
	}
	return printer.Result(map[string]any{"path": written}, func() {
		printer.Success("%s", written)
	})
}

func runWatermark(cmd *cobra.Command, args []string) error {
	fc, err := watermarkFont.build(cmd)
	if err != nil {
		return err
	}

	written, err := pipe.DrawWatermark(commandContext(cmd), args[0], args[1], *fc)
	if err != nil {
		return err
	}
	return printer.Result(map[string]any{"path": written}, func() {
		printer.Success("%s", written)
	})
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	in, out := args[0], args[1]

	profile, err := processProfileFromFlags(cmd)
	if err != nil {
		return err
	}

	var width, height int
	if profile.NeedsSize() {
		size, err := pipe.QuerySize(ctx, in)
		if err != nil {
			return err
		}
		width, height = size.Width, size.Height
	}

	orientation := processor.OrientationUnknown
	if processOrient != "" {
		orientation, err = parseOrientationFlag(processOrient)
		if err != nil {
			return err
		}
	} else if !profile.KeepExif {
		orientation, err = pipe.QueryOrientation(ctx, in)
		if err != nil {
			return err
		}
	}

	res, err := pipe.Process(ctx, in, out, profile.Options(width, height, orientation))
	if err != nil {
		return err
	}
	return printer.Result(res, func() {
		printer.FileProcessed(in, res)
	})
}

func parseOrientationFlag(s string) (processor.Orientation, error) {
	o, err := processor.ParseOrientation(s)
	if err != nil {
		return o, apperror.WrapWithMessage(err, apperror.ErrConfig, "invalid orientation")
	}
	return o, nil
}

func processProfileFromFlags(cmd *cobra.Command) (config.Profile, error) {
	if err := processSize.check(); err != nil {
		return config.Profile{}, err
	}

	var profile config.Profile
	if processProfile != "" {
		p, ok := cfg.Profile(processProfile)
		if !ok {
			return config.Profile{}, apperror.WrapWithMessage(
				fmt.Errorf("%w: unknown profile %q (have %v)", processor.ErrInvalidConfig, processProfile, cfg.ProfileNames()),
				apperror.ErrConfig, "invalid profile")
		}
		profile = p
	}

	switch {
	case processSize.exact():
		profile.Size = &processor.SizeConfig{Width: processSize.width, Height: processSize.height}
		profile.Layout = nil
	case processSize.layout():
		profile.Layout = &config.Layout{Long: processSize.long, Short: processSize.short}
		profile.Size = nil
	}

	if cmd.Flags().Changed("keep-exif") {
		profile.KeepExif = processKeep
	}

	if processFont.requested(cmd) {
		fc, err := processFont.build(cmd)
		if err != nil {
			return config.Profile{}, err
		}
		profile.Font = fc
	}
	return profile, nil
}
