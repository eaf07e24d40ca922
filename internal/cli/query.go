package cli

import (
	"fmt"
	"strconv"

	"github.com/abdul-hamid-achik/photomark/internal/apperror"
	"github.com/abdul-hamid-achik/photomark/internal/pipeline"
	"github.com/abdul-hamid-achik/photomark/internal/processor"
	"github.com/spf13/cobra"
)

var sizeCmd = &cobra.Command{
	Use:   "size <file>",
	Short: "Print the pixel dimensions of an image",
	Args:  cobra.ExactArgs(1),
	RunE:  runSize,
}

var orientationCmd = &cobra.Command{
	Use:   "orientation <file>",
	Short: "Print the EXIF orientation of an image",
	Long: `Print the EXIF orientation label of an image (TopLeft, RightTop,
LeftBottom, ...). Images without EXIF report Unknown.`,
	Args: cobra.ExactArgs(1),
	RunE: runOrientation,
}

var dimsCmd = &cobra.Command{
	Use:   "dims <long> <short> <file>",
	Short: "Compute output dimensions for a layout",
	Long: `Compute the output dimensions for a long/short layout.

Landscape images get long x short; portrait and square images get
short x long.

Examples:
  photomark dims 1200 800 photo.jpg`,
	Args: cobra.ExactArgs(3),
	RunE: runDims,
}

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show format, size and metadata of an image",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runSize(cmd *cobra.Command, args []string) error {
	size, err := pipe.QuerySize(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	return printer.Result(size, func() {
		printer.Printf("%dx%d\n", size.Width, size.Height)
	})
}

func runOrientation(cmd *cobra.Command, args []string) error {
	o, err := pipe.QueryOrientation(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	return printer.Result(map[string]any{"path": args[0], "orientation": o}, func() {
		printer.Println(o)
	})
}

func runDims(cmd *cobra.Command, args []string) error {
	long, err := positiveArg("long", args[0])
	if err != nil {
		return err
	}
	short, err := positiveArg("short", args[1])
	if err != nil {
		return err
	}

	size, err := pipe.QuerySize(commandContext(cmd), args[2])
	if err != nil {
		return err
	}

	w, h := pipeline.OutputDimensions(long, short, size.Width, size.Height)
	return printer.Result(processor.Size{Width: w, Height: h}, func() {
		printer.Printf("%dx%d\n", w, h)
	})
}

func runInfo(cmd *cobra.Command, args []string) error {
	info, err := pipe.Inspect(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	return printer.Result(info, func() {
		printer.Section(info.Path)
		printer.KeyValue("Format", info.Format)
		printer.KeyValue("Size", fmt.Sprintf("%dx%d", info.Width, info.Height))
		printer.KeyValue("Orientation", string(info.Orientation))
		printer.KeyValue("EXIF", strconv.FormatBool(info.HasEXIF))
		printer.KeyValue("Bytes", strconv.FormatInt(info.Bytes, 10))
	})
}

func positiveArg(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, apperror.WrapWithMessage(
			fmt.Errorf("%w: %s must be a positive integer, got %q", processor.ErrInvalidConfig, name, value),
			apperror.ErrConfig, "invalid argument")
	}
	return n, nil
}
