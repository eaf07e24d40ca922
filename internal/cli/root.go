package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/photomark/internal/apperror"
	"github.com/abdul-hamid-achik/photomark/internal/config"
	"github.com/abdul-hamid-achik/photomark/internal/logger"
	"github.com/abdul-hamid-achik/photomark/internal/metrics"
	"github.com/abdul-hamid-achik/photomark/internal/output"
	"github.com/abdul-hamid-achik/photomark/internal/pipeline"
	"github.com/abdul-hamid-achik/photomark/internal/processor"
	"github.com/abdul-hamid-achik/photomark/internal/tracing"
	"github.com/abdul-hamid-achik/photomark/internal/version"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	jsonOutput  bool
	quietMode   bool
	noColor     bool
	logLevel    string
	timeoutFlag time.Duration
	metricsFile string

	cfg             *config.Config
	printer         *output.Printer
	pipe            *pipeline.Pipeline
	shutdownTracing func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "photomark",
	Short: "photomark - resize, strip and watermark photos",
	Long: `photomark prepares photos for publishing.

It resizes to exact dimensions, strips EXIF and color profiles (turning
LeftBottom images upright first) and draws text watermarks, all in a
single write per image.

Get started:
  photomark size photo.jpg                    # Print the pixel size
  photomark process photo.jpg out.jpg --profile web
  photomark batch ./shoot --out ./export --profile social --progress`,
	Version:           version.Full(),
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the CLI and returns the process exit code. An interrupt
// cancels the running operation.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if terr := teardown(); terr != nil && err == nil {
		err = terr
	}
	if err == nil {
		return 0
	}

	if jsonOutput {
		_ = apperror.WriteJSON(stderr, err)
	} else {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return apperror.ExitCode(err)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/photomark/config.yaml)")
	pf.BoolVar(&jsonOutput, "json", false, "Output as JSON (for scripting)")
	pf.BoolVar(&quietMode, "quiet", false, "Suppress non-error output")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.DurationVar(&timeoutFlag, "timeout", 0, "Per-operation timeout (overrides config)")
	pf.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	rootCmd.SetVersionTemplate("photomark version {{.Version}}\n")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return apperror.WrapWithMessage(err, apperror.ErrConfig, "invalid flags")
	})

	rootCmd.AddCommand(sizeCmd)
	rootCmd.AddCommand(orientationCmd)
	rootCmd.AddCommand(dimsCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(resizeCmd)
	rootCmd.AddCommand(stripCmd)
	rootCmd.AddCommand(watermarkCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	printer = output.New(
		output.WithJSON(jsonOutput),
		output.WithQuiet(quietMode),
		output.WithNoColor(noColor),
		output.WithOutput(cmd.OutOrStdout()),
		output.WithErrOutput(cmd.ErrOrStderr()),
	)

	if cmd.Name() == "help" || cmd.Name() == "version" {
		return nil
	}

	var err error
	cfg, err = config.Load(configPath)
	if err != nil && cmd.CommandPath() == "photomark config init" && errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return apperror.WrapWithMessage(err, apperror.ErrConfig, "load config")
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if metricsFile != "" {
		cfg.MetricsFile = metricsFile
	}
	timeout := cfg.TimeoutDuration()
	if cmd.Flags().Changed("timeout") {
		timeout = timeoutFlag
	}

	logger.InitWriter(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

	shutdownTracing, err = tracing.Init(commandContext(cmd), &tracing.Config{
		ServiceName:    config.AppName,
		ServiceVersion: version.Short(),
		OTLPEndpoint:   cfg.Tracing.Endpoint,
		Enabled:        cfg.Tracing.Enabled,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return apperror.WrapWithMessage(err, apperror.ErrInternal, "init tracing")
	}
	metrics.SetAppInfo(version.Short(), version.Commit)

	engineCfg := processor.DefaultConfig()
	engineCfg.Quality = cfg.Quality
	pipe = pipeline.New(
		pipeline.WithConfig(engineCfg),
		pipeline.WithTimeout(timeout),
	)

	logger.Default().Debug("cli ready",
		"command", cmd.CommandPath(),
		"quality", cfg.Quality,
		"timeout", timeout,
	)
	return nil
}

func teardown() error {
	var firstErr error
	if cfg != nil && cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			firstErr = fmt.Errorf("write metrics: %w", err)
		}
	}
	cfg = nil
	if shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shutdown tracing: %w", err)
		}
		shutdownTracing = nil
	}
	return firstErr
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
