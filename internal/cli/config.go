package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/photomark/internal/apperror"
	"github.com/abdul-hamid-achik/photomark/internal/config"
	"github.com/abdul-hamid-achik/photomark/internal/output"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and initialize the photomark configuration file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file path",
	RunE:  runConfigPath,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the defaults",
	RunE:  runConfigInit,
}

var configInitForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if jsonOutput {
		profiles := make(map[string]config.Profile)
		for _, name := range cfg.ProfileNames() {
			p, _ := cfg.Profile(name)
			profiles[name] = p
		}
		return printer.JSON(map[string]any{
			"log_level":    cfg.LogLevel,
			"log_format":   cfg.LogFormat,
			"quality":      cfg.Quality,
			"parallel":     cfg.Parallel,
			"timeout":      cfg.Timeout,
			"metrics_file": cfg.MetricsFile,
			"tracing":      cfg.Tracing,
			"storage": map[string]string{
				"endpoint": cfg.Storage.Endpoint,
				"bucket":   cfg.Storage.Bucket,
				"prefix":   cfg.Storage.Prefix,
				"region":   cfg.Storage.Region,
			},
			"profiles": profiles,
			"stages":   pipe.Registry().List(),
		})
	}

	printer.Section("Configuration")
	printer.KeyValue("Stages", strings.Join(pipe.Registry().List(), " → "))
	printer.KeyValue("Log level", cfg.LogLevel)
	printer.KeyValue("Log format", cfg.LogFormat)
	printer.KeyValue("Quality", strconv.Itoa(cfg.Quality))
	printer.KeyValue("Parallel", strconv.Itoa(cfg.Parallel))
	printer.KeyValue("Timeout", cfg.TimeoutDuration().String())
	if cfg.MetricsFile != "" {
		printer.KeyValue("Metrics file", cfg.MetricsFile)
	}
	if cfg.Tracing.Enabled {
		printer.KeyValue("Tracing", cfg.Tracing.Endpoint)
	}

	if cfg.Storage.Configured() {
		printer.KeyValue("Storage", fmt.Sprintf("%s/%s/%s", cfg.Storage.Endpoint, cfg.Storage.Bucket, cfg.Storage.Prefix))
	}

	if quietMode {
		return nil
	}
	printer.Section("Profiles")
	table := output.NewTableWriter(printer.Out(), []string{"NAME", "SIZE", "WATERMARK", "EXIF"}, quietMode)
	for _, name := range cfg.ProfileNames() {
		p, _ := cfg.Profile(name)
		table.Append([]string{name, profileSize(p), profileFont(p), profileExif(p)})
	}
	table.Render()
	return nil
}

func profileSize(p config.Profile) string {
	switch {
	case p.Size != nil:
		return fmt.Sprintf("%dx%d", p.Size.Width, p.Size.Height)
	case p.Layout != nil:
		return fmt.Sprintf("long %d / short %d", p.Layout.Long, p.Layout.Short)
	}
	return "-"
}

func profileFont(p config.Profile) string {
	if p.Font == nil || p.Font.Text == nil {
		return "-"
	}
	return strconv.Quote(*p.Font.Text)
}

func profileExif(p config.Profile) string {
	if p.KeepExif {
		return "keep"
	}
	return "strip"
}

func configFile() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.Path()
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path, err := configFile()
	if err != nil {
		return apperror.WrapWithMessage(err, apperror.ErrInternal, "resolve config path")
	}
	return printer.Result(map[string]string{"path": path}, func() {
		printer.Println(path)
	})
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := configFile()
	if err != nil {
		return apperror.WrapWithMessage(err, apperror.ErrInternal, "resolve config path")
	}

	if _, err := os.Stat(path); err == nil && !configInitForce {
		printer.Warn("%s already exists (use --force to overwrite)", path)
		return nil
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperror.WrapWithMessage(err, apperror.ErrInternal, "stat config")
	}

	if err := config.Default().Save(path); err != nil {
		return apperror.WrapWithMessage(err, apperror.ErrInternal, "write config")
	}
	return printer.Result(map[string]string{"path": path}, func() {
		printer.Success("Wrote %s", path)
	})
}
