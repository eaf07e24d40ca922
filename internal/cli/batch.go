package cli

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/photomark/internal/apperror"
	"github.com/abdul-hamid-achik/photomark/internal/batch"
	"github.com/abdul-hamid-achik/photomark/internal/config"
	"github.com/abdul-hamid-achik/photomark/internal/output"
	"github.com/abdul-hamid-achik/photomark/internal/processor"
	"github.com/abdul-hamid-achik/photomark/internal/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch <directory>",
	Short: "Process every image in a directory",
	Long: `Process every image in a directory with a profile, writing the
results under --out with the same relative layout.

Per-file overrides come from a rules file (--rules):

  defaults:
    profile: web
  files:
    - pattern: "*.png"
      format: jpg
    - path: covers/hero.jpg
      profile: archive
    - pattern: "draft-*"
      skip: true

With --upload every result is also published to the S3-compatible
bucket from the storage section of the config, keyed by its path under
--out (plus the configured prefix).

Examples:
  photomark batch ./shoot --out ./export --profile web
  photomark batch ./shoot --out ./export --profile social --upload --prefix 2024/launch
  photomark batch ./shoot --out ./export --rules rules.yaml --parallel 8 --progress`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

var (
	batchOut       string
	batchProfile   string
	batchRules     string
	batchParallel  int
	batchRecursive bool
	batchProgress  bool
	batchUpload    bool
	batchPrefix    string
)

func init() {
	batchCmd.Flags().StringVarP(&batchOut, "out", "o", "", "Output directory (required)")
	batchCmd.Flags().StringVarP(&batchProfile, "profile", "p", "", "Profile applied to every file")
	batchCmd.Flags().StringVar(&batchRules, "rules", "", "YAML file with per-file overrides")
	batchCmd.Flags().IntVarP(&batchParallel, "parallel", "j", 0, "Files processed at once (default from config)")
	batchCmd.Flags().BoolVarP(&batchRecursive, "recursive", "r", false, "Descend into subdirectories")
	batchCmd.Flags().BoolVar(&batchProgress, "progress", false, "Show a progress bar")
	batchCmd.Flags().BoolVar(&batchUpload, "upload", false, "Publish results to the configured bucket")
	batchCmd.Flags().StringVar(&batchPrefix, "prefix", "", "Object key prefix (overrides storage.prefix)")
	_ = batchCmd.MarkFlagRequired("out")
}

type batchFileJSON struct {
	Input    string                    `json:"input"`
	Output   string                    `json:"output"`
	Status   string                    `json:"status"`
	Key      string                    `json:"key,omitempty"`
	Error    string                    `json:"error,omitempty"`
	Metadata *processor.ResultMetadata `json:"metadata,omitempty"`
	Duration int64                     `json:"duration_ms"`
}

type batchJSON struct {
	RunID     string          `json:"run_id"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Canceled  int             `json:"canceled"`
	Skipped   []string        `json:"skipped,omitempty"`
	Duration  int64           `json:"duration_ms"`
	Files     []batchFileJSON `json:"files"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	inDir := args[0]

	info, err := os.Stat(inDir)
	if err != nil {
		return apperror.WrapWithMessage(err, apperror.ErrConfig, "input directory")
	}
	if !info.IsDir() {
		return apperror.WrapWithMessage(
			fmt.Errorf("%w: %s is not a directory", processor.ErrInvalidConfig, inDir),
			apperror.ErrConfig, "input directory")
	}

	base, err := batchBaseProfile()
	if err != nil {
		return err
	}

	var rules *config.BatchConfig
	if batchRules != "" {
		rules, err = config.LoadBatchConfig(batchRules)
		if err != nil {
			return apperror.WrapWithMessage(err, apperror.ErrConfig, "load rules")
		}
	}

	files, err := batch.Collect(inDir, batchRecursive)
	if err != nil {
		return apperror.WrapWithMessage(err, apperror.ErrEngine, "scan input directory")
	}
	if len(files) == 0 {
		printer.Warn("No images found in %s", inDir)
		return nil
	}

	jobs, skipped, err := batch.Plan(cfg, rules, base, inDir, batchOut, files)
	if err != nil {
		return apperror.WrapWithMessage(err, apperror.ErrConfig, "plan batch")
	}
	parallel := cfg.Parallel
	if batchParallel > 0 {
		parallel = batchParallel
	}

	progress := output.NewProgress(len(jobs), "Processing",
		output.ProgressWithQuiet(!batchProgress || quietMode || jsonOutput),
		output.ProgressWithOutput(cmd.ErrOrStderr()),
	)

	runner := batch.NewRunner(pipe, parallel)
	runner.Logger = batchLogger(cmd)
	for range skipped {
		runner.Metrics.FileSkipped(batch.StatusSkipped)
	}
	if batchUpload {
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		runner.Store = store
		runner.Prefix = cfg.Storage.Prefix
		if batchPrefix != "" {
			runner.Prefix = batchPrefix
		}
	}

	var mu sync.Mutex
	runner.OnDone = func(r batch.Result) {
		mu.Lock()
		defer mu.Unlock()
		progress.Increment()
		if r.Status == batch.StatusFailed {
			printer.FileFailed(r.Job.Input, r.Err)
		}
	}

	summary, err := runner.Run(ctx, jobs)
	progress.Finish()
	if err != nil {
		return apperror.WrapWithMessage(err, apperror.ErrConfig, "output collision")
	}

	if jsonOutput {
		if err := printer.JSON(batchReport(summary, skipped)); err != nil {
			return err
		}
	} else {
		for _, r := range summary.Results {
			if r.Status == batch.StatusSuccess {
				printer.FileProcessed(r.Job.Input, r.Output)
			}
		}
		for _, s := range skipped {
			printer.Info("skipped %s", s)
		}
		printer.Summary(summary.Succeeded, summary.Failed, summary.Canceled, summary.Duration)
	}

	switch {
	case summary.Canceled > 0:
		return apperror.WrapWithMessage(ctx.Err(), apperror.ErrInternal, "batch interrupted")
	case summary.Failed > 0:
		return apperror.WrapWithMessage(summary.Err(), apperror.ErrEngine,
			fmt.Sprintf("%d of %d files failed", summary.Failed, len(jobs)))
	}
	return nil
}

func openStore(ctx context.Context) (storage.Storage, error) {
	sc := cfg.Storage
	if !sc.Configured() {
		return nil, apperror.WrapWithMessage(
			fmt.Errorf("%w: --upload needs storage.endpoint and storage.bucket", processor.ErrInvalidConfig),
			apperror.ErrConfig, "storage not configured")
	}
	store, err := storage.NewMinIOStorage(&storage.Config{
		Endpoint:  sc.Endpoint,
		AccessKey: sc.AccessKey,
		SecretKey: sc.SecretKey,
		Bucket:    sc.Bucket,
		UseSSL:    !sc.Insecure,
		Region:    sc.Region,
	})
	if err != nil {
		return nil, apperror.WrapWithMessage(err, apperror.ErrConfig, "storage")
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, apperror.WrapWithMessage(err, apperror.ErrEngine, "storage unavailable")
	}
	return store, nil
}

func batchBaseProfile() (config.Profile, error) {
	if batchProfile == "" {
		return config.Profile{}, nil
	}
	p, ok := cfg.Profile(batchProfile)
	if !ok {
		return config.Profile{}, apperror.WrapWithMessage(
			fmt.Errorf("%w: unknown profile %q (have %v)", processor.ErrInvalidConfig, batchProfile, cfg.ProfileNames()),
			apperror.ErrConfig, "invalid profile")
	}
	return p, nil
}

// batchLogger writes per-file events to stderr. Text format gets the
// console writer; anything else stays JSON lines.
func batchLogger(cmd *cobra.Command) zerolog.Logger {
	name := cfg.LogLevel
	if name == "warning" {
		name = "warn"
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		level = zerolog.InfoLevel
	}
	if quietMode || batchProgress {
		level = zerolog.WarnLevel
	}

	w := cmd.ErrOrStderr()
	if cfg.LogFormat == "text" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: noColor}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func batchReport(s batch.Summary, skipped []string) batchJSON {
	report := batchJSON{
		RunID:     s.RunID,
		Succeeded: s.Succeeded,
		Failed:    s.Failed,
		Canceled:  s.Canceled,
		Skipped:   skipped,
		Duration:  s.Duration.Milliseconds(),
		Files:     make([]batchFileJSON, 0, len(s.Results)),
	}
	for _, r := range s.Results {
		f := batchFileJSON{
			Input:    r.Job.Input,
			Output:   r.Job.Output,
			Status:   r.Status,
			Key:      r.Published,
			Duration: r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			f.Error = r.Err.Error()
		}
		if r.Output != nil {
			m := r.Output.Metadata
			f.Metadata = &m
		}
		report.Files = append(report.Files, f)
	}
	return report
}
