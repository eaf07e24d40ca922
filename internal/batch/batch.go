// Package batch runs the pipeline over many files with bounded
// parallelism.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/photomark/internal/config"
	"github.com/abdul-hamid-achik/photomark/internal/logger"
	"github.com/abdul-hamid-achik/photomark/internal/metrics"
	"github.com/abdul-hamid-achik/photomark/internal/pipeline"
	"github.com/abdul-hamid-achik/photomark/internal/processor"
	"github.com/abdul-hamid-achik/photomark/internal/storage"
	"github.com/abdul-hamid-achik/photomark/internal/tracing"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
	StatusSkipped  = "skipped"
)

const opPublish = "publish"

var ErrDuplicateOutput = errors.New("batch: duplicate output path")

type Job struct {
	Input  string
	Output string
	// Key is the output path relative to the output directory, used as
	// the object key when publishing.
	Key     string
	Profile config.Profile
}

type Result struct {
	Job       Job
	Status    string
	Output    *processor.Result
	Published string
	Err       error
	Duration  time.Duration
}

type Summary struct {
	RunID     string
	Results   []Result
	Succeeded int
	Failed    int
	Canceled  int
	Duration  time.Duration
}

// Err joins every per-file failure, or returns nil when all succeeded.
func (s Summary) Err() error {
	var errs []error
	for _, r := range s.Results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Job.Input, r.Err))
		}
	}
	return errors.Join(errs...)
}

type Runner struct {
	Pipeline *pipeline.Pipeline
	Parallel int
	Logger   zerolog.Logger
	Metrics  *metrics.BatchCollector
	// Store receives every successful output under Prefix when set.
	Store  storage.Storage
	Prefix string
	// OnDone is called once per job as it finishes, from the worker
	// goroutine. It must be safe for concurrent use.
	OnDone func(Result)
}

func NewRunner(p *pipeline.Pipeline, parallel int) *Runner {
	return &Runner{
		Pipeline: p,
		Parallel: parallel,
		Logger:   zerolog.Nop(),
		Metrics:  metrics.NewBatchCollector(),
	}
}

// Run processes jobs with at most Parallel in flight. A failing job never
// stops its siblings; cancelling ctx stops scheduling new ones. Results
// keep the order of jobs.
func (r *Runner) Run(ctx context.Context, jobs []Job) (Summary, error) {
	if err := checkOutputs(jobs); err != nil {
		return Summary{}, err
	}

	parallel := r.Parallel
	if parallel < 1 {
		parallel = 1
	}

	runID := uuid.NewString()
	log := r.Logger.With().Str("run_id", runID).Logger()
	log.Info().Int("jobs", len(jobs)).Int("parallel", parallel).Msg("batch started")
	metrics.SetBatchWorkers(parallel)
	defer metrics.SetBatchWorkers(0)

	start := time.Now()
	results := make([]Result, len(jobs))

	var g errgroup.Group
	g.SetLimit(parallel)

	var mu sync.Mutex
	done := func(i int, res Result) {
		mu.Lock()
		results[i] = res
		mu.Unlock()
		metrics.RecordBatchFile(res.Status)
		if r.OnDone != nil {
			r.OnDone(res)
		}
	}

	for i, job := range jobs {
		if ctx.Err() != nil {
			done(i, Result{Job: job, Status: StatusCanceled, Err: ctx.Err()})
			continue
		}
		g.Go(func() error {
			res := r.runJob(ctx, runID, job, log)
			done(i, res)
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{RunID: runID, Results: results, Duration: time.Since(start)}
	for _, res := range results {
		switch res.Status {
		case StatusSuccess:
			summary.Succeeded++
		case StatusCanceled:
			summary.Canceled++
		default:
			summary.Failed++
		}
	}

	log.Info().
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("canceled", summary.Canceled).
		Dur("duration", summary.Duration).
		Msg("batch finished")

	return summary, nil
}

func (r *Runner) runJob(ctx context.Context, runID string, job Job, log zerolog.Logger) (res Result) {
	start := time.Now()
	r.Metrics.FileStarted()
	defer func() { r.Metrics.FileFinished(res.Status, res.Duration) }()

	ctx, span := tracing.StartFileSpan(ctx, runID, job.Input)
	defer span.End()
	ctx = logger.WithFile(ctx, job.Input)

	output, err := r.process(ctx, job)
	res = Result{Job: job, Output: output, Err: err}
	if err == nil && r.Store != nil {
		res.Published, res.Err = r.publish(ctx, job)
		err = res.Err
	}
	res.Duration = time.Since(start)

	switch {
	case err == nil:
		res.Status = StatusSuccess
		log.Debug().Str("input", job.Input).Str("output", job.Output).Dur("duration", res.Duration).Msg("file processed")
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		res.Status = StatusCanceled
		log.Warn().Str("input", job.Input).Err(err).Msg("file canceled")
	default:
		res.Status = StatusFailed
		tracing.RecordError(ctx, err)
		log.Error().Str("input", job.Input).Err(err).Msg("file failed")
	}
	return res
}

func (r *Runner) process(ctx context.Context, job Job) (*processor.Result, error) {
	var width, height int
	if job.Profile.NeedsSize() {
		size, err := r.Pipeline.QuerySize(ctx, job.Input)
		if err != nil {
			return nil, err
		}
		width, height = size.Width, size.Height
	}

	orientation := processor.OrientationUnknown
	if !job.Profile.KeepExif {
		o, err := r.Pipeline.QueryOrientation(ctx, job.Input)
		if err != nil {
			return nil, err
		}
		orientation = o
	}

	if err := os.MkdirAll(filepath.Dir(job.Output), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	return r.Pipeline.Process(ctx, job.Input, job.Output, job.Profile.Options(width, height, orientation))
}

func (r *Runner) publish(ctx context.Context, job Job) (string, error) {
	start := time.Now()
	rel := job.Key
	if rel == "" {
		rel = filepath.Base(job.Output)
	}
	key := storage.Key(r.Prefix, rel)

	err := storage.PublishFile(ctx, r.Store, key, job.Output)
	metrics.RecordOperation(opPublish, err, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", key, err)
	}
	return key, nil
}

func checkOutputs(jobs []Job) error {
	seen := make(map[string]string, len(jobs))
	for _, j := range jobs {
		key := filepath.Clean(j.Output)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s and %s both write %s", ErrDuplicateOutput, prev, j.Input, j.Output)
		}
		seen[key] = j.Input
	}
	return nil
}

// Collect lists the image files under dir, sorted. Hidden entries are
// ignored.
func Collect(dir string, recursive bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if config.IsImageFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Plan maps files under inDir to jobs writing into outDir, keeping the
// relative layout. rules may be nil.
func Plan(cfg *config.Config, rules *config.BatchConfig, base config.Profile, inDir, outDir string, files []string) ([]Job, []string, error) {
	if rules == nil {
		rules = &config.BatchConfig{}
	}

	var jobs []Job
	var skipped []string
	for _, f := range files {
		rel, err := filepath.Rel(inDir, f)
		if err != nil {
			return nil, nil, err
		}
		if rules.ShouldSkip(rel) {
			skipped = append(skipped, f)
			continue
		}

		profile, err := rules.Resolve(cfg, rel, base)
		if err != nil {
			return nil, nil, err
		}

		out := strings.TrimSuffix(rel, filepath.Ext(rel)) + rules.OutputExt(rel)
		jobs = append(jobs, Job{
			Input:   f,
			Output:  filepath.Join(outDir, out),
			Key:     filepath.ToSlash(out),
			Profile: profile,
		})
	}
	return jobs, skipped, nil
}
