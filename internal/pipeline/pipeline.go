package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"recplan/internal/config"
	"recplan/internal/fileutil"
	"recplan/internal/ingest"
	"recplan/internal/layout"
	"recplan/internal/logging"
	"recplan/internal/media/ffprobe"
	"recplan/internal/preflight"
	"recplan/internal/render"
	"recplan/internal/services"
	"recplan/internal/store"
	"recplan/internal/timeline"
)

// ErrLocked reports that another run holds the output directory.
var ErrLocked = errors.New("output directory locked")

// Options tunes a single run.
type Options struct {
	// DryRun segments the timeline without touching the store or dispatching
	// sections.
	DryRun bool
	// RunID overrides the generated run identifier.
	RunID string
	// Renderer overrides the renderer built from the config.
	Renderer render.Renderer
	// Prober overrides the ffprobe prober used when probing durations.
	Prober ingest.Prober
}

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Status   store.RunStatus
	DryRun   bool
	Sections []timeline.Section
	Segment  timeline.Result
	Report   render.Report
	Ingest   ingest.Stats
	Duration time.Duration
}

// Failed returns the number of sections that did not render.
func (s *Summary) Failed() int {
	if s == nil {
		return 0
	}
	return len(s.Report.Failed)
}

type runner struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger
	store  *store.Store
	runID  string
}

// Run executes a planning run. A non-nil Summary is returned whenever a run
// id was assigned, even when the run fails.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*Summary, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "start", "config is required", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "validate config", "", err)
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = services.WithRunID(ctx, runID)
	r := &runner{
		cfg:    cfg,
		opts:   opts,
		logger: logging.WithContext(ctx, logging.NewComponentLogger(logger, "pipeline")),
		runID:  runID,
	}
	summary := &Summary{RunID: runID, DryRun: opts.DryRun, Status: store.RunRunning}
	started := time.Now()
	defer func() {
		summary.Duration = time.Since(started)
	}()

	if err := cfg.EnsureDirectories(); err != nil {
		summary.Status = store.RunRejected
		return summary, services.Wrap(services.ErrConfiguration, "pipeline", "prepare directories", "", err)
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		summary.Status = store.RunFailed
		return summary, services.Wrap(services.ErrTransient, "pipeline", "lock", "acquire output lock", err)
	}
	if !locked {
		summary.Status = store.RunRejected
		return summary, services.Wrap(services.ErrTransient, "pipeline", "lock", cfg.LockPath(), ErrLocked)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logging.WarnWithContext(r.logger, "failed to release output lock", "lock_release_failed",
				logging.String("lock", cfg.LockPath()),
				logging.Error(err),
			)
		}
	}()

	if !opts.DryRun {
		st, err := store.Open(cfg)
		if err != nil {
			summary.Status = store.RunFailed
			return summary, services.Wrap(services.ErrTransient, "pipeline", "open store", "", err)
		}
		defer st.Close()
		r.store = st
		if _, err := st.CreateRun(ctx, runID, cfg.MetadataPath(), started); err != nil {
			summary.Status = store.RunFailed
			return summary, services.Wrap(services.ErrTransient, "pipeline", "record run", "", err)
		}
	}

	r.logger.Info("planning run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("metadata", cfg.MetadataPath()),
		logging.String("output_dir", cfg.Paths.OutputDir),
		logging.Bool("dry_run", opts.DryRun),
	)

	runErr := r.execute(ctx, summary)
	r.finish(ctx, summary, runErr)
	return summary, runErr
}

func (r *runner) execute(ctx context.Context, summary *Summary) error {
	if err := r.phase(ctx, "preflight", func(phaseCtx context.Context) error {
		failed := preflight.Failures(preflight.RunAll(phaseCtx, r.cfg, r.cfg.MetadataPath()))
		if len(failed) > 0 {
			return services.Wrap(services.ErrValidation, "preflight", "check", preflight.Summary(failed), nil)
		}
		return nil
	}); err != nil {
		return err
	}

	var events []timeline.Event
	if err := r.phase(ctx, "ingest", func(phaseCtx context.Context) error {
		loader := ingest.NewLoader(ingest.Options{
			MetadataPath:   r.cfg.MetadataPath(),
			EndpointsPath:  r.cfg.EndpointsPath(),
			MediaDir:       filepath.Dir(r.cfg.MetadataPath()),
			ProbeDurations: r.cfg.Ingest.ProbeDurations,
		}, r.prober(), logging.WithContext(phaseCtx, r.logger))
		result, err := loader.Load(phaseCtx)
		summary.Ingest = result.Stats
		events = result.Events
		return err
	}); err != nil {
		return err
	}
	if !r.opts.DryRun {
		r.snapshotInputs()
	}

	segmenter, err := timeline.NewSegmenter(timeline.Options{
		Capacity:           r.cfg.Timeline.ActiveWindowCapacity,
		MinSectionDuration: r.cfg.Timeline.MinSectionDurationMs,
		FPS:                r.cfg.Timeline.OutputFPS,
		Layout:             layout.NewSpeakerStrip(r.cfg.Layout.CanvasWidth, r.cfg.Layout.CanvasHeight, r.cfg.Layout.MaxSmallTileHeight),
	}, r.logger)
	if err != nil {
		return err
	}

	if r.opts.DryRun {
		return r.phase(ctx, "segment", func(phaseCtx context.Context) error {
			result, err := segmenter.Run(phaseCtx, events, nil)
			summary.Segment = result
			summary.Sections = result.Sections
			return err
		})
	}

	pool, err := r.newPool(ctx)
	if err != nil {
		return err
	}
	segErr := r.phase(ctx, "segment", func(phaseCtx context.Context) error {
		result, err := segmenter.Run(phaseCtx, events, pool.Submit)
		summary.Segment = result
		summary.Sections = result.Sections
		return err
	})
	var renderErr error
	_ = r.phase(ctx, "render", func(context.Context) error {
		summary.Report = pool.Wait()
		renderErr = summary.Report.Err
		return renderErr
	})
	// A dispatch failure under the abort policy surfaces from both sides;
	// the pool's error names the section that failed.
	if renderErr != nil {
		return renderErr
	}
	return segErr
}

func (r *runner) newPool(ctx context.Context) (*render.Pool, error) {
	policy, err := render.ParseFailurePolicy(r.cfg.Render.FailurePolicy)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "render", "configure", "", err)
	}
	renderer, err := r.renderer()
	if err != nil {
		return nil, err
	}
	rec := &recorder{ctx: context.WithoutCancel(ctx), store: r.store, logger: r.logger}
	return render.NewPool(ctx, renderer, render.Options{
		RunID:         r.runID,
		Parallelism:   r.cfg.Render.Parallelism,
		WorkDir:       r.cfg.Paths.WorkDir,
		KeepWorkspace: r.cfg.Render.KeepWorkspace,
		Policy:        policy,
		Hooks:         rec.hooks(),
	}, r.logger)
}

func (r *runner) renderer() (render.Renderer, error) {
	if r.opts.Renderer != nil {
		return r.opts.Renderer, nil
	}
	canvas := layout.Dimension{Width: r.cfg.Layout.CanvasWidth, Height: r.cfg.Layout.CanvasHeight}
	manifest := render.NewManifestRenderer(r.cfg.Paths.OutputDir, canvas)
	if r.cfg.Render.Command == "" {
		return manifest, nil
	}
	return render.NewExecRenderer(manifest, r.cfg.Render.Command)
}

// snapshotInputs copies the recorder inputs next to the published section
// manifests.
func (r *runner) snapshotInputs() {
	for _, src := range []string{r.cfg.MetadataPath(), r.cfg.EndpointsPath()} {
		if src == "" {
			continue
		}
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := filepath.Join(r.cfg.Paths.OutputDir, filepath.Base(src))
		if filepath.Clean(dst) == filepath.Clean(src) {
			continue
		}
		if err := fileutil.CopyFileVerified(src, dst); err != nil {
			logging.WarnWithContext(r.logger, "failed to copy recorder input to output dir", "input_snapshot_failed",
				logging.String("source", src),
				logging.String("destination", dst),
				logging.Error(err),
				logging.String(logging.FieldImpact, "renderer must read inputs from the input dir"),
			)
		}
	}
}

func (r *runner) prober() ingest.Prober {
	if r.opts.Prober != nil {
		return r.opts.Prober
	}
	if !r.cfg.Ingest.ProbeDurations {
		return nil
	}
	return ffprobe.NewProber(r.cfg.Ingest.FFprobeBinary)
}

// phase runs fn and logs its outcome and duration.
func (r *runner) phase(ctx context.Context, name string, fn func(context.Context) error) error {
	phaseCtx := services.WithPhase(ctx, name)
	logger := logging.WithContext(phaseCtx, r.logger)
	start := time.Now()
	err := fn(phaseCtx)
	logger.Info("phase complete",
		logging.String(logging.FieldEventType, "phase_complete"),
		logging.Duration("phase_duration", time.Since(start)),
		logging.Bool("ok", err == nil),
	)
	return err
}

func (r *runner) finish(ctx context.Context, summary *Summary, runErr error) {
	switch {
	case runErr != nil:
		summary.Status = services.FailureStatus(runErr)
	case len(summary.Report.Failed) > 0:
		summary.Status = store.RunPartial
	default:
		summary.Status = store.RunCompleted
	}

	attrs := []logging.Attr{
		logging.String("status", string(summary.Status)),
		logging.Int("sections", len(summary.Sections)),
		logging.Int("failed", len(summary.Report.Failed)),
		logging.Int("skipped", len(summary.Report.Skipped)),
		logging.String("stopped", summary.Segment.Stopped.String()),
		logging.Int64("timeline_ms", summary.Segment.LastBoundary),
	}
	if runErr != nil {
		logging.ErrorWithContext(r.logger, "planning run failed", "run_failed",
			append(attrs, logging.Error(runErr))...)
	} else {
		attrs = append(attrs, logging.String(logging.FieldEventType, "run_complete"))
		r.logger.Info("planning run finished", logging.Args(attrs...)...)
	}

	if r.store != nil {
		outcome := store.RunOutcome{
			Status:       summary.Status,
			SectionCount: len(summary.Sections),
			FailedCount:  len(summary.Report.Failed),
		}
		if runErr != nil {
			outcome.Error = runErr.Error()
		}
		if err := r.store.FinishRun(context.WithoutCancel(ctx), r.runID, outcome); err != nil {
			logging.WarnWithContext(r.logger, "failed to persist run outcome", "run_persist_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run history shows the run as still running"),
			)
		}
	}

	if dir := r.cfg.Paths.LogDir; dir != "" {
		current := filepath.Join(dir, logging.LogFileName(time.Now()))
		logging.CleanupOldLogs(r.logger, r.cfg.Logging.RetentionDays, time.Now(), logging.RetentionTarget{
			Dir:     dir,
			Pattern: logging.LogFilePattern,
			Exclude: []string{current},
		})
	}
}

// String renders a one-line outcome for CLI output.
func (s *Summary) String() string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("run %s %s: %d sections, %d failed, %d skipped in %s",
		s.RunID, s.Status, len(s.Sections), len(s.Report.Failed), len(s.Report.Skipped), s.Duration.Round(time.Millisecond))
}
