package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"recplan/internal/logging"
	"recplan/internal/services"
	"recplan/internal/timeline"
)

// ErrPoolClosed is returned by Submit after Wait has been called.
var ErrPoolClosed = errors.New("render pool closed")

// Hooks observe task lifecycle. Callbacks run on the submitting goroutine
// (OnSubmit) or a worker goroutine (OnComplete) and must be safe for
// concurrent use.
type Hooks struct {
	OnSubmit   func(runID string, section timeline.Section)
	OnComplete func(runID string, sequence int, err error)
}

// Options configures a Pool.
type Options struct {
	RunID         string
	Parallelism   int
	QueueSize     int
	WorkDir       string
	KeepWorkspace bool
	Policy        FailurePolicy
	Hooks         Hooks
}

// Report summarizes a finished pool. Sequence lists are sorted.
type Report struct {
	Completed []int
	Failed    []int
	// Skipped lists sections that never ran because the pool was cancelled.
	Skipped []int
	// Err is the first failure under PolicyAbort, or the cancellation cause
	// when the parent context ended early.
	Err      error
	Duration time.Duration
}

// Submitted returns how many sections were handed to the pool.
func (r Report) Submitted() int {
	return len(r.Completed) + len(r.Failed) + len(r.Skipped)
}

// Pool is a fixed-size render worker pool.
type Pool struct {
	renderer Renderer
	opts     Options
	logger   *slog.Logger

	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
	tasks  chan Task
	wg     sync.WaitGroup
	start  time.Time

	submitMu sync.Mutex
	closed   bool

	mu        sync.Mutex
	completed []int
	failed    []int
	skipped   []int
	firstErr  error
}

// NewPool starts opts.Parallelism workers bound to ctx.
func NewPool(ctx context.Context, renderer Renderer, opts Options, logger *slog.Logger) (*Pool, error) {
	if renderer == nil {
		return nil, errors.New("render pool requires a renderer")
	}
	if opts.Parallelism < 1 {
		return nil, fmt.Errorf("render parallelism must be at least 1, got %d", opts.Parallelism)
	}
	if opts.Policy == "" {
		opts.Policy = PolicyContinue
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = opts.Parallelism * 2
	}

	poolCtx, cancel := context.WithCancel(ctx)
	p := &Pool{
		renderer: renderer,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "render"),
		parent:   ctx,
		ctx:      poolCtx,
		cancel:   cancel,
		tasks:    make(chan Task, opts.QueueSize),
		start:    time.Now(),
	}
	p.wg.Add(opts.Parallelism)
	for i := 0; i < opts.Parallelism; i++ {
		go p.worker()
	}
	return p, nil
}

// Submit queues a section. It blocks while the queue is full and fails once
// the pool is closed or cancelled.
func (p *Pool) Submit(section timeline.Section) error {
	p.submitMu.Lock()
	defer p.submitMu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	if err := p.ctx.Err(); err != nil {
		return p.cancelCause(err)
	}

	task := Task{
		RunID:     p.opts.RunID,
		Section:   section.Clone(),
		Workspace: WorkspacePath(p.opts.WorkDir, p.opts.RunID, section.Sequence),
	}
	if p.opts.Hooks.OnSubmit != nil {
		p.opts.Hooks.OnSubmit(p.opts.RunID, task.Section)
	}

	select {
	case p.tasks <- task:
		return nil
	case <-p.ctx.Done():
		p.record(section.Sequence, nil, true)
		return p.cancelCause(p.ctx.Err())
	}
}

// Wait closes the queue and blocks until every queued task has finished.
func (p *Pool) Wait() Report {
	p.submitMu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.submitMu.Unlock()

	p.wg.Wait()
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	report := Report{
		Completed: slices.Sorted(slices.Values(p.completed)),
		Failed:    slices.Sorted(slices.Values(p.failed)),
		Skipped:   slices.Sorted(slices.Values(p.skipped)),
		Err:       p.firstErr,
		Duration:  time.Since(p.start),
	}
	if report.Err == nil && p.parent.Err() != nil {
		report.Err = p.parent.Err()
	}
	return report
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		if p.ctx.Err() != nil {
			p.record(task.Section.Sequence, nil, true)
			continue
		}
		err := p.run(task)
		cancelled := err != nil && p.ctx.Err() != nil && errors.Is(err, context.Canceled)
		p.record(task.Section.Sequence, err, cancelled)
	}
}

func (p *Pool) run(task Task) error {
	seq := task.Section.Sequence
	ctx := services.WithSection(services.WithRunID(p.ctx, task.RunID), seq)
	logger := logging.WithContext(ctx, p.logger)
	started := time.Now()

	if err := os.MkdirAll(task.Workspace, 0o755); err != nil {
		err = services.Wrap(services.ErrConfiguration, "render", "workspace", "create section workspace", err)
		p.fail(logger, task, err)
		return err
	}

	err := p.renderer.Render(ctx, task)
	if err != nil {
		if p.ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return err
		}
		p.fail(logger, task, err)
		return err
	}

	if !p.opts.KeepWorkspace {
		if rmErr := os.RemoveAll(task.Workspace); rmErr != nil {
			logging.WarnWithContext(logger, "section workspace cleanup failed", "workspace_cleanup_failed",
				logging.String("workspace", task.Workspace),
				logging.Error(rmErr),
				logging.String(logging.FieldErrorHint, "remove the directory manually"),
				logging.String(logging.FieldImpact, "temporary files remain in work_dir"),
			)
		}
	}
	logger.Debug("section rendered",
		logging.Int64("start_ms", task.Section.Start),
		logging.Int64("render_end_ms", task.Section.RenderEnd()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func (p *Pool) fail(logger *slog.Logger, task Task, err error) {
	if p.opts.Policy == PolicyAbort {
		p.mu.Lock()
		if p.firstErr == nil {
			p.firstErr = fmt.Errorf("section %d: %w", task.Section.Sequence, err)
		}
		p.mu.Unlock()
		logging.ErrorWithContext(logger, "section render failed; aborting run", "section_render_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the renderer output for this section"),
		)
		p.cancel()
		return
	}
	logging.WarnWithContext(logger, "section render failed; continuing", "section_render_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "inspect the renderer output for this section"),
		logging.String(logging.FieldImpact, "section missing from final output"),
	)
}

func (p *Pool) record(sequence int, err error, skipped bool) {
	p.mu.Lock()
	switch {
	case skipped:
		p.skipped = append(p.skipped, sequence)
	case err != nil:
		p.failed = append(p.failed, sequence)
	default:
		p.completed = append(p.completed, sequence)
	}
	p.mu.Unlock()

	if p.opts.Hooks.OnComplete != nil {
		if skipped && err == nil {
			err = context.Canceled
		}
		p.opts.Hooks.OnComplete(p.opts.RunID, sequence, err)
	}
}

func (p *Pool) cancelCause(err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.firstErr != nil {
		return p.firstErr
	}
	return err
}
