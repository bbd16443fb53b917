package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"clipmato/internal/logging"
	"clipmato/internal/metadata"
)

// ErrRunnerClosed is returned by Submit after Close.
var ErrRunnerClosed = errors.New("job runner closed")

// Runner processes submitted jobs in the background. At most maxActive jobs
// run at once; the rest wait for a slot.
type Runner struct {
	processor *Processor
	ctx       context.Context
	jobCtx    context.Context
	sem       *semaphore.Weighted
	logger    *slog.Logger

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
	active map[string]struct{}
	done   func(metadata.Record)
}

// NewRunner returns a runner whose jobs inherit ctx. Cancelling ctx only
// affects jobs still waiting for a slot: they are recorded as failed.
func NewRunner(ctx context.Context, processor *Processor, maxActive int, logger *slog.Logger) *Runner {
	if maxActive < 1 {
		maxActive = 1
	}
	return &Runner{
		processor: processor,
		ctx:       ctx,
		jobCtx:    context.WithoutCancel(ctx),
		sem:       semaphore.NewWeighted(int64(maxActive)),
		logger:    logging.NewComponentLogger(logger, "job-runner"),
		active:    make(map[string]struct{}),
	}
}

// OnDone registers fn to run after each job commits its record.
func (r *Runner) OnDone(fn func(metadata.Record)) {
	r.mu.Lock()
	r.done = fn
	r.mu.Unlock()
}

// Submit queues job and returns immediately.
func (r *Runner) Submit(job Job) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRunnerClosed
	}
	r.active[job.ID] = struct{}{}
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(job)
	return nil
}

func (r *Runner) run(job Job) {
	defer r.wg.Done()
	defer func() {
		r.mu.Lock()
		delete(r.active, job.ID)
		r.mu.Unlock()
	}()

	var record metadata.Record
	if err := r.sem.Acquire(r.ctx, 1); err != nil {
		r.logger.Warn("job abandoned before start",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_abandoned"),
		)
		record = r.processor.Abandon(r.jobCtx, job, fmt.Errorf("daemon stopped before the job started: %w", err))
	} else {
		record = r.processor.Process(r.jobCtx, job)
		r.sem.Release(1)
	}

	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		done(record)
	}
}

// Active returns the number of submitted jobs that have not finished.
func (r *Runner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Running reports whether id was submitted and has not finished.
func (r *Runner) Running(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[id]
	return ok
}

// Wait blocks until every submitted job has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Close rejects further submissions and waits for running jobs.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
}
