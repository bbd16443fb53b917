package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clipmato/internal/logging"
	"clipmato/internal/services"
)

// Reporter receives a stage transition before each step executes.
type Reporter interface {
	Update(ctx context.Context, jobID, stage, message string) error
}

// Pipeline executes Steps strictly in declaration order.
type Pipeline struct {
	steps    []Step
	progress Reporter
	pool     *WorkerPool
	logger   *slog.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithWorkerPool sets the pool used for offloaded steps. Pipelines built for
// different jobs should share one pool.
func WithWorkerPool(pool *WorkerPool) Option {
	return func(p *Pipeline) {
		if pool != nil {
			p.pool = pool
		}
	}
}

// New builds a pipeline over steps reporting stage transitions to progress.
func New(progress Reporter, steps []Step, opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:    append([]Step(nil), steps...),
		progress: progress,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.pool == nil {
		p.pool = NewWorkerPool(1)
	}
	return p
}

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		names = append(names, step.Name)
	}
	return names
}

// Run executes every step against state and returns it. A step error is
// returned unmodified and no later step runs; the caller owns discarding the
// partial state.
func (p *Pipeline) Run(ctx context.Context, jobID string, state State) (State, error) {
	if state == nil {
		state = State{}
	}
	ctx = services.WithJobID(ctx, jobID)

	for _, step := range p.steps {
		stepCtx := services.WithStage(ctx, step.Name)
		logger := logging.WithContext(stepCtx, p.logger)

		args, err := step.inputs(state)
		if err != nil {
			return state, services.Wrap(services.ErrValidation, step.Name, "read inputs", "", err)
		}
		if p.progress != nil {
			if err := p.progress.Update(stepCtx, jobID, step.Name, ""); err != nil {
				return state, fmt.Errorf("record progress for %s: %w", step.Name, err)
			}
		}

		logger.Info("stage started",
			logging.String(logging.FieldEventType, "stage_start"),
			logging.Bool("offloaded", step.Offload),
		)
		started := time.Now()

		var result any
		if step.Offload {
			result, err = p.pool.Do(stepCtx, func() (any, error) { return step.Call(stepCtx, args) })
		} else {
			result, err = step.Call(stepCtx, args)
		}
		if err != nil {
			return state, err
		}
		if err := step.store(state, result); err != nil {
			return state, services.Wrap(services.ErrValidation, step.Name, "store outputs", "", err)
		}

		attrs := []logging.Attr{
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
		}
		if step.Summarize != nil {
			attrs = append(attrs, logging.String("summary", step.Summarize(result)))
		}
		logger.Info("stage completed", logging.Args(attrs...)...)
	}
	return state, nil
}
