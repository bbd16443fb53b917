package pipeline

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// WorkerPool bounds how many offloaded calls execute at once across all jobs
// sharing the pool.
type WorkerPool struct {
	sem  *semaphore.Weighted
	size int64
}

// NewWorkerPool returns a pool admitting size concurrent calls (minimum 1).
func NewWorkerPool(size int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{sem: semaphore.NewWeighted(int64(size)), size: int64(size)}
}

// Size reports the pool capacity.
func (p *WorkerPool) Size() int {
	return int(p.size)
}

// Do waits for a free slot, runs fn, and releases the slot. The wait honours
// ctx; fn itself is never interrupted.
func (p *WorkerPool) Do(ctx context.Context, fn func() (any, error)) (any, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)
	return fn()
}
