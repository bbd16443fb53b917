package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipmato/internal/pipeline"
)

type recordingReporter struct {
	mu     sync.Mutex
	stages []string
	fail   error
}

func (r *recordingReporter) Update(_ context.Context, _ string, stage, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.stages = append(r.stages, stage)
	return nil
}

func upper(_ context.Context, s string) (string, error) {
	return strings.ToUpper(s), nil
}

func TestRunThreadsOutputsInOrder(t *testing.T) {
	reporter := &recordingReporter{}
	var order []string
	split := func(_ context.Context, s string) (pipeline.Tuple, error) {
		order = append(order, "split")
		return pipeline.Tuple{s[:2], len(s)}, nil
	}

	p := pipeline.New(reporter, []pipeline.Step{
		{Name: "shout", Call: pipeline.Unary(func(ctx context.Context, s string) (string, error) {
			order = append(order, "shout")
			return upper(ctx, s)
		}), Inputs: []string{"text"}, Outputs: []string{"loud"}},
		{Name: "split", Call: pipeline.Unary(split), Inputs: []string{"loud"}, Outputs: []string{"head", "size"}, Offload: true},
	})

	state, err := p.Run(context.Background(), "job-1", pipeline.State{"text": "hello"})
	require.NoError(t, err)

	assert.Equal(t, []string{"shout", "split"}, order)
	assert.Equal(t, []string{"shout", "split"}, reporter.stages)
	assert.Equal(t, "HELLO", state["loud"])
	assert.Equal(t, "HE", state["head"])
	assert.Equal(t, 5, state["size"])
	assert.Equal(t, []string{"shout", "split"}, p.Steps())
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	reporter := &recordingReporter{}
	boom := errors.New("model returned garbage")
	var laterRan atomic.Bool

	p := pipeline.New(reporter, []pipeline.Step{
		{Name: "first", Call: pipeline.Unary(upper), Inputs: []string{"text"}, Outputs: []string{"a"}},
		{Name: "second", Call: func(context.Context, []any) (any, error) { return nil, boom }, Outputs: []string{"b"}},
		{Name: "third", Call: func(context.Context, []any) (any, error) {
			laterRan.Store(true)
			return "x", nil
		}, Outputs: []string{"c"}},
	})

	state, err := p.Run(context.Background(), "job-2", pipeline.State{"text": "x"})
	require.Error(t, err)
	assert.Same(t, boom, err, "step errors must propagate unmodified")
	assert.False(t, laterRan.Load())
	assert.NotContains(t, state, "c")
	assert.Equal(t, []string{"first", "second"}, reporter.stages)
}

func TestRunSummarizerReceivesResult(t *testing.T) {
	var summarized any
	p := pipeline.New(nil, []pipeline.Step{{
		Name:    "count",
		Call:    pipeline.Unary(upper),
		Inputs:  []string{"text"},
		Outputs: []string{"out"},
		Summarize: func(result any) string {
			summarized = result
			return "done"
		},
	}})

	_, err := p.Run(context.Background(), "job-3", pipeline.State{"text": "abc"})
	require.NoError(t, err)
	assert.Equal(t, "ABC", summarized)
}

func TestRunRejectsMissingInput(t *testing.T) {
	called := false
	p := pipeline.New(nil, []pipeline.Step{{
		Name:    "needs",
		Call:    func(context.Context, []any) (any, error) { called = true; return nil, nil },
		Inputs:  []string{"absent"},
		Outputs: []string{"out"},
	}})

	_, err := p.Run(context.Background(), "job-4", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent")
	assert.False(t, called)
}

func TestRunRejectsTupleArityMismatch(t *testing.T) {
	p := pipeline.New(nil, []pipeline.Step{{
		Name:    "pair",
		Call:    func(context.Context, []any) (any, error) { return pipeline.Tuple{1}, nil },
		Outputs: []string{"a", "b"},
	}})

	_, err := p.Run(context.Background(), "job-5", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 results")
}

func TestRunAbortsWhenProgressWriteFails(t *testing.T) {
	reporter := &recordingReporter{fail: errors.New("disk full")}
	called := false
	p := pipeline.New(reporter, []pipeline.Step{{
		Name: "only",
		Call: func(context.Context, []any) (any, error) { called = true; return nil, nil },
	}})

	_, err := p.Run(context.Background(), "job-6", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, reporter.fail)
	assert.False(t, called)
}

func TestUnaryRejectsWrongType(t *testing.T) {
	fn := pipeline.Unary(upper)
	_, err := fn(context.Background(), []any{42})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "int")
}

func TestOffloadedStepsRespectPoolBound(t *testing.T) {
	pool := pipeline.NewWorkerPool(2)
	var active, peak atomic.Int32
	slow := func(context.Context, []any) (any, error) {
		now := active.Add(1)
		for {
			prev := peak.Load()
			if now <= prev || peak.CompareAndSwap(prev, now) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		return "ok", nil
	}

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			p := pipeline.New(nil, []pipeline.Step{{Name: "media", Call: slow, Outputs: []string{"out"}, Offload: true}}, pipeline.WithWorkerPool(pool))
			_, err := p.Run(context.Background(), "job", nil)
			assert.NoError(t, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 2, pool.Size())
}

func TestGet(t *testing.T) {
	state := pipeline.State{"n": 3, "s": "x"}
	n, ok := pipeline.Get[int](state, "n")
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	_, ok = pipeline.Get[int](state, "s")
	assert.False(t, ok)
	_, ok = pipeline.Get[string](state, "missing")
	assert.False(t, ok)
}
