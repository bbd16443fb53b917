package pipeline

import (
	"context"
	"fmt"
)

// State is the per-run key/value map threading step outputs to later inputs.
type State map[string]any

// Tuple is a multi-value step result, unpacked in order across Step.Outputs.
type Tuple []any

// Func is the untyped call signature shared by every step. args holds the
// values of Step.Inputs in declaration order.
type Func func(ctx context.Context, args []any) (any, error)

// Summarizer renders a short log description of a step result.
type Summarizer func(result any) string

// Step describes one named pipeline stage. Steps are values and are not
// modified by the pipeline.
type Step struct {
	Name      string
	Call      Func
	Inputs    []string
	Outputs   []string
	Offload   bool
	Summarize Summarizer
}

// Unary adapts a typed single-argument function into a Func.
func Unary[A, R any](fn func(context.Context, A) (R, error)) Func {
	return func(ctx context.Context, args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expected 1 argument, got %d", len(args))
		}
		arg, ok := args[0].(A)
		if !ok {
			var zero A
			return nil, fmt.Errorf("argument has type %T, want %T", args[0], zero)
		}
		return fn(ctx, arg)
	}
}

// Get returns the value stored under key converted to T.
func Get[T any](state State, key string) (T, bool) {
	var zero T
	raw, ok := state[key]
	if !ok {
		return zero, false
	}
	value, ok := raw.(T)
	return value, ok
}

func (s Step) inputs(state State) ([]any, error) {
	args := make([]any, 0, len(s.Inputs))
	for _, key := range s.Inputs {
		value, ok := state[key]
		if !ok {
			return nil, fmt.Errorf("step %s: missing input %q", s.Name, key)
		}
		args = append(args, value)
	}
	return args, nil
}

func (s Step) store(state State, result any) error {
	switch len(s.Outputs) {
	case 0:
		return nil
	case 1:
		state[s.Outputs[0]] = result
		return nil
	}
	values, ok := result.(Tuple)
	if !ok {
		return fmt.Errorf("step %s: expected %d results, got %T", s.Name, len(s.Outputs), result)
	}
	if len(values) != len(s.Outputs) {
		return fmt.Errorf("step %s: expected %d results, got %d", s.Name, len(s.Outputs), len(values))
	}
	for i, key := range s.Outputs {
		state[key] = values[i]
	}
	return nil
}
