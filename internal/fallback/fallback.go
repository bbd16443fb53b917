// Package fallback makes an unreliable operation non-fatal by substituting a
// deterministic computation when it fails.
package fallback

import (
	"context"
	"fmt"
	"log/slog"

	"clipmato/internal/logging"
)

// Wrap returns an operation that calls primary and, when it returns an error or
// panics, logs a warning and returns secondary's result for the same argument.
// Only secondary's own error can escape.
func Wrap[A, R any](logger *slog.Logger, name string, primary, secondary func(context.Context, A) (R, error)) func(context.Context, A) (R, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	return func(ctx context.Context, arg A) (R, error) {
		result, err := call(ctx, primary, arg)
		if err == nil {
			return result, nil
		}
		logging.WarnWithContext(logging.WithContext(ctx, logger), "primary call failed; using fallback", "fallback_engaged",
			logging.String("operation", name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the upstream service configuration"),
			logging.String(logging.FieldImpact, "deterministic result returned instead"),
		)
		return secondary(ctx, arg)
	}
}

func call[A, R any](ctx context.Context, op func(context.Context, A) (R, error), arg A) (result R, err error) {
	if op == nil {
		return result, fmt.Errorf("operation not configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return op(ctx, arg)
}
