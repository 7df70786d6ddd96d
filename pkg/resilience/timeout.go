package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/errors"
)

// WithTimeout runs fn under a deadline derived from ctx. fn must return
// once its context is done. A deadline hit is reported as both
// apperrors.ErrTimeout and context.DeadlineExceeded; a cancelled parent is
// passed through unchanged. A non-positive timeout runs fn directly.
func WithTimeout(ctx context.Context, timeout time.Duration, op string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(deadlineCtx)
	if err == nil || ctx.Err() != nil {
		return err
	}
	if errors.Is(deadlineCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: no result within %v: %w: %w", op, timeout, apperrors.ErrTimeout, context.DeadlineExceeded)
	}
	return err
}
