package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jithsungh/wisebot/internal/core/domain"
)

// DefaultUpstreamTimeout bounds each embedding, store and model call.
const DefaultUpstreamTimeout = 30 * time.Second

// callUpstream runs fn under a deadline. A deadline hit is reported as
// domain.ErrUpstreamTimeout wrapping the cause.
func callUpstream(ctx context.Context, timeout time.Duration, op string, fn func(context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := fn(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", domain.ErrUpstreamTimeout, op, err)
	}
	return err
}

// classify tags err with kind unless it already carries a more specific
// kind that callers act on.
func classify(kind, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrUpstreamTimeout),
		errors.Is(err, domain.ErrDimensionMismatch),
		errors.Is(err, domain.ErrServiceUnavailable),
		errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", kind, err)
	}
}
