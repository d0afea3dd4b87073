package reasoning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loom/internal/domain"
)

// InvokerConfig tunes the retry and timeout behavior of an Invoker.
type InvokerConfig struct {
	// StepTimeout bounds each individual attempt.
	StepTimeout time.Duration
	// RetryBaseDelay is the wait before the first retry; each further
	// retry doubles it.
	RetryBaseDelay time.Duration
	// RetryAttempts is the total number of attempts, first try included.
	RetryAttempts int
}

// Invoker wraps a Provider with per-attempt timeouts and bounded
// exponential backoff on transient failures. Non-transient failures and
// caller cancellation are returned immediately.
type Invoker struct {
	provider Provider
	config   InvokerConfig
	logger   *slog.Logger
}

// NewInvoker creates an Invoker around the given provider.
func NewInvoker(provider Provider, config InvokerConfig, logger *slog.Logger) *Invoker {
	if config.RetryAttempts < 1 {
		config.RetryAttempts = 1
	}
	return &Invoker{
		provider: provider,
		config:   config,
		logger:   logger,
	}
}

// Step runs one reasoning step, retrying transient failures.
// When all attempts fail transiently the error wraps
// domain.ErrBackendUnavailable so callers can map it to a gateway failure.
func (inv *Invoker) Step(ctx context.Context, req *Request) (Outcome, error) {
	var lastErr error

	for attempt := 1; attempt <= inv.config.RetryAttempts; attempt++ {
		if attempt > 1 {
			// 500ms, 1s, 2s, ... between attempts.
			delay := inv.config.RetryBaseDelay << (attempt - 2)
			inv.logger.Warn("reasoning step retry",
				"provider", inv.provider.Name(),
				"attempt", attempt,
				"delay", delay,
				"error", lastErr,
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		outcome, err := inv.step(ctx, req)
		if err == nil {
			return outcome, nil
		}
		if ctx.Err() != nil {
			// Caller gave up; the step error is just fallout.
			return nil, ctx.Err()
		}
		if !IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%d attempts failed, last: %v: %w",
		inv.config.RetryAttempts, lastErr, domain.ErrBackendUnavailable)
}

func (inv *Invoker) step(ctx context.Context, req *Request) (Outcome, error) {
	stepCtx := ctx
	if inv.config.StepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, inv.config.StepTimeout)
		defer cancel()
	}

	outcome, err := inv.provider.Step(stepCtx, req)
	if err != nil {
		// A deadline hit on the attempt context (not the caller's) is a
		// transient timeout worth retrying.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("step deadline exceeded: %w", ErrTimeout)
		}
		return nil, err
	}
	return outcome, nil
}
