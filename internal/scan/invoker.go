package scan

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/telephasma/telephasma/internal/platform"
)

// Retry policy defaults. Rate-limit waits are not part of the attempt
// budget; only session-contention retries consume it.
const (
	// DefaultMaxAttempts bounds retries for session-contention failures.
	DefaultMaxAttempts = 5

	// DefaultWaitTick is the granularity of rate-limit waits. Waiting in
	// increments keeps long platform-imposed sleeps interruptible.
	DefaultWaitTick = time.Second

	// DefaultBusyBackoffUnit scales the linear backoff applied to session
	// contention: attempt n sleeps n * unit.
	DefaultBusyBackoffUnit = 500 * time.Millisecond
)

// Invoker wraps a single remote call with the scanner's failure policy.
// All failures are resolved locally: Do reports only success or "no data",
// and never panics or propagates an error to the caller.
type Invoker struct {
	maxAttempts     int
	waitTick        time.Duration
	busyBackoffUnit time.Duration
	logger          *slog.Logger
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithMaxAttempts overrides the session-contention retry budget.
func WithMaxAttempts(n int) InvokerOption {
	return func(inv *Invoker) {
		inv.maxAttempts = n
	}
}

// WithWaitTick overrides the rate-limit wait granularity. Tests use small
// ticks to keep wait loops fast.
func WithWaitTick(d time.Duration) InvokerOption {
	return func(inv *Invoker) {
		inv.waitTick = d
	}
}

// WithBusyBackoffUnit overrides the linear backoff unit for session
// contention.
func WithBusyBackoffUnit(d time.Duration) InvokerOption {
	return func(inv *Invoker) {
		inv.busyBackoffUnit = d
	}
}

// WithInvokerLogger sets the logger used for retry and failure reporting.
func WithInvokerLogger(logger *slog.Logger) InvokerOption {
	return func(inv *Invoker) {
		inv.logger = logger
	}
}

// NewInvoker creates an Invoker with the default retry policy.
func NewInvoker(opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		maxAttempts:     DefaultMaxAttempts,
		waitTick:        DefaultWaitTick,
		busyBackoffUnit: DefaultBusyBackoffUnit,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Do executes fn under the retry policy and reports whether it succeeded.
// name identifies the call in logs.
//
// Policy, in order of precedence:
//   - stop requested before issuing a call: false, no call is made
//   - rate limit: wait the reported duration in interruptible increments,
//     then retry the same attempt without consuming budget
//   - session contention: linear backoff, consumes one attempt; false once
//     the budget is exhausted
//   - soft failure (privacy restriction, unsupported filter): false
//     immediately, no retry
//   - anything else: logged, false
func (inv *Invoker) Do(ctx context.Context, st *Stopper, name string, fn func(context.Context) error) bool {
	for attempt := 0; attempt < inv.maxAttempts; attempt++ {
		// Inner loop: rate-limit retries stay on the same attempt.
		for {
			if st.Stopped() || ctx.Err() != nil {
				inv.logger.Info("call aborted by stop signal", "call", name)
				return false
			}

			err := fn(ctx)
			if err == nil {
				return true
			}

			var rl *platform.RateLimitError
			if errors.As(err, &rl) {
				inv.logger.Warn("rate limited",
					"call", name,
					"retry_after", rl.RetryAfter,
				)
				if !inv.waitRateLimit(ctx, st, rl.RetryAfter) {
					return false
				}
				continue
			}

			var busy *platform.SessionBusyError
			if errors.As(err, &busy) {
				backoff := time.Duration(attempt+1) * inv.busyBackoffUnit
				inv.logger.Warn("session storage busy",
					"call", name,
					"attempt", attempt+1,
					"max_attempts", inv.maxAttempts,
					"backoff", backoff,
				)
				if !sleepInterruptible(ctx, st, backoff) {
					return false
				}
				break
			}

			if platform.IsSoft(err) {
				inv.logger.Debug("soft failure, treating as no data", "call", name, "error", err)
				return false
			}

			inv.logger.Error("call failed", "call", name, "error", err)
			return false
		}
	}

	inv.logger.Warn("retry budget exhausted", "call", name, "attempts", inv.maxAttempts)
	return false
}

// waitRateLimit sleeps the platform-imposed wait in waitTick increments,
// checking for cancellation before each increment, then sleeps the
// remaining fraction. Returns false when interrupted.
func (inv *Invoker) waitRateLimit(ctx context.Context, st *Stopper, wait time.Duration) bool {
	for remaining := wait; remaining > 0; remaining -= inv.waitTick {
		if st.Stopped() || ctx.Err() != nil {
			return false
		}
		step := inv.waitTick
		if remaining < step {
			step = remaining
		}
		if !sleepInterruptible(ctx, st, step) {
			return false
		}
	}
	return true
}
