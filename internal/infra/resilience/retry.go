package resilience

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retrier executes a fallible operation per the retry policy in §4.10: up to
// MaxRetries+1 attempts, sleeping between failures according to the
// configured backoff strategy.
type Retrier interface {
	// Execute runs fn, retrying on retryable failures. Returns
	// *ReliabilityError{Kind: KindMaxRetriesExceeded} wrapping the last
	// error once attempts are exhausted.
	Execute(ctx context.Context, fn func(ctx context.Context) error) error

	Name() string
	Stats() RetryStats
}

// RetryStats accumulates retry outcomes for observability.
type RetryStats struct {
	Successes          uint64
	Failures           uint64
	AttemptsOnSuccess  uint64 // sum of attempts across successful executions
	SuccessCount       uint64 // denominator for the running mean below
}

// MeanRetriesOnSuccess returns the running mean of (attempts-1) across
// successful executions, i.e. the average number of retries needed.
func (s RetryStats) MeanRetriesOnSuccess() float64 {
	if s.SuccessCount == 0 {
		return 0
	}
	return float64(s.AttemptsOnSuccess)/float64(s.SuccessCount) - 1
}

type retrier struct {
	name   string
	cfg    RetryConfig
	logger *slog.Logger

	successes, failures, attemptsOnSuccess, successCount atomic.Uint64
}

// RetrierOption configures a Retrier.
type RetrierOption func(*retrier)

// WithRetryLogger sets the logger used for per-attempt diagnostics.
func WithRetryLogger(l *slog.Logger) RetrierOption {
	return func(r *retrier) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRetrier creates a Retrier for the given configuration. cfg is validated
// eagerly; an invalid configuration panics, mirroring NewDomain's
// fail-fast-on-programmer-error convention elsewhere in this codebase.
func NewRetrier(name string, cfg RetryConfig, opts ...RetrierOption) Retrier {
	if err := cfg.validate(); err != nil {
		panic("resilience: invalid retry config: " + err.Error())
	}

	r := &retrier{name: name, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *retrier) Name() string { return r.name }

func (r *retrier) Stats() RetryStats {
	return RetryStats{
		Successes:         r.successes.Load(),
		Failures:          r.failures.Load(),
		AttemptsOnSuccess: r.attemptsOnSuccess.Load(),
		SuccessCount:      r.successCount.Load(),
	}
}

func (r *retrier) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := newBackoff(r.cfg)
	backoff = retry.WithMaxRetries(uint64(r.cfg.MaxRetries), backoff)

	attempt := 0
	var lastErr error

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		attemptCtx := ctx
		var cancel context.CancelFunc
		if r.cfg.TimeoutPerAttempt > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.cfg.TimeoutPerAttempt)
			defer cancel()
		}

		opErr := fn(attemptCtx)
		if opErr == nil {
			return nil
		}
		lastErr = opErr

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !IsRetryableError(opErr) {
			r.logger.Debug("non-retryable error, stopping retry", "name", r.name, "attempt", attempt, "error", opErr)
			return opErr
		}

		r.logger.Debug("operation failed, will retry", "name", r.name, "attempt", attempt, "max_retries", r.cfg.MaxRetries, "error", opErr)
		return retry.RetryableError(opErr)
	})

	if err == nil {
		r.successes.Add(1)
		r.attemptsOnSuccess.Add(uint64(attempt))
		r.successCount.Add(1)
		return nil
	}

	r.failures.Add(1)

	if errors.Is(err, context.Canceled) {
		return NewCancelledError(err)
	}
	if attempt > r.cfg.MaxRetries {
		return NewMaxRetriesExceededError(lastErr)
	}
	return err
}

// newBackoff builds the retry.Backoff implementing the configured strategy,
// optionally wrapped with the uniform(0.8,1.2) jitter multiplier §4.10
// applies to every strategy except EXPONENTIAL_JITTER (which is already
// randomized by construction).
func newBackoff(cfg RetryConfig) retry.Backoff {
	var b retry.Backoff
	switch cfg.Strategy {
	case StrategyConstant:
		b = &constantBackoff{delay: cfg.InitialDelay}
	case StrategyLinear:
		b = &linearBackoff{initial: cfg.InitialDelay, increment: cfg.LinearIncrement, maxDelay: cfg.MaxDelay}
	case StrategyExponentialJitter:
		b = &decorrelatedJitterBackoff{initial: cfg.InitialDelay, maxDelay: cfg.MaxDelay}
	default: // StrategyExponential
		b = &exponentialBackoff{initial: cfg.InitialDelay, multiplier: cfg.BackoffMultiplier, maxDelay: cfg.MaxDelay}
	}

	if cfg.Jitter && cfg.Strategy != StrategyExponentialJitter {
		b = &uniformJitterBackoff{inner: b}
	}
	return b
}

func clampDelay(d, max time.Duration) time.Duration {
	if max > 0 && d > max {
		return max
	}
	return d
}

// constantBackoff always waits the same delay.
type constantBackoff struct{ delay time.Duration }

func (b *constantBackoff) Next() (time.Duration, bool) { return b.delay, false }

// linearBackoff grows the delay by a fixed increment each attempt:
// initial + (attempt-1)*increment, capped at maxDelay.
type linearBackoff struct {
	initial, increment, maxDelay time.Duration
	attempt                      int
}

func (b *linearBackoff) Next() (time.Duration, bool) {
	d := b.initial + time.Duration(b.attempt)*b.increment
	b.attempt++
	return clampDelay(d, b.maxDelay), false
}

// exponentialBackoff grows the delay geometrically: initial*multiplier^(attempt-1),
// capped at maxDelay.
type exponentialBackoff struct {
	initial, maxDelay time.Duration
	multiplier        float64
	attempt           int
}

func (b *exponentialBackoff) Next() (time.Duration, bool) {
	d := float64(b.initial)
	for i := 0; i < b.attempt; i++ {
		d *= b.multiplier
	}
	b.attempt++
	return clampDelay(time.Duration(d), b.maxDelay), false
}

// decorrelatedJitterBackoff implements the "decorrelated jitter" strategy:
// each delay is uniform(initial, prevDelay*3), capped at maxDelay, with the
// previous delay carried as state between attempts.
type decorrelatedJitterBackoff struct {
	initial, maxDelay time.Duration
	prev              time.Duration
	mu                sync.Mutex
}

func (b *decorrelatedJitterBackoff) Next() (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	base := b.prev
	if base == 0 {
		base = b.initial
	}
	upper := base * 3
	if upper < b.initial {
		upper = b.initial
	}

	d := b.initial + time.Duration(rand.Int63n(int64(upper-b.initial+1)))
	d = clampDelay(d, b.maxDelay)
	b.prev = d
	return d, false
}

// uniformJitterBackoff multiplies the wrapped backoff's delay by
// uniform(0.8, 1.2), per §4.10's jitter option for non-decorrelated
// strategies.
type uniformJitterBackoff struct {
	inner retry.Backoff
}

func (b *uniformJitterBackoff) Next() (time.Duration, bool) {
	d, stop := b.inner.Next()
	if stop {
		return d, stop
	}
	factor := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(d) * factor), false
}

// IsRetryableError reports whether err should be retried, per §4.10's
// is_retryable_error: true for the POSIX temp/network errno set (EAGAIN,
// EINTR, ECONNREFUSED, ECONNRESET, ECONNABORTED, EHOSTUNREACH, ENETUNREACH,
// ETIMEDOUT, EPIPE, ENOTCONN), for net.Error timeouts and for
// context.DeadlineExceeded; false for any other errno (in particular
// permission/argument errors), for non-timeout net.Errors and for
// context.Canceled. Any other error, such as a circuit-open rejection, is
// treated as retryable.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EAGAIN, syscall.EINTR, syscall.ECONNREFUSED, syscall.ECONNRESET,
			syscall.ECONNABORTED, syscall.EHOSTUNREACH, syscall.ENETUNREACH,
			syscall.ETIMEDOUT, syscall.EPIPE, syscall.ENOTCONN:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return true
}

// DoWithResult executes fn with retry logic for functions that also return
// a value.
func DoWithResult[T any](r Retrier, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Execute(ctx, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = fn(ctx)
		return innerErr
	})
	return result, err
}
