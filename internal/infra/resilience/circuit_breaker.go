package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/sony/gobreaker"
)

// State mirrors the circuit breaker's CLOSED/OPEN/HALF_OPEN states (§4.11).
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

func stateToMetricInt(s State) int {
	switch s {
	case StateOpen:
		return 1
	case StateHalfOpen:
		return 2
	default:
		return 0
	}
}

func fromGobreakerState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// CircuitBreaker protects a call behind the CLOSED/OPEN/HALF_OPEN state
// machine in §4.11: fast-reject while OPEN, admit a limited trial while
// HALF_OPEN, trip back to OPEN per should_open()'s policy.
type CircuitBreaker interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
	State() State
	Name() string

	// ForceOpen manually trips the breaker regardless of should_open().
	ForceOpen()
	// ForceHalfOpen manually admits the next call as a half-open trial.
	ForceHalfOpen()
	// Reset clears manual overrides and rolling-window history, returning
	// the breaker to CLOSED.
	Reset()
}

const noOverride int32 = 0
const overrideOpen int32 = 1
const overrideHalfOpen int32 = 2

type circuitBreaker struct {
	name string
	cfg  CircuitBreakerConfig

	mu sync.Mutex
	cb *gobreaker.CircuitBreaker[struct{}]

	override atomic.Int32

	windowMu sync.Mutex
	window   []bool
	windowAt int

	logger        *slog.Logger
	onStateChange func(name string, from, to State)
	metrics       *CircuitBreakerMetrics
}

// CircuitBreakerOption configures a CircuitBreaker.
type CircuitBreakerOption func(*circuitBreaker)

// WithCBLogger sets the logger used for state-change diagnostics.
func WithCBLogger(l *slog.Logger) CircuitBreakerOption {
	return func(b *circuitBreaker) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithCBMetrics attaches Prometheus instrumentation.
func WithCBMetrics(m *CircuitBreakerMetrics) CircuitBreakerOption {
	return func(b *circuitBreaker) {
		if m != nil {
			b.metrics = m
		}
	}
}

// WithOnStateChange registers a callback invoked after every state
// transition, with the breaker's own lock released.
func WithOnStateChange(fn func(name string, from, to State)) CircuitBreakerOption {
	return func(b *circuitBreaker) { b.onStateChange = fn }
}

// NewCircuitBreaker creates a CircuitBreaker for the given configuration.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig, opts ...CircuitBreakerOption) CircuitBreaker {
	if err := cfg.validate(); err != nil {
		panic("resilience: invalid circuit breaker config: " + err.Error())
	}

	b := &circuitBreaker{name: name, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	if b.cfg.RollingWindowSize > 0 {
		b.window = make([]bool, 0, b.cfg.RollingWindowSize)
	}
	b.cb = b.newGobreaker()
	return b
}

func (b *circuitBreaker) newGobreaker() *gobreaker.CircuitBreaker[struct{}] {
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        b.name,
		MaxRequests: uint32(b.cfg.SuccessThreshold),
		Timeout:     b.cfg.OpenTimeout,
		ReadyToTrip: b.shouldOpen,
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.handleStateChange(fromGobreakerState(from), fromGobreakerState(to))
		},
	})
}

// shouldOpen implements §4.11's should_open() policy: when a rolling window
// is configured, trip on failure rate once the minimum sample threshold is
// reached; otherwise trip on consecutive failures.
func (b *circuitBreaker) shouldOpen(counts gobreaker.Counts) bool {
	if b.cfg.RollingWindowSize > 0 {
		total, failures := b.windowCounts()
		if total < b.cfg.MinimumRequestThreshold {
			return false
		}
		return float64(failures)/float64(total) >= b.cfg.FailureRateThreshold
	}
	return counts.ConsecutiveFailures >= uint32(b.cfg.FailureThreshold)
}

func (b *circuitBreaker) recordWindow(success bool) {
	if b.cfg.RollingWindowSize == 0 {
		return
	}
	b.windowMu.Lock()
	defer b.windowMu.Unlock()
	if len(b.window) < b.cfg.RollingWindowSize {
		b.window = append(b.window, success)
	} else {
		b.window[b.windowAt] = success
		b.windowAt = (b.windowAt + 1) % b.cfg.RollingWindowSize
	}
}

func (b *circuitBreaker) windowCounts() (total, failures int) {
	b.windowMu.Lock()
	defer b.windowMu.Unlock()
	total = len(b.window)
	for _, ok := range b.window {
		if !ok {
			failures++
		}
	}
	return total, failures
}

func (b *circuitBreaker) resetWindow() {
	b.windowMu.Lock()
	defer b.windowMu.Unlock()
	b.window = b.window[:0]
	b.windowAt = 0
}

func (b *circuitBreaker) handleStateChange(from, to State) {
	b.logger.Info("circuit breaker state change", "name", b.name, "from", from, "to", to)
	if b.metrics != nil {
		b.metrics.RecordTransition(b.name, string(from), string(to))
		b.metrics.SetState(b.name, stateToMetricInt(to))
	}
	if b.onStateChange != nil {
		b.onStateChange(b.name, from, to)
	}
}

func (b *circuitBreaker) Name() string { return b.name }

func (b *circuitBreaker) State() State {
	if b.override.Load() == overrideOpen {
		return StateOpen
	}
	b.mu.Lock()
	cb := b.cb
	b.mu.Unlock()
	return fromGobreakerState(cb.State())
}

func (b *circuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return NewCancelledError(err)
	}

	switch b.override.Load() {
	case overrideOpen:
		return NewCircuitOpenError(ErrCircuitOpen)
	case overrideHalfOpen:
		// Admit exactly one trial call, then resolve the override based on
		// its outcome: success clears it and resets the breaker, failure
		// re-trips it open.
		err := fn(ctx)
		b.recordWindow(err == nil)
		if err == nil {
			b.override.Store(noOverride)
			b.Reset()
		} else {
			b.override.Store(overrideOpen)
		}
		return err
	}

	b.mu.Lock()
	cb := b.cb
	b.mu.Unlock()

	_, err := cb.Execute(func() (struct{}, error) {
		opErr := fn(ctx)
		b.recordWindow(opErr == nil)
		return struct{}{}, opErr
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return NewCircuitOpenError(err)
		}
		return err
	}
	return nil
}

func (b *circuitBreaker) ForceOpen() {
	b.override.Store(overrideOpen)
	b.handleStateChange(b.State(), StateOpen)
}

func (b *circuitBreaker) ForceHalfOpen() {
	b.override.Store(overrideHalfOpen)
	b.handleStateChange(StateOpen, StateHalfOpen)
}

func (b *circuitBreaker) Reset() {
	from := b.State()
	b.override.Store(noOverride)
	b.resetWindow()
	b.mu.Lock()
	b.cb = b.newGobreaker()
	b.mu.Unlock()
	b.handleStateChange(from, StateClosed)
}
