package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ConnectionEvent reports a health or breaker state change surfaced to
// connection-manager observers (§4.14's "single event stream").
type ConnectionEvent struct {
	Endpoint string
	Kind     string // "health" or "circuit_breaker"
	From     string
	To       string
}

// ConnectionEventFunc receives connection-manager events.
type ConnectionEventFunc func(ConnectionEvent)

// endpointState bundles one endpoint's enabled subcomponents. Disabled
// subcomponents are nil per §3's "disabled components are absent, not
// stub instances".
type endpointState struct {
	cfg EndpointConfig

	retrier Retrier
	breaker CircuitBreaker
	health  HealthChecker
	pool    ConnectionPool

	transportFactory func(ctx context.Context) (Transport, error)
}

// ConnectionManager owns a registry of endpoints, each with its own
// combination of retry/breaker/health/pool subcomponents, and mediates
// send/receive through them (§4.14).
type ConnectionManager interface {
	RegisterEndpoint(cfg EndpointConfig, factory func(ctx context.Context) (Transport, error)) error
	UnregisterEndpoint(name string) error

	Send(ctx context.Context, endpoint string, msg []byte) error
	SendWithRetry(ctx context.Context, endpoint string, msg []byte) error
	Receive(ctx context.Context, endpoint string) ([]byte, error)

	Start()
	Stop(drain bool, timeout time.Duration) error
}

type connectionManager struct {
	logger   *slog.Logger
	onEvent  ConnectionEventFunc
	defaultTimeout time.Duration

	mu        sync.RWMutex
	endpoints map[string]*endpointState
	running   bool
}

// ConnectionManagerOption configures a ConnectionManager.
type ConnectionManagerOption func(*connectionManager)

// WithConnManagerLogger sets the diagnostic logger.
func WithConnManagerLogger(l *slog.Logger) ConnectionManagerOption {
	return func(m *connectionManager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithConnManagerEvents registers the callback invoked for every health or
// breaker state change across all registered endpoints.
func WithConnManagerEvents(fn ConnectionEventFunc) ConnectionManagerOption {
	return func(m *connectionManager) { m.onEvent = fn }
}

// NewConnectionManager creates an empty ConnectionManager.
func NewConnectionManager(defaultTimeout time.Duration, opts ...ConnectionManagerOption) ConnectionManager {
	m := &connectionManager{
		logger:         slog.Default(),
		defaultTimeout: defaultTimeout,
		endpoints:      make(map[string]*endpointState),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *connectionManager) Start() {
	m.mu.Lock()
	m.running = true
	states := make([]*endpointState, 0, len(m.endpoints))
	for _, st := range m.endpoints {
		states = append(states, st)
	}
	m.mu.Unlock()

	for _, st := range states {
		if st.health != nil {
			st.health.Start()
		}
	}
}

// RegisterEndpoint implements §4.14's register_endpoint: build each enabled
// subcomponent, wire its callbacks into the manager's single event stream,
// and start it immediately if the manager is already running.
func (m *connectionManager) RegisterEndpoint(cfg EndpointConfig, factory func(ctx context.Context) (Transport, error)) error {
	if err := cfg.validate(); err != nil {
		return NewInvalidConfigError(err.Error())
	}

	st := &endpointState{cfg: cfg, transportFactory: factory}

	if cfg.Retry != nil {
		st.retrier = NewRetrier(cfg.Name, *cfg.Retry)
	}
	if cfg.CircuitBreaker != nil {
		st.breaker = NewCircuitBreaker(cfg.Name, *cfg.CircuitBreaker, WithOnStateChange(func(name string, from, to State) {
			m.emit(ConnectionEvent{Endpoint: name, Kind: "circuit_breaker", From: string(from), To: string(to)})
		}))
	}
	if cfg.HealthCheck != nil {
		var transport Transport
		if factory != nil {
			if t, err := factory(context.Background()); err == nil {
				transport = t
			}
		}
		st.health = NewHealthChecker(cfg.Name, *cfg.HealthCheck, transport, WithHealthStatusChange(func(endpoint string, old, new HealthStatus) {
			m.emit(ConnectionEvent{Endpoint: endpoint, Kind: "health", From: string(old), To: string(new)})
		}))
	}
	if cfg.Pool != nil {
		pool, err := NewConnectionPool(cfg.Name, *cfg.Pool, factory)
		if err != nil {
			return err
		}
		st.pool = pool
	}

	m.mu.Lock()
	m.endpoints[cfg.Name] = st
	running := m.running
	m.mu.Unlock()

	if running && st.health != nil {
		st.health.Start()
	}
	return nil
}

func (m *connectionManager) UnregisterEndpoint(name string) error {
	m.mu.Lock()
	st, ok := m.endpoints[name]
	if ok {
		delete(m.endpoints, name)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("resilience: unknown endpoint %q", name)
	}
	stopEndpoint(st)
	return nil
}

func stopEndpoint(st *endpointState) {
	if st.health != nil {
		st.health.Stop()
	}
	if st.pool != nil {
		st.pool.Close()
	}
}

func (m *connectionManager) emit(ev ConnectionEvent) {
	if m.onEvent != nil {
		m.onEvent(ev)
	}
}

func (m *connectionManager) lookup(endpoint string) (*endpointState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.endpoints[endpoint]
	if !ok {
		return nil, fmt.Errorf("resilience: unknown endpoint %q", endpoint)
	}
	return st, nil
}

// Send implements §4.14's send(): reject fast on unhealthy/open-breaker
// state, else acquire-send-record against the pool.
func (m *connectionManager) Send(ctx context.Context, endpoint string, msg []byte) error {
	st, err := m.lookup(endpoint)
	if err != nil {
		return err
	}
	return m.sendOnce(ctx, st, msg)
}

func (m *connectionManager) sendOnce(ctx context.Context, st *endpointState, msg []byte) error {
	if st.health != nil && st.health.Status() == HealthUnhealthy {
		m.emit(ConnectionEvent{Endpoint: st.cfg.Name, Kind: "send_rejected", To: string(HealthUnhealthy)})
		return NewConnectionFailedError(ErrConnectionFailed)
	}

	send := func(ctx context.Context) error {
		transport, release, err := m.acquire(ctx, st)
		if err != nil {
			return err
		}
		defer release()

		sendErr := transport.Send(ctx, msg)
		m.recordOutcome(st, sendErr)
		return sendErr
	}

	if st.breaker != nil {
		err := st.breaker.Execute(ctx, send)
		if err != nil && isCircuitOpen(err) {
			m.emit(ConnectionEvent{Endpoint: st.cfg.Name, Kind: "send_rejected", To: "CIRCUIT_OPEN"})
		}
		return err
	}
	return send(ctx)
}

func isCircuitOpen(err error) bool {
	re, ok := err.(*ReliabilityError)
	return ok && re.Kind == KindCircuitOpen
}

func (m *connectionManager) acquire(ctx context.Context, st *endpointState) (Transport, func(), error) {
	if st.pool != nil {
		conn, err := st.pool.Acquire(ctx)
		if err != nil {
			return nil, nil, err
		}
		return conn.Transport, func() { st.pool.Release(conn) }, nil
	}
	if st.transportFactory == nil {
		return nil, nil, NewConnectionFailedError(fmt.Errorf("endpoint %q has no transport factory", st.cfg.Name))
	}
	t, err := st.transportFactory(ctx)
	if err != nil {
		return nil, nil, NewConnectionFailedError(err)
	}
	return t, func() {}, nil
}

func (m *connectionManager) recordOutcome(st *endpointState, err error) {
	if st.health != nil {
		if err == nil {
			st.health.RecordSuccess()
		} else {
			st.health.RecordFailure()
		}
	}
}

// SendWithRetry implements §4.14's send_with_retry: wrap the send in the
// endpoint's retry policy, with the breaker (if any) inside the retried
// body so open-state fast-rejects count as retryable failures.
func (m *connectionManager) SendWithRetry(ctx context.Context, endpoint string, msg []byte) error {
	st, err := m.lookup(endpoint)
	if err != nil {
		return err
	}
	if st.retrier == nil {
		return m.sendOnce(ctx, st, msg)
	}
	return st.retrier.Execute(ctx, func(ctx context.Context) error {
		return m.sendOnce(ctx, st, msg)
	})
}

// Receive mirrors Send without the retry wrapper.
func (m *connectionManager) Receive(ctx context.Context, endpoint string) ([]byte, error) {
	st, err := m.lookup(endpoint)
	if err != nil {
		return nil, err
	}
	if st.health != nil && st.health.Status() == HealthUnhealthy {
		return nil, NewConnectionFailedError(ErrConnectionFailed)
	}

	var data []byte
	recv := func(ctx context.Context) error {
		transport, release, err := m.acquire(ctx, st)
		if err != nil {
			return err
		}
		defer release()

		var recvErr error
		data, recvErr = transport.Receive(ctx)
		m.recordOutcome(st, recvErr)
		return recvErr
	}

	if st.breaker != nil {
		if err := st.breaker.Execute(ctx, recv); err != nil {
			return nil, err
		}
		return data, nil
	}
	if err := recv(ctx); err != nil {
		return nil, err
	}
	return data, nil
}

// Stop implements §4.14's graceful stop(true): drain (close idle
// connections, brief grace period for in-flight releases), then stop every
// subcomponent.
func (m *connectionManager) Stop(drain bool, timeout time.Duration) error {
	m.mu.Lock()
	m.running = false
	states := make([]*endpointState, 0, len(m.endpoints))
	for _, st := range m.endpoints {
		states = append(states, st)
	}
	m.mu.Unlock()

	if drain && timeout > 0 {
		time.Sleep(timeout)
	}

	for _, st := range states {
		stopEndpoint(st)
	}
	return nil
}
