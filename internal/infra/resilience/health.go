package resilience

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// HealthStatus is an endpoint's current liveness assessment (§4.12).
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "HEALTHY"
	HealthDegraded  HealthStatus = "DEGRADED"
	HealthUnhealthy HealthStatus = "UNHEALTHY"
)

// Transport is the behaviour a pluggable IPC transport must provide to be
// managed by the connection pool, health checker, and connection manager
// (§4.14's endpoint subcomponents): init/connect/disconnect/send/receive
// plus a liveness probe.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
	Send(ctx context.Context, msg []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Ping(ctx context.Context, timeout time.Duration) error
}

// HealthChecker tracks an endpoint's liveness via one of four strategies and
// drives the active/passive transition rules of §4.12.
type HealthChecker interface {
	Start()
	Stop()

	Status() HealthStatus
	CheckNow(ctx context.Context) error

	RecordSuccess()
	RecordFailure()
}

// HealthStatusChangeFunc is invoked with (endpoint, old, new) whenever the
// checker's status changes.
type HealthStatusChangeFunc func(endpoint string, old, new HealthStatus)

type healthChecker struct {
	endpoint  string
	cfg       HealthCheckConfig
	transport Transport
	logger    *slog.Logger
	onChange  HealthStatusChangeFunc

	mu                  sync.Mutex
	status              HealthStatus
	consecutiveSuccess  int
	consecutiveFailures int
	window              []bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// HealthCheckerOption configures a HealthChecker.
type HealthCheckerOption func(*healthChecker)

// WithHealthLogger sets the diagnostic logger.
func WithHealthLogger(l *slog.Logger) HealthCheckerOption {
	return func(h *healthChecker) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithHealthStatusChange registers the status-change callback.
func WithHealthStatusChange(fn HealthStatusChangeFunc) HealthCheckerOption {
	return func(h *healthChecker) { h.onChange = fn }
}

// NewHealthChecker creates a HealthChecker for endpoint, backed by transport
// (nil is valid for PASSIVE_MONITORING and CUSTOM strategies).
func NewHealthChecker(endpoint string, cfg HealthCheckConfig, transport Transport, opts ...HealthCheckerOption) HealthChecker {
	if err := cfg.validate(); err != nil {
		panic("resilience: invalid health check config: " + err.Error())
	}

	h := &healthChecker{
		endpoint:  endpoint,
		cfg:       cfg,
		transport: transport,
		logger:    slog.Default(),
		status:    HealthHealthy,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *healthChecker) Start() {
	if !h.cfg.EnableActiveChecks || h.cfg.Strategy == HealthCheckPassiveMonitoring {
		return
	}
	h.mu.Lock()
	if h.stopCh != nil {
		h.mu.Unlock()
		return
	}
	h.stopCh = make(chan struct{})
	h.doneCh = make(chan struct{})
	stopCh := h.stopCh
	doneCh := h.doneCh
	h.mu.Unlock()

	go h.loop(stopCh, doneCh)
}

func (h *healthChecker) loop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(h.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), h.cfg.CheckTimeout)
			err := h.CheckNow(ctx)
			cancel()
			if err != nil {
				h.logger.Debug("health check failed", "endpoint", h.endpoint, "error", err)
			}
		}
	}
}

func (h *healthChecker) Stop() {
	h.mu.Lock()
	stopCh, doneCh := h.stopCh, h.doneCh
	h.stopCh, h.doneCh = nil, nil
	h.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}

func (h *healthChecker) Status() HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// CheckNow performs one active check per the configured strategy and applies
// the active transition rules.
func (h *healthChecker) CheckNow(ctx context.Context) error {
	var err error
	switch h.cfg.Strategy {
	case HealthCheckTCPConnect:
		if h.transport != nil && h.transport.IsConnected() {
			err = nil
		} else if h.transport != nil {
			err = h.transport.Connect(ctx)
		}
	case HealthCheckApplicationPing:
		if h.transport != nil {
			err = h.transport.Ping(ctx, h.cfg.CheckTimeout)
		}
	case HealthCheckCustom:
		if h.cfg.CustomCheck != nil {
			err = h.cfg.CustomCheck()
		}
	case HealthCheckPassiveMonitoring:
		return nil
	}

	if err == nil {
		h.RecordSuccess()
	} else {
		h.RecordFailure()
	}
	return err
}

func (h *healthChecker) RecordSuccess() {
	h.mu.Lock()
	h.consecutiveSuccess++
	h.consecutiveFailures = 0
	old := h.status

	switch {
	case h.consecutiveSuccess >= h.cfg.HealthyThreshold:
		h.status = HealthHealthy
	case old == HealthUnhealthy:
		h.status = HealthDegraded
	}

	if h.cfg.Strategy == HealthCheckPassiveMonitoring {
		h.appendWindowLocked(true)
		h.applyPassiveThresholdsLocked()
	}
	new := h.status
	h.mu.Unlock()

	h.notify(old, new)
}

func (h *healthChecker) RecordFailure() {
	h.mu.Lock()
	h.consecutiveFailures++
	h.consecutiveSuccess = 0
	old := h.status

	switch {
	case h.consecutiveFailures >= h.cfg.UnhealthyThreshold:
		h.status = HealthUnhealthy
	case old == HealthHealthy:
		h.status = HealthDegraded
	}

	if h.cfg.Strategy == HealthCheckPassiveMonitoring {
		h.appendWindowLocked(false)
		h.applyPassiveThresholdsLocked()
	}
	new := h.status
	h.mu.Unlock()

	h.notify(old, new)
}

func (h *healthChecker) appendWindowLocked(success bool) {
	if len(h.window) >= h.cfg.PassiveWindowSize {
		h.window = h.window[1:]
	}
	h.window = append(h.window, success)
}

func (h *healthChecker) applyPassiveThresholdsLocked() {
	if len(h.window) < h.cfg.MinRequestsForRate {
		return
	}
	failures := 0
	for _, ok := range h.window {
		if !ok {
			failures++
		}
	}
	rate := float64(failures) / float64(len(h.window))

	switch {
	case rate >= h.cfg.UnhealthyFailureRate:
		h.status = HealthUnhealthy
	case rate >= h.cfg.DegradedFailureRate:
		h.status = HealthDegraded
	default:
		h.status = HealthHealthy
	}
}

func (h *healthChecker) notify(old, new HealthStatus) {
	if old == new || h.onChange == nil {
		return
	}
	h.onChange(h.endpoint, old, new)
}

// jitterDuration returns a uniform random duration in [lo, hi). Shared by
// the connection pool's maintenance jitter to avoid thundering-herd
// eviction sweeps across many endpoints.
func jitterDuration(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)))
}
