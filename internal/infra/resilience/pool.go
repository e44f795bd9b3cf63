package resilience

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/jackc/puddle/v2"
)

// trackedConn pairs a Transport with the bookkeeping the load-balancing
// strategies in §4.13 need (use_count, last_used_at) but puddle does not
// track for arbitrary resource types.
type trackedConn struct {
	transport  Transport
	createdAt  time.Time
	mu         sync.Mutex
	useCount   int64
	lastUsedAt time.Time
}

// PooledConnection is a claimed cell, returned by Acquire. Callers must call
// Release exactly once.
type PooledConnection struct {
	Transport Transport

	res  *puddle.Resource[*trackedConn]
	pool *connectionPool
}

// PoolStats summarises §4.13's per-endpoint pool counters.
type PoolStats struct {
	Total           int
	Idle            int
	InUse           int
	AcquireCount    int64
	AcquireTimeouts int64
	AvgAcquireTime  time.Duration
}

// ConnectionPool manages pooled Transport connections for a single endpoint
// per §4.13: bounded size, pluggable load-balancing, idle/lifetime
// eviction.
type ConnectionPool interface {
	Acquire(ctx context.Context) (*PooledConnection, error)
	Release(c *PooledConnection)
	Prepopulate(ctx context.Context, n int) error
	Stats() PoolStats
	Close()
}

type connectionPool struct {
	endpoint  string
	cfg       ConnectionPoolConfig
	validator func(Transport) bool
	logger    *slog.Logger

	pool *puddle.Pool[*trackedConn]

	mu              sync.Mutex
	nextIndex       int
	acquireCount    int64
	acquireTimeouts int64
	totalAcquireNs  int64

	stopCh chan struct{}
	doneCh chan struct{}
}

// ConnectionPoolOption configures a ConnectionPool.
type ConnectionPoolOption func(*connectionPool)

// WithPoolValidator sets an additional validation callback consulted before
// a cell is reused or released (validate_on_release).
func WithPoolValidator(fn func(Transport) bool) ConnectionPoolOption {
	return func(p *connectionPool) { p.validator = fn }
}

// WithPoolLogger sets the diagnostic logger.
func WithPoolLogger(l *slog.Logger) ConnectionPoolOption {
	return func(p *connectionPool) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewConnectionPool creates a ConnectionPool for endpoint, using factory to
// construct new transports.
func NewConnectionPool(endpoint string, cfg ConnectionPoolConfig, factory func(ctx context.Context) (Transport, error), opts ...ConnectionPoolOption) (ConnectionPool, error) {
	if err := cfg.validate(); err != nil {
		return nil, NewInvalidConfigError(err.Error())
	}

	p := &connectionPool{endpoint: endpoint, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}

	underlying, err := puddle.NewPool(&puddle.Config[*trackedConn]{
		Constructor: func(ctx context.Context) (*trackedConn, error) {
			t, err := factory(ctx)
			if err != nil {
				return nil, err
			}
			now := time.Now()
			return &trackedConn{transport: t, createdAt: now, lastUsedAt: now}, nil
		},
		Destructor: func(tc *trackedConn) {
			_ = tc.transport.Disconnect(context.Background())
		},
		MaxSize: int32(cfg.MaxSize),
	})
	if err != nil {
		return nil, err
	}
	p.pool = underlying

	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.maintain()

	return p, nil
}

// Acquire implements §4.13's acquire(): pick a validated idle cell via the
// configured load-balancing strategy, else grow the pool, else wait on
// exhaustion (or fail fast), else record an acquire_timeout.
func (p *connectionPool) Acquire(ctx context.Context) (*PooledConnection, error) {
	start := time.Now()
	acquireCtx := ctx
	var cancel context.CancelFunc
	if p.cfg.AcquireTimeout > 0 {
		acquireCtx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
		defer cancel()
	}

	for {
		if cell := p.claimIdle(); cell != nil {
			p.recordAcquire(start)
			return cell, nil
		}

		stat := p.pool.Stat()
		if int(stat.TotalResources()) < p.cfg.MaxSize {
			res, err := p.pool.Acquire(acquireCtx)
			if err != nil {
				return nil, p.acquireFailure(err)
			}
			p.claim(res)
			p.recordAcquire(start)
			return &PooledConnection{Transport: res.Value().transport, res: res, pool: p}, nil
		}

		if !p.cfg.WaitIfExhausted {
			p.mu.Lock()
			p.acquireTimeouts++
			p.mu.Unlock()
			return nil, NewConnectionFailedError(errors.New("pool exhausted"))
		}

		res, err := p.pool.Acquire(acquireCtx)
		if err != nil {
			return nil, p.acquireFailure(err)
		}
		p.claim(res)
		p.recordAcquire(start)
		return &PooledConnection{Transport: res.Value().transport, res: res, pool: p}, nil
	}
}

func (p *connectionPool) acquireFailure(err error) error {
	p.mu.Lock()
	p.acquireTimeouts++
	p.mu.Unlock()
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}
	return NewConnectionFailedError(err)
}

// claimIdle gathers idle cells, applies the configured load-balancing
// strategy, claims the winner, and releases the rest back to idle.
func (p *connectionPool) claimIdle() *PooledConnection {
	idle := p.pool.AcquireAllIdle()
	if len(idle) == 0 {
		return nil
	}

	valid := idle[:0]
	for _, res := range idle {
		tc := res.Value()
		if tc.transport.IsConnected() && (p.validator == nil || p.validator(tc.transport)) {
			valid = append(valid, res)
		} else {
			res.Destroy()
		}
	}
	if len(valid) == 0 {
		return nil
	}

	winner := p.selectLocked(valid)
	for _, res := range valid {
		if res != winner {
			res.Release()
		}
	}

	p.claim(winner)
	return &PooledConnection{Transport: winner.Value().transport, res: winner, pool: p}
}

func (p *connectionPool) selectLocked(candidates []*puddle.Resource[*trackedConn]) *puddle.Resource[*trackedConn] {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.cfg.LoadBalance {
	case LoadBalanceLeastLoaded:
		best := candidates[0]
		for _, res := range candidates[1:] {
			if res.Value().useCount < best.Value().useCount {
				best = res
			}
		}
		return best
	case LoadBalanceRandom:
		return candidates[rand.Intn(len(candidates))]
	case LoadBalanceLeastRecentlyUsed:
		best := candidates[0]
		for _, res := range candidates[1:] {
			if res.Value().lastUsedAt.Before(best.Value().lastUsedAt) {
				best = res
			}
		}
		return best
	default: // LoadBalanceRoundRobin
		idx := p.nextIndex % len(candidates)
		p.nextIndex++
		return candidates[idx]
	}
}

func (p *connectionPool) claim(res *puddle.Resource[*trackedConn]) {
	tc := res.Value()
	tc.mu.Lock()
	tc.useCount++
	tc.lastUsedAt = time.Now()
	tc.mu.Unlock()
}

func (p *connectionPool) recordAcquire(start time.Time) {
	elapsed := time.Since(start).Nanoseconds()
	p.mu.Lock()
	p.acquireCount++
	p.totalAcquireNs += elapsed
	p.mu.Unlock()
}

// Release implements §4.13's release(): validate if configured, destroy on
// failure, else return the cell to idle and wake one waiter.
func (p *connectionPool) Release(c *PooledConnection) {
	if c == nil || c.res == nil {
		return
	}
	if p.cfg.ValidateOnRelease {
		tc := c.res.Value()
		if !tc.transport.IsConnected() || (p.validator != nil && !p.validator(tc.transport)) {
			c.res.Destroy()
			return
		}
	}
	c.res.Release()
}

func (p *connectionPool) Prepopulate(ctx context.Context, n int) error {
	if n > p.cfg.MaxSize {
		n = p.cfg.MaxSize
	}
	for i := 0; i < n; i++ {
		res, err := p.pool.Acquire(ctx)
		if err != nil {
			return err
		}
		res.Release()
	}
	return nil
}

func (p *connectionPool) Stats() PoolStats {
	stat := p.pool.Stat()
	p.mu.Lock()
	defer p.mu.Unlock()

	var avg time.Duration
	if p.acquireCount > 0 {
		avg = time.Duration(p.totalAcquireNs / p.acquireCount)
	}
	return PoolStats{
		Total:           int(stat.TotalResources()),
		Idle:            int(stat.IdleResources()),
		InUse:           int(stat.AcquiredResources()),
		AcquireCount:    p.acquireCount,
		AcquireTimeouts: p.acquireTimeouts,
		AvgAcquireTime:  avg,
	}
}

// maintain runs the §4.13 maintenance task: idle eviction (only above
// min_pool_size) and unconditional lifetime eviction, on a jittered
// interval to avoid synchronised sweeps across many endpoints.
func (p *connectionPool) maintain() {
	defer close(p.doneCh)

	for {
		wait := jitterDuration(p.cfg.EvictionInterval, p.cfg.EvictionInterval+p.cfg.EvictionInterval/4)
		select {
		case <-p.stopCh:
			return
		case <-time.After(wait):
			p.evict()
		}
	}
}

func (p *connectionPool) evict() {
	idle := p.pool.AcquireAllIdle()
	now := time.Now()
	total := int(p.pool.Stat().TotalResources())

	for _, res := range idle {
		tc := res.Value()
		tc.mu.Lock()
		idleFor := now.Sub(tc.lastUsedAt)
		age := now.Sub(tc.createdAt)
		tc.mu.Unlock()

		switch {
		case age >= p.cfg.MaxConnectionLifetime:
			res.Destroy()
			total--
		case idleFor >= p.cfg.MaxIdleTime && total > p.cfg.MinSize:
			res.Destroy()
			total--
		default:
			res.Release()
		}
	}
}

func (p *connectionPool) Close() {
	close(p.stopCh)
	<-p.doneCh
	p.pool.Close()
}
