// Package redistransport adapts a go-redis pub/sub client to the
// resilience.Transport interface so a Redis channel can be registered as an
// IPC connection-manager endpoint (§4.14).
package redistransport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iruldev/modhost/internal/infra/resilience"
)

// Config parameterises one Redis-backed endpoint.
type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Transport implements resilience.Transport by publishing to, and
// subscribing on, a single Redis pub/sub channel.
type Transport struct {
	cfg Config

	mu     sync.RWMutex
	client *redis.Client
	sub    *redis.PubSub
}

// New returns a factory matching resilience's
// `func(ctx) (resilience.Transport, error)` shape, suitable for
// ConnectionManager.RegisterEndpoint.
func New(cfg Config) func(ctx context.Context) (resilience.Transport, error) {
	return func(ctx context.Context) (resilience.Transport, error) {
		t := &Transport{cfg: cfg}
		if err := t.Connect(ctx); err != nil {
			return nil, err
		}
		return t, nil
	}
}

func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     t.cfg.Addr,
		Password: t.cfg.Password,
		DB:       t.cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("redistransport: ping %s: %w", t.cfg.Addr, err)
	}

	t.client = client
	t.sub = client.Subscribe(ctx, t.cfg.Channel)
	return nil
}

func (t *Transport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	if t.sub != nil {
		_ = t.sub.Close()
	}
	err := t.client.Close()
	t.client, t.sub = nil, nil
	return err
}

func (t *Transport) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.client != nil
}

func (t *Transport) Send(ctx context.Context, msg []byte) error {
	t.mu.RLock()
	client := t.client
	t.mu.RUnlock()
	if client == nil {
		return fmt.Errorf("redistransport: not connected")
	}
	return client.Publish(ctx, t.cfg.Channel, msg).Err()
}

func (t *Transport) Receive(ctx context.Context) ([]byte, error) {
	t.mu.RLock()
	sub := t.sub
	t.mu.RUnlock()
	if sub == nil {
		return nil, fmt.Errorf("redistransport: not connected")
	}
	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		return nil, err
	}
	return []byte(msg.Payload), nil
}

func (t *Transport) Ping(ctx context.Context, timeout time.Duration) error {
	t.mu.RLock()
	client := t.client
	t.mu.RUnlock()
	if client == nil {
		return fmt.Errorf("redistransport: not connected")
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return client.Ping(pingCtx).Err()
}
