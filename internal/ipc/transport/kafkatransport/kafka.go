// Package kafkatransport adapts Sarama's sync producer/consumer pair to the
// resilience.Transport interface so a Kafka topic can be registered as an
// IPC connection-manager endpoint (§4.14).
package kafkatransport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/iruldev/modhost/internal/infra/resilience"
)

// Config parameterises one Kafka-backed endpoint.
type Config struct {
	Brokers      []string
	Topic        string
	RequiredAcks string // "none", "local", "all"
	Timeout      time.Duration
}

func (c Config) saramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Consumer.Return.Errors = true

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg.Producer.Timeout = timeout

	switch c.RequiredAcks {
	case "none":
		cfg.Producer.RequiredAcks = sarama.NoResponse
	case "local":
		cfg.Producer.RequiredAcks = sarama.WaitForLocal
	default:
		cfg.Producer.RequiredAcks = sarama.WaitForAll
	}
	return cfg
}

// Transport implements resilience.Transport over a Sarama sync producer and
// a partition consumer reading the endpoint's topic from its newest offset.
type Transport struct {
	cfg Config

	mu       sync.RWMutex
	client   sarama.Client
	producer sarama.SyncProducer
	consumer sarama.PartitionConsumer
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

	client, err := sarama.NewClient(t.cfg.Brokers, t.cfg.saramaConfig())
	if err != nil {
		return fmt.Errorf("kafkatransport: dial %v: %w", t.cfg.Brokers, err)
	}

	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("kafkatransport: sync producer: %w", err)
	}

	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = producer.Close()
		_ = client.Close()
		return fmt.Errorf("kafkatransport: consumer: %w", err)
	}
	partConsumer, err := consumer.ConsumePartition(t.cfg.Topic, 0, sarama.OffsetNewest)
	if err != nil {
		_ = producer.Close()
		_ = client.Close()
		return fmt.Errorf("kafkatransport: consume partition %s: %w", t.cfg.Topic, err)
	}

	t.client = client
	t.producer = producer
	t.consumer = partConsumer
	return nil
}

func (t *Transport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	if t.consumer != nil {
		_ = t.consumer.Close()
	}
	if t.producer != nil {
		_ = t.producer.Close()
	}
	err := t.client.Close()
	t.client, t.producer, t.consumer = nil, nil, nil
	return err
}

func (t *Transport) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.client != nil && !t.client.Closed()
}

func (t *Transport) Send(ctx context.Context, msg []byte) error {
	t.mu.RLock()
	producer := t.producer
	t.mu.RUnlock()
	if producer == nil {
		return fmt.Errorf("kafkatransport: not connected")
	}
	_, _, err := producer.SendMessage(&sarama.ProducerMessage{
		Topic: t.cfg.Topic,
		Value: sarama.ByteEncoder(msg),
	})
	return err
}

func (t *Transport) Receive(ctx context.Context) ([]byte, error) {
	t.mu.RLock()
	consumer := t.consumer
	t.mu.RUnlock()
	if consumer == nil {
		return nil, fmt.Errorf("kafkatransport: not connected")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-consumer.Messages():
		if !ok {
			return nil, fmt.Errorf("kafkatransport: consumer closed")
		}
		return msg.Value, nil
	case err := <-consumer.Errors():
		return nil, err
	}
}

func (t *Transport) Ping(ctx context.Context, timeout time.Duration) error {
	t.mu.RLock()
	client := t.client
	t.mu.RUnlock()
	if client == nil {
		return fmt.Errorf("kafkatransport: not connected")
	}
	_, err := client.Controller()
	return err
}
