package host

import (
	"context"
	"strings"

	"github.com/iruldev/modhost/internal/hostconfig"
	"github.com/iruldev/modhost/internal/infra/resilience"
	"github.com/iruldev/modhost/internal/ipc/transport/kafkatransport"
	"github.com/iruldev/modhost/internal/ipc/transport/rabbittransport"
	"github.com/iruldev/modhost/internal/ipc/transport/redistransport"
)

// buildIPCEndpoint selects the module host's single default IPC endpoint
// from framework.ipc.* properties (§4.14). It returns ok=false when
// framework.ipc.broker is unset, leaving the connection manager with no
// endpoints registered rather than guessing a broker to dial; callers may
// still register their own endpoints directly against ConnectionManager.
func buildIPCEndpoint(props hostconfig.Properties) (resilience.EndpointConfig, func(ctx context.Context) (resilience.Transport, error), bool) {
	broker := props.GetString("framework.ipc.broker", "")
	if broker == "" {
		return resilience.EndpointConfig{}, nil, false
	}

	cfg := resilience.EndpointConfig{Name: "default"}

	switch strings.ToLower(broker) {
	case "kafka":
		factory := kafkatransport.New(kafkatransport.Config{
			Brokers:      strings.Split(props.GetString("framework.ipc.kafka.brokers", "localhost:9092"), ","),
			Topic:        props.GetString("framework.ipc.kafka.topic", "modhost.events"),
			RequiredAcks: props.GetString("framework.ipc.kafka.required.acks", "all"),
		})
		return cfg, factory, true

	case "rabbit", "rabbitmq":
		factory := rabbittransport.New(rabbittransport.Config{
			URL:          props.GetString("framework.ipc.rabbit.url", ""),
			Exchange:     props.GetString("framework.ipc.rabbit.exchange", ""),
			ExchangeType: props.GetString("framework.ipc.rabbit.exchange.type", ""),
			RoutingKey:   props.GetString("framework.ipc.rabbit.routing.key", ""),
			Queue:        props.GetString("framework.ipc.rabbit.queue", ""),
			Durable:      props.GetBool("framework.ipc.rabbit.durable", true),
		})
		return cfg, factory, true

	case "redis":
		factory := redistransport.New(redistransport.Config{
			Addr:     props.GetString("framework.ipc.redis.addr", "localhost:6379"),
			Password: props.GetString("framework.ipc.redis.password", ""),
			DB:       props.GetInt("framework.ipc.redis.db", 0),
			Channel:  props.GetString("framework.ipc.redis.channel", "modhost.events"),
		})
		return cfg, factory, true

	default:
		return resilience.EndpointConfig{}, nil, false
	}
}
