package server

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/pkg/kafka"
	"storefront/pkg/rabbitmq"
)

type consumeFunc func(ctx context.Context, handler func(ctx context.Context, body []byte) error) error

// Broker is the event transport selected by EVENTS_BROKER. Events published through it reach
// handler, either through the broker's consumer or inline when no broker is configured.
type Broker struct {
	Publisher events.Publisher
	name      string
	handler   events.Handler
	consume   consumeFunc
	closers   []func() error
	log       logrus.FieldLogger
}

func NewBroker(cfg *config.Config, handler events.Handler, log logrus.FieldLogger) (*Broker, error) {
	b := &Broker{name: cfg.Events.Broker, handler: handler, log: log}

	switch cfg.Events.Broker {
	case "rabbitmq":
		client, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL, Queue: cfg.RabbitMQ.Queue}, log)
		if err != nil {
			return nil, err
		}
		b.Publisher = events.NewBrokerPublisher(client)
		b.consume = client.Consume
		b.closers = append(b.closers, client.Close)

	case "kafka":
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			_ = producer.Close()
			return nil, err
		}
		b.Publisher = events.NewBrokerPublisher(producer)
		b.consume = consumer.Consume
		b.closers = append(b.closers, producer.Close, consumer.Close)

	case "none", "":
		b.Publisher = events.NewInlinePublisher(handler)

	default:
		return nil, fmt.Errorf("unsupported events broker %q", cfg.Events.Broker)
	}
	return b, nil
}

// Run consumes order events until ctx is cancelled. It returns immediately for the inline broker.
func (b *Broker) Run(ctx context.Context) error {
	if b.consume == nil {
		return nil
	}
	b.log.WithField("broker", b.name).Info("starting order event consumer")
	return b.consume(ctx, func(ctx context.Context, body []byte) error {
		return events.Dispatch(ctx, b.handler, body)
	})
}

func (b *Broker) Close() error {
	var first error
	for _, c := range b.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
