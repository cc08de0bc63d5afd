package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	log     logrus.FieldLogger
	mu      sync.Mutex // guards channel publishes
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL   string
	Queue string
}

// NewClient connects to RabbitMQ, opens a channel and declares the durable queue.
func NewClient(cfg Config, log logrus.FieldLogger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		cfg.Queue, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", cfg.Queue, err)
	}

	log.WithField("queue", cfg.Queue).Info("rabbitmq client connected")

	return &Client{
		conn:    conn,
		channel: ch,
		queue:   cfg.Queue,
		log:     log,
	}, nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing RabbitMQ client: %v", errs)
	}
	return nil
}

// Send publishes a persistent JSON message on the queue. key is carried as the correlation id.
func (c *Client) Send(ctx context.Context, key string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.channel.Publish(
		"",      // default exchange
		c.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			MessageId:     uuid.NewString(),
			CorrelationId: key,
			DeliveryMode:  amqp.Persistent,
			Timestamp:     time.Now(),
			Body:          body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.log.WithField("key", key).Debug("published message")
	return nil
}

// Consume delivers messages to handler until ctx is cancelled or the channel closes.
// Messages are acked on success and requeued once on failure; a redelivered message that
// fails again is dropped.
func (c *Client) Consume(ctx context.Context, handler func(ctx context.Context, body []byte) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		c.queue, // queue
		"",      // consumer tag
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.log.WithField("queue", c.queue).Info("waiting for order events")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.handle(ctx, msg, handler)
		}
	}
}

func (c *Client) handle(ctx context.Context, msg amqp.Delivery, handler func(ctx context.Context, body []byte) error) {
	entry := c.log.WithFields(logrus.Fields{"delivery_tag": msg.DeliveryTag, "message_id": msg.MessageId})

	if err := handler(ctx, msg.Body); err != nil {
		requeue := !msg.Redelivered
		entry.WithError(err).WithField("requeue", requeue).Warn("failed to process message")
		if nackErr := msg.Nack(false, requeue); nackErr != nil {
			entry.WithError(nackErr).Error("failed to nack message")
		}
		return
	}

	if ackErr := msg.Ack(false); ackErr != nil {
		entry.WithError(ackErr).Error("failed to ack message")
	}
}
