package kafka

import (
	"context"
	"fmt"

	"github.com/Shopify/sarama"
)

// Producer writes keyed messages to a single topic.
type Producer struct {
	topic string
	conn  sarama.SyncProducer
}

func newSaramaConfig() *sarama.Config {
	conf := sarama.NewConfig()
	conf.Producer.Return.Successes = true
	conf.Producer.Return.Errors = true
	conf.Producer.RequiredAcks = sarama.WaitForAll
	conf.Consumer.Return.Errors = true
	return conf
}

// NewProducer connects a synchronous producer to the brokers.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	conn, err := sarama.NewSyncProducer(brokers, newSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewProducerFromConn(conn, topic), nil
}

func NewProducerFromConn(conn sarama.SyncProducer, topic string) *Producer {
	return &Producer{topic: topic, conn: conn}
}

// Send writes one message. Messages with the same key land on the same partition.
func (p *Producer) Send(ctx context.Context, key string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := p.conn.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(body),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", p.topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.conn.Close()
}
