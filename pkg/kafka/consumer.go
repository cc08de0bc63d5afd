package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/Shopify/sarama"
	"github.com/sirupsen/logrus"
)

// Consumer reads every partition of a topic starting at the newest offset.
type Consumer struct {
	topic string
	conn  sarama.Consumer
	log   logrus.FieldLogger
}

func NewConsumer(brokers []string, topic string, log logrus.FieldLogger) (*Consumer, error) {
	conn, err := sarama.NewConsumer(brokers, newSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	return NewConsumerFromConn(conn, topic, log), nil
}

func NewConsumerFromConn(conn sarama.Consumer, topic string, log logrus.FieldLogger) *Consumer {
	return &Consumer{topic: topic, conn: conn, log: log}
}

// Consume passes each message to handler until ctx is cancelled. Handler errors are logged;
// without consumer groups there is no redelivery.
func (c *Consumer) Consume(ctx context.Context, handler func(ctx context.Context, body []byte) error) error {
	partitions, err := c.conn.Partitions(c.topic)
	if err != nil {
		return fmt.Errorf("failed to list partitions of %s: %w", c.topic, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, partition := range partitions {
		pc, err := c.conn.ConsumePartition(c.topic, partition, sarama.OffsetNewest)
		if err != nil {
			// stop the partitions already started before reporting
			cancel()
			wg.Wait()
			return fmt.Errorf("failed to consume partition %d: %w", partition, err)
		}

		wg.Add(1)
		go func(partition int32, pc sarama.PartitionConsumer) {
			defer wg.Done()
			defer pc.AsyncClose()
			c.run(ctx, partition, pc, handler)
		}(partition, pc)
	}

	c.log.WithFields(logrus.Fields{"topic": c.topic, "partitions": len(partitions)}).Info("waiting for order events")
	wg.Wait()
	return nil
}

func (c *Consumer) run(ctx context.Context, partition int32, pc sarama.PartitionConsumer, handler func(ctx context.Context, body []byte) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pc.Messages():
			if !ok {
				return
			}
			if err := handler(ctx, msg.Value); err != nil {
				c.log.WithError(err).WithFields(logrus.Fields{
					"partition": partition,
					"offset":    msg.Offset,
				}).Warn("failed to process message")
			}
		case cerr, ok := <-pc.Errors():
			if !ok {
				return
			}
			c.log.WithError(cerr).WithField("partition", partition).Error("kafka consumer error")
		}
	}
}

func (c *Consumer) Close() error {
	return c.conn.Close()
}
