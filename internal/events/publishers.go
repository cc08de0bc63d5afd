package events

import (
	"context"
)

// MessageSender is implemented by the broker clients in pkg/rabbitmq and pkg/kafka.
type MessageSender interface {
	Send(ctx context.Context, key string, body []byte) error
}

// BrokerPublisher encodes events as JSON and hands them to a broker client.
type BrokerPublisher struct {
	sender MessageSender
}

func NewBrokerPublisher(sender MessageSender) *BrokerPublisher {
	return &BrokerPublisher{sender: sender}
}

func (p *BrokerPublisher) Publish(ctx context.Context, event OrderEvent) error {
	body, err := Encode(event)
	if err != nil {
		return err
	}
	return p.sender.Send(ctx, event.Key(), body)
}

// InlinePublisher runs the handler in the caller's goroutine. It is used when no broker is configured.
type InlinePublisher struct {
	handler Handler
}

func NewInlinePublisher(handler Handler) *InlinePublisher {
	return &InlinePublisher{handler: handler}
}

func (p *InlinePublisher) Publish(ctx context.Context, event OrderEvent) error {
	if p.handler == nil {
		return nil
	}
	return p.handler(ctx, event)
}

// Dispatch decodes a raw broker message and passes it to the handler.
func Dispatch(ctx context.Context, handler Handler, body []byte) error {
	event, err := Decode(body)
	if err != nil {
		return err
	}
	return handler(ctx, event)
}
