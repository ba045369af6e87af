// Package rabbitmq adapts an AMQP 0.9.1 channel to the broker publish
// primitive. The exchange/routing-key surface of the primitive maps one to
// one onto AMQP publishing.
package rabbitmq

import (
	"context"
	"reflect"

	"github.com/avelinop/txoutbox/txo"
	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpChannel is the subset of amqp.Channel used by the broker.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange string, key string, mandatory bool, immediate bool, msg amqp.Publishing) error
}

type Broker struct {
	channel amqpChannel
	logger  txo.Logger
}

var _ txo.Broker = (*Broker)(nil)
var _ txo.Loggable = (*Broker)(nil)

func New(ch amqpChannel) *Broker {
	if ch == nil || reflect.ValueOf(ch).IsNil() {
		panic("channel is mandatory")
	}
	return &Broker{
		channel: ch,
		logger:  &txo.NopLogger{},
	}
}

// SetLogger sets an optional logger.
func (b *Broker) SetLogger(l txo.Logger) {
	b.logger = l
}

// Publish delivers the payload to the exchange with the given routing key.
// The call returns once the broker has accepted the message.
func (b *Broker) Publish(ctx context.Context, exchange string, routingKey string, payload []byte, opts txo.PublishOptions) error {
	deliveryMode := amqp.Transient
	if opts.Persistent {
		deliveryMode = amqp.Persistent
	}
	return b.channel.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: deliveryMode,
		MessageId:    opts.MessageId,
		Timestamp:    opts.Timestamp,
		Body:         payload,
	})
}
