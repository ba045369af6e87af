// Package kafka adapts a confluent-kafka-go producer to the broker publish
// primitive. The exchange maps to a kebab-cased topic name, the routing key
// becomes the partition key and the options travel as message headers.
package kafka

import (
	"context"
	"fmt"
	"reflect"
	"strconv"

	"github.com/avelinop/txoutbox/txo"
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/iancoleman/strcase"
)

// kafkaProducer is the subset of kafka.Producer used by the broker.
type kafkaProducer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
}

type Broker struct {
	producer kafkaProducer
	logger   txo.Logger
}

var _ txo.Broker = (*Broker)(nil)
var _ txo.Loggable = (*Broker)(nil)

func New(p kafkaProducer) *Broker {
	if p == nil || reflect.ValueOf(p).IsNil() {
		panic("producer is mandatory")
	}
	return &Broker{
		producer: p,
		logger:   &txo.NopLogger{},
	}
}

// SetLogger sets an optional logger.
func (b *Broker) SetLogger(l txo.Logger) {
	b.logger = l
}

// Publish produces the payload and waits for the delivery report, so a nil
// return means the cluster accepted the message.
func (b *Broker) Publish(ctx context.Context, exchange string, routingKey string, payload []byte, opts txo.PublishOptions) error {
	var internal = make(chan kafka.Event, 1)
	topic := buildTopicName(exchange)
	err := b.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(routingKey),
		Value:          payload,
		Headers: []kafka.Header{
			{Key: "messageId", Value: []byte(opts.MessageId)},
			{Key: "timestamp", Value: []byte(strconv.FormatInt(opts.Timestamp.UnixMilli(), 10))},
		},
	}, internal)
	if err != nil {
		return err
	}

	select {
	case ev := <-internal:
		switch m := ev.(type) {
		case *kafka.Message:
			return m.TopicPartition.Error
		default:
			return fmt.Errorf("unexpected kafka event: %s", ev)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// buildTopicName builds a topic name from an exchange name (e.g. if
// exchange="shopEvents" then topic name is "shop-events").
func buildTopicName(exchange string) string {
	return strcase.ToKebab(exchange)
}
