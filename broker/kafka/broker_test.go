package kafka

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/avelinop/txoutbox/test"
	"github.com/avelinop/txoutbox/txo"
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// silentProducer accepts the message but never reports back.
type silentProducer struct{}

func (p *silentProducer) Produce(msg *kafka.Message, internal chan kafka.Event) error {
	return nil
}

func TestNew(t *testing.T) {
	type args struct {
		producer kafkaProducer
	}
	testcases := []struct {
		name      string
		args      args
		wantPanic bool
	}{
		{
			name: "producer is not nil",
			args: args{
				producer: &test.MockedKafkaProducer{},
			},
			wantPanic: false,
		},
		{
			name: "producer is nil",
			args: args{
				producer: nil,
			},
			wantPanic: true,
		},
		{
			name: "producer is not nil but the underlying value is",
			args: args{
				producer: func() kafkaProducer {
					var p *test.MockedKafkaProducer
					return p
				}(),
			},
			wantPanic: true,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.wantPanic {
				assert.Panics(t, func() {
					New(tc.args.producer)
				})
			} else {
				assert.NotPanics(t, func() {
					b := New(tc.args.producer)
					b.SetLogger(&txo.NopLogger{})
				})
			}
		})
	}
}

func TestPublish(t *testing.T) {
	var testMsgId uuid.UUID = uuid.New()
	var testTimestamp time.Time = time.Now()
	snitch := make(chan *kafka.Message, 1)

	deliveredReport := func() *kafka.Message {
		topic := "shop-events"
		return &kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: 0},
		}
	}()
	failedReport := func() *kafka.Message {
		topic := "shop-events"
		return &kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: 0, Error: errors.New("broker unreachable")},
		}
	}()

	testcases := []struct {
		name       string
		producer   kafkaProducer
		wantErr    bool
		wantErrMsg string
	}{
		{
			name: "successful delivery report",
			producer: &test.MockedKafkaProducer{
				Snitch:             snitch,
				MockedReportToSend: deliveredReport,
				RetVal:             nil,
			},
			wantErr: false,
		},
		{
			name: "delivery report carries a partition error",
			producer: &test.MockedKafkaProducer{
				Snitch:             snitch,
				MockedReportToSend: failedReport,
				RetVal:             nil,
			},
			wantErr:    true,
			wantErrMsg: "broker unreachable",
		},
		{
			name: "unexpected delivery report type",
			producer: &test.MockedKafkaProducer{
				Snitch:             snitch,
				MockedReportToSend: &test.MockedKafkaEvent{},
				RetVal:             nil,
			},
			wantErr:    true,
			wantErrMsg: "unexpected kafka event: mock",
		},
		{
			name: "produce call fails",
			producer: &test.MockedKafkaProducer{
				Snitch:             snitch,
				MockedReportToSend: deliveredReport,
				RetVal:             errors.New("queue full"),
			},
			wantErr:    true,
			wantErrMsg: "queue full",
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			b := New(tc.producer)
			b.SetLogger(&txo.NopLogger{})

			err := b.Publish(context.Background(), "shopEvents", "order.OrderPlaced", []byte("payload"), txo.PublishOptions{
				Persistent: true,
				MessageId:  testMsgId.String(),
				Timestamp:  testTimestamp,
			})
			msg := <-snitch

			topic := "shop-events"
			assert.Equal(t, &kafka.Message{
				TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
				Key:            []byte("order.OrderPlaced"),
				Value:          []byte("payload"),
				Headers: []kafka.Header{
					{Key: "messageId", Value: []byte(testMsgId.String())},
					{Key: "timestamp", Value: []byte(strconv.FormatInt(testTimestamp.UnixMilli(), 10))},
				},
			}, msg)
			if tc.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tc.wantErrMsg, err.Error())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPublish_ContextCancelled(t *testing.T) {
	b := New(&silentProducer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Publish(ctx, "shopEvents", "order.OrderPlaced", []byte("payload"), txo.PublishOptions{})

	assert.ErrorIs(t, err, context.Canceled)
}

func Test_buildTopicName(t *testing.T) {
	testcases := []struct {
		name     string
		exchange string
		want     string
	}{
		{
			name:     "camel case exchange",
			exchange: "shopEvents",
			want:     "shop-events",
		},
		{
			name:     "single word exchange",
			exchange: "events",
			want:     "events",
		},
		{
			name:     "dotted exchange",
			exchange: "events.dead-letter",
			want:     "events-dead-letter",
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, buildTopicName(tc.exchange))
		})
	}
}
