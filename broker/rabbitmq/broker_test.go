package rabbitmq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avelinop/txoutbox/test"
	"github.com/avelinop/txoutbox/txo"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	type args struct {
		channel amqpChannel
	}
	testcases := []struct {
		name      string
		args      args
		wantPanic bool
	}{
		{
			name: "channel is not nil",
			args: args{
				channel: &test.MockedAmqpChannel{},
			},
			wantPanic: false,
		},
		{
			name: "channel is nil",
			args: args{
				channel: nil,
			},
			wantPanic: true,
		},
		{
			name: "channel is not nil but the underlying value is",
			args: args{
				channel: func() amqpChannel {
					var ch *test.MockedAmqpChannel
					return ch
				}(),
			},
			wantPanic: true,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.wantPanic {
				assert.Panics(t, func() {
					New(tc.args.channel)
				})
			} else {
				assert.NotPanics(t, func() {
					b := New(tc.args.channel)
					b.SetLogger(&txo.NopLogger{})
				})
			}
		})
	}
}

func TestPublish(t *testing.T) {
	var testMsgId uuid.UUID = uuid.New()
	var testTimestamp time.Time = time.Now()

	testcases := []struct {
		name             string
		opts             txo.PublishOptions
		retVal           error
		wantDeliveryMode uint8
		wantErr          bool
	}{
		{
			name: "persistent message",
			opts: txo.PublishOptions{
				Persistent: true,
				MessageId:  testMsgId.String(),
				Timestamp:  testTimestamp,
			},
			wantDeliveryMode: amqp.Persistent,
			wantErr:          false,
		},
		{
			name: "transient message",
			opts: txo.PublishOptions{
				Persistent: false,
				MessageId:  testMsgId.String(),
				Timestamp:  testTimestamp,
			},
			wantDeliveryMode: amqp.Transient,
			wantErr:          false,
		},
		{
			name: "channel returns an error",
			opts: txo.PublishOptions{
				Persistent: true,
				MessageId:  testMsgId.String(),
				Timestamp:  testTimestamp,
			},
			retVal:           errors.New("channel closed"),
			wantDeliveryMode: amqp.Persistent,
			wantErr:          true,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			channel := &test.MockedAmqpChannel{RetVal: tc.retVal}
			b := New(channel)
			b.SetLogger(&txo.NopLogger{})

			err := b.Publish(context.Background(), "shop", "order.OrderPlaced", []byte("payload"), tc.opts)

			assert.Equal(t, []string{"shop"}, channel.Exchanges)
			assert.Equal(t, []string{"order.OrderPlaced"}, channel.Keys)
			assert.Equal(t, []amqp.Publishing{{
				ContentType:  "application/json",
				DeliveryMode: tc.wantDeliveryMode,
				MessageId:    testMsgId.String(),
				Timestamp:    testTimestamp,
				Body:         []byte("payload"),
			}}, channel.Published)
			test.AssertError(t, err, tc.wantErr)
		})
	}
}
