package test

import (
	"context"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	amqp "github.com/rabbitmq/amqp091-go"
	tally "github.com/uber-go/tally/v4"
)

// TestLogger collects the logged messages so tests can assert on them.
type TestLogger struct {
	mu       sync.Mutex
	Messages []string
	Errors   []error
}

func (l *TestLogger) log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, msg)
}

func (l *TestLogger) Debug(msg string) { l.log(msg) }

func (l *TestLogger) Info(msg string) { l.log(msg) }

func (l *TestLogger) Warn(msg string) { l.log(msg) }

func (l *TestLogger) Error(msg string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, msg)
	l.Errors = append(l.Errors, err)
}

// TestCounter accumulates increments so tests can assert on them.
type TestCounter struct {
	Ctr int64
}

func (c *TestCounter) Inc(delta int64) {
	c.Ctr += delta
}

type MockedTallyCounter struct {
	Ctr    int64
	Output chan int64
}

var _ tally.Counter = (*MockedTallyCounter)(nil)

func (c *MockedTallyCounter) Inc(delta int64) {
	c.Ctr += delta
	c.Output <- c.Ctr
}

// MockedKafkaProducer captures produced messages and feeds a predefined
// delivery report to the internal channel.
type MockedKafkaProducer struct {
	MockedReportToSend kafka.Event
	Snitch             chan *kafka.Message
	RetVal             error
}

func (p *MockedKafkaProducer) Produce(msg *kafka.Message, internal chan kafka.Event) error {
	// send the message to the outside in order to assert it.
	p.Snitch <- msg

	// send a predefined delivery report to the delivery channel.
	internal <- p.MockedReportToSend

	return p.RetVal
}

type MockedKafkaEvent struct{}

func (*MockedKafkaEvent) String() string {
	return "mock"
}

// MockedAmqpChannel captures published AMQP messages.
type MockedAmqpChannel struct {
	Published []amqp.Publishing
	Exchanges []string
	Keys      []string
	RetVal    error
}

func (c *MockedAmqpChannel) PublishWithContext(ctx context.Context, exchange string, key string, mandatory bool, immediate bool, msg amqp.Publishing) error {
	c.Published = append(c.Published, msg)
	c.Exchanges = append(c.Exchanges, exchange)
	c.Keys = append(c.Keys, key)
	return c.RetVal
}
