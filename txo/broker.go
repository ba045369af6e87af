package txo

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// PublishOptions carries per-message delivery options.
type PublishOptions struct {
	Persistent bool      // ask the broker to persist the message
	MessageId  string    // stable message identifier for idempotent consumers
	Timestamp  time.Time // creation time of the underlying outbox record
}

// Broker is the opaque publish sink events are delivered to. Implementations
// must only return nil once the broker has accepted the message.
type Broker interface {
	Publish(ctx context.Context, exchange string, routingKey string, payload []byte, opts PublishOptions) error
}

// DeadLetter is the envelope published for records that exhausted their
// retry budget.
type DeadLetter struct {
	OriginalEventType string          `json:"originalEventType"`
	FailureReason     string          `json:"failureReason"`
	RetryCount        int             `json:"retryCount"`
	Payload           json.RawMessage `json:"payload"`
}

// RoutingKey builds the routing key of a record, e.g. "order.OrderPlaced".
func RoutingKey(r *Record) string {
	return strings.ToLower(r.AggregateType) + "." + r.EventType
}

func newDeadLetter(r *Record) ([]byte, error) {
	reason := "retry budget exhausted"
	if r.LastError != nil {
		reason = *r.LastError
	}
	return json.Marshal(DeadLetter{
		OriginalEventType: r.EventType,
		FailureReason:     reason,
		RetryCount:        r.RetryCount,
		Payload:           r.Payload,
	})
}
