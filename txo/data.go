package txo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UnknownAggregateType is assigned to records whose event type has no entry
// in the type map.
const UnknownAggregateType = "Unknown"

// TypeMap declares which aggregate type owns each event type. It is supplied
// at wiring time together with the event definitions instead of being
// inferred from type names.
type TypeMap map[string]string

// AggregateType resolves the aggregate type for an event type.
func (m TypeMap) AggregateType(eventType string) string {
	if t, ok := m[eventType]; ok {
		return t
	}
	return UnknownAggregateType
}

// envelope is the serialized form of an event as stored in the outbox row
// and delivered to the broker.
type envelope struct {
	EventId     uuid.UUID `json:"eventId"`
	EventType   string    `json:"eventType"`
	AggregateId string    `json:"aggregateId"`
	OccurredAt  time.Time `json:"occurredAt"`
	Data        any       `json:"data"`
}

// Record contains all the information stored in the underlying outbox table.
// A record is inserted strictly within the same transaction as the business
// mutation that produced its event. Once Processed is true the record is
// terminal: either the event was delivered or it was routed to dead-letter.
type Record struct {
	Id            uuid.UUID
	EventType     string
	AggregateId   string
	AggregateType string
	Payload       []byte
	Processed     bool
	ProcessedAt   *time.Time
	RetryCount    int
	LastError     *string
	CreatedAt     time.Time
}

// NewRecord builds an outbox record from an event, serializing the event
// envelope and resolving the aggregate type through the type map.
func NewRecord(e Event, types TypeMap) (*Record, error) {
	payload, err := json.Marshal(envelope{
		EventId:     e.Id,
		EventType:   e.Type,
		AggregateId: e.AggregateId,
		OccurredAt:  e.OccurredAt,
		Data:        e.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("could not serialize the payload of event '%s': %w", e.Id, err)
	}
	return &Record{
		Id:            e.Id,
		EventType:     e.Type,
		AggregateId:   e.AggregateId,
		AggregateType: types.AggregateType(e.Type),
		Payload:       payload,
		CreatedAt:     e.OccurredAt,
	}, nil
}
