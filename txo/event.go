package txo

import (
	"time"

	"github.com/google/uuid"
)

// Event is an immutable record of something that happened to an aggregate.
// Events are created by aggregate business methods once the mutation has been
// accepted, buffered in the aggregate and later consumed by a unit of work.
type Event struct {
	Id          uuid.UUID // unique event identifier
	Type        string    // event type tag (e.g. "OrderPlaced")
	AggregateId string    // identifier of the aggregate that produced the event
	OccurredAt  time.Time // moment the event was recorded
	Payload     any       // structured, JSON-serializable event data
}

// NewEvent builds an event for the given type, aggregate and payload.
func NewEvent(eventType string, aggregateId string, payload any) Event {
	return Event{
		Id:          uuid.New(),
		Type:        eventType,
		AggregateId: aggregateId,
		OccurredAt:  time.Now(),
		Payload:     payload,
	}
}

// EventSource is the contract aggregates expose to the unit of work so their
// buffered events can be collected.
type EventSource interface {

	// PendingEvents returns a snapshot of the buffered events without
	// consuming them.
	PendingEvents() []Event

	// ClearEvents empties the buffer.
	ClearEvents()
}

// Recorder is an embeddable event buffer for aggregates. It performs no I/O;
// the buffered events are not part of the aggregate's persisted state.
type Recorder struct {
	pending []Event
}

var _ EventSource = (*Recorder)(nil)

// Record appends an event to the buffer preserving insertion order.
func (r *Recorder) Record(e Event) {
	r.pending = append(r.pending, e)
}

// PendingEvents returns a copy of the buffered events.
func (r *Recorder) PendingEvents() []Event {
	snapshot := make([]Event, len(r.pending))
	copy(snapshot, r.pending)
	return snapshot
}

// ClearEvents empties the buffer.
func (r *Recorder) ClearEvents() {
	r.pending = nil
}
