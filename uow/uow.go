// Package uow implements the unit-of-work side of the transactional outbox
// pattern: a per-transaction event accumulator and the save protocol that
// flushes collected events to the outbox store atomically with the business
// mutation that produced them.
package uow

import (
	"context"

	"github.com/avelinop/txoutbox/txo"
)

// Unit accumulates the domain events recorded by every aggregate saved within
// one transaction. A unit is created when the originating Execute call begins
// its transaction and travels on the request context, so participant saves
// and in-process handlers feed the same unit. It is released together with
// the context when the transaction ends, whatever the outcome.
type Unit struct {
	txn    txo.Txn
	events []txo.Event
	failed bool
}

// Txn returns the driver-native transactional handle. Repositories assert it
// to their own driver type to perform entity writes within the unit.
func (u *Unit) Txn() txo.Txn {
	return u.txn
}

// Collect moves the pending events of an aggregate into the unit, clearing
// the aggregate's buffer. Order of collection is preserved.
func (u *Unit) Collect(src txo.EventSource) {
	u.events = append(u.events, src.PendingEvents()...)
	src.ClearEvents()
}

// Fail latches the unit as failed. A failed unit is always rolled back by
// the originator, even if no error reached it.
func (u *Unit) Fail() {
	u.failed = true
}

// Failed reports whether the unit has been latched as failed.
func (u *Unit) Failed() bool {
	return u.failed
}

// drain returns the buffered events and empties the buffer.
func (u *Unit) drain() []txo.Event {
	events := u.events
	u.events = nil
	return events
}

type unitKey struct{}

// WithUnit returns a context carrying the unit of work.
func WithUnit(ctx context.Context, u *Unit) context.Context {
	return context.WithValue(ctx, unitKey{}, u)
}

// FromContext returns the unit of work carried by the context, or nil if the
// context is outside any transaction.
func FromContext(ctx context.Context) *Unit {
	u, _ := ctx.Value(unitKey{}).(*Unit)
	return u
}
