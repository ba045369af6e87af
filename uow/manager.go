package uow

import (
	"context"
	"errors"
	"fmt"

	"github.com/avelinop/txoutbox/txo"
)

// ErrUnitFailed is returned when a unit of work was latched as failed without
// a propagated error, so the originator refused to commit.
var ErrUnitFailed = errors.New("the unit of work was latched as failed")

// HandlerFunc is a synchronous in-process event handler. Handlers run inside
// the originating transaction before the outbox flush; saves they perform
// join the same unit of work and their events land in the same flush.
type HandlerFunc func(ctx context.Context, e txo.Event) error

// Manager drives the transactional save protocol: it opens transactions for
// originator calls, lets participant calls join them, dispatches collected
// events to the registered handlers and flushes everything to the outbox
// store before committing.
type Manager struct {
	tm       txo.TxManager
	store    txo.Store
	types    txo.TypeMap
	handlers map[string][]HandlerFunc
	logger   txo.Logger
}

// Option allows optional configuration.
type Option func(m *Manager)

// WithLogger allows clients to configure an optional logger.
func WithLogger(l txo.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a manager using the provided transaction manager, outbox
// store and event-to-aggregate type map.
func NewManager(tm txo.TxManager, store txo.Store, types txo.TypeMap, options ...Option) *Manager {
	if tm == nil || store == nil {
		panic("you must provide a transaction manager and a store")
	}
	m := &Manager{
		tm:       tm,
		store:    store,
		types:    types,
		handlers: make(map[string][]HandlerFunc),
		logger:   &txo.NopLogger{},
	}
	for _, o := range options {
		o(m)
	}
	if l, ok := store.(txo.Loggable); ok {
		l.SetLogger(m.logger)
	}
	return m
}

// Subscribe registers a synchronous handler for an event type. Subscribe is
// meant to be called during wiring, before any Execute.
func (m *Manager) Subscribe(eventType string, h HandlerFunc) {
	m.handlers[eventType] = append(m.handlers[eventType], h)
}

// Execute runs fn within a unit of work.
//
// If the context already carries a unit, the call joins it as a participant:
// it shares the transaction and the event buffer but never commits, rolls
// back or flushes; an error latches the shared unit as failed and propagates,
// so the originator rolls everything back (a participant cannot commit
// partial work).
//
// Otherwise the call is the originator: it begins a transaction, runs fn,
// dispatches the collected events to the registered handlers, flushes every
// collected event to the outbox store on the same transaction and commits.
// Any error along the way rolls back entity writes, handler side effects and
// outbox inserts alike, and the collected events are discarded. A panic rolls
// back the same way before propagating.
func (m *Manager) Execute(ctx context.Context, fn func(ctx context.Context, u *Unit) error) error {
	if u := FromContext(ctx); u != nil {
		if err := fn(ctx, u); err != nil {
			u.Fail()
			return err
		}
		return nil
	}

	txn, err := m.tm.Begin(ctx)
	if err != nil {
		return fmt.Errorf("could not begin a transaction: %w", err)
	}
	u := &Unit{txn: txn}
	ctx = WithUnit(ctx, u)

	// A panic in fn or in a dispatched handler must not leave the
	// transaction open; roll back and let it propagate.
	defer func() {
		if r := recover(); r != nil {
			if rbErr := m.tm.Rollback(ctx, txn); rbErr != nil {
				m.logger.Error("when rolling back a unit of work", rbErr)
			}
			panic(r)
		}
	}()

	err = fn(ctx, u)
	if err == nil && !u.failed {
		err = m.flush(ctx, u)
	}
	if err != nil || u.failed {
		if rbErr := m.tm.Rollback(ctx, txn); rbErr != nil {
			m.logger.Error("when rolling back a unit of work", rbErr)
		}
		if err != nil {
			return err
		}
		return ErrUnitFailed
	}
	if err := m.tm.Commit(ctx, txn); err != nil {
		return fmt.Errorf("could not commit the unit of work: %w", err)
	}
	return nil
}

// flush dispatches the collected events and writes them to the outbox store
// on the originating transaction.
//
// The drain is two-phase: the first pass dispatches the events buffered by
// the business saves; handler saves join the same unit, so a second drain
// picks up the events they recorded. Second-pass events are flushed without
// being dispatched again, which bounds the depth of handler chains to one
// level instead of risking an endless handler-produces-event loop.
func (m *Manager) flush(ctx context.Context, u *Unit) error {
	first := u.drain()
	for _, e := range first {
		if err := m.dispatch(ctx, e); err != nil {
			return err
		}
	}
	events := append(first, u.drain()...)
	if len(events) == 0 {
		return nil
	}

	records := make([]*txo.Record, 0, len(events))
	for _, e := range events {
		r, err := txo.NewRecord(e, m.types)
		if err != nil {
			return err
		}
		records = append(records, r)
	}
	if err := m.store.InsertMany(ctx, u.txn, records); err != nil {
		return fmt.Errorf("could not flush %d events to the outbox: %w", len(records), err)
	}
	m.logger.Debug(fmt.Sprintf("%d events flushed to the outbox", len(records)))
	return nil
}

func (m *Manager) dispatch(ctx context.Context, e txo.Event) error {
	for _, h := range m.handlers[e.Type] {
		if err := h(ctx, e); err != nil {
			return fmt.Errorf("handler for '%s' failed: %w", e.Type, err)
		}
	}
	return nil
}
