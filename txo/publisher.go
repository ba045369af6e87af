package txo

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Publisher implements the polling publisher variant of the Transactional
// Outbox pattern: it periodically reads unprocessed records from the store,
// delivers them to the broker and updates each record accordingly.
//
// One publisher per process is assumed. The single-flight flag only prevents
// overlapping cycles within the same process; concurrent publisher replicas
// can still race on the same rows, which is acceptable under the at-least-once
// delivery contract.
type Publisher struct {
	id           uuid.UUID
	settings     Settings
	store        Store
	broker       Broker
	logger       Logger
	deliveredCtr Counter
	failedCtr    Counter
	deadCtr      Counter
	busy         atomic.Bool
}

// Option allows optional configuration.
type Option func(p *Publisher)

// WithLogger allows clients to configure an optional logger.
func WithLogger(l Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithCounters allows clients to configure optional counters for
// observability: delivered, failed and dead-lettered records.
func WithCounters(delivered Counter, failed Counter, deadLettered Counter) Option {
	return func(p *Publisher) {
		if delivered != nil {
			p.deliveredCtr = delivered
		}
		if failed != nil {
			p.failedCtr = failed
		}
		if deadLettered != nil {
			p.deadCtr = deadLettered
		}
	}
}

// NewPublisher creates a publisher using the provided settings and options
// and the provided Store and Broker implementations.
func NewPublisher(s Settings, store Store, broker Broker, options ...Option) *Publisher {
	if store == nil || broker == nil {
		panic("you must provide a store and a broker")
	}
	validateSettings(&s)

	p := &Publisher{
		id:           uuid.New(),
		settings:     s,
		store:        store,
		broker:       broker,
		logger:       &NopLogger{},
		deliveredCtr: &NopCounter{},
		failedCtr:    &NopCounter{},
		deadCtr:      &NopCounter{},
	}
	for _, o := range options {
		o(p)
	}

	for _, a := range []any{store, broker} {
		if l, ok := a.(Loggable); ok {
			l.SetLogger(p.logger)
		}
	}

	return p
}

// Run starts the polling loop and blocks until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.settings.PollingInterval)
	defer ticker.Stop()
	p.logger.Debug(fmt.Sprintf("outbox publisher '%s' started (interval=%s)", p.id, p.settings.PollingInterval))
	for {
		select {
		case <-ctx.Done():
			p.logger.Info(fmt.Sprintf("outbox publisher '%s' stopped", p.id))
			return
		case <-ticker.C:
			p.processOutbox(ctx)
		}
	}
}

// processOutbox executes a single poll cycle. A cycle that finds a previous
// one still running exits immediately without polling.
func (p *Publisher) processOutbox(ctx context.Context) {
	if !p.busy.CompareAndSwap(false, true) {
		p.logger.Debug("a previous poll cycle is still running")
		return
	}
	defer p.busy.Store(false)

	records, err := p.store.FindUnprocessed(ctx, p.settings.BatchSize)
	if err != nil {
		p.logger.Error("when fetching unprocessed outbox records", err)
		return
	}
	if len(records) == 0 {
		return
	}

	var delivered, failed, deadLettered int
	for _, r := range records {
		if r.RetryCount >= p.settings.MaxRetries {
			p.deadLetter(ctx, r)
			deadLettered++
			continue
		}
		if err := p.publish(ctx, r); err != nil {
			p.logger.Error(fmt.Sprintf("delivery problem for outbox record '%s'", r.Id), err)
			p.failedCtr.Inc(1)
			failed++
			if err := p.store.MarkFailed(ctx, r.Id, err.Error()); err != nil {
				p.logger.Error(fmt.Sprintf("when marking outbox record '%s' as failed", r.Id), err)
			}
			continue
		}
		p.deliveredCtr.Inc(1)
		delivered++
		if err := p.store.MarkProcessed(ctx, r.Id); err != nil {
			p.logger.Error(fmt.Sprintf("when marking outbox record '%s' as processed", r.Id), err)
		}
	}

	p.logger.Info(fmt.Sprintf("%d records were successfully delivered (with %d failed and %d dead-lettered) from a total of %d processed from outbox",
		delivered, failed, deadLettered, len(records)))
}

func (p *Publisher) publish(ctx context.Context, r *Record) error {
	return p.broker.Publish(ctx, p.settings.Exchange, RoutingKey(r), r.Payload, PublishOptions{
		Persistent: true,
		MessageId:  r.Id.String(),
		Timestamp:  r.CreatedAt,
	})
}

// deadLetter routes an exhausted record to the dead-letter exchange. The
// record is marked as processed even if the hand-off fails: exhausted records
// never return to the retry loop, they are preserved for manual inspection.
func (p *Publisher) deadLetter(ctx context.Context, r *Record) {
	body, err := newDeadLetter(r)
	if err == nil {
		err = p.broker.Publish(ctx, p.settings.DeadLetterExchange, RoutingKey(r), body, PublishOptions{
			Persistent: true,
			MessageId:  r.Id.String(),
			Timestamp:  r.CreatedAt,
		})
	}
	if err != nil {
		p.logger.Error(fmt.Sprintf("dead-letter hand-off failed for outbox record '%s'", r.Id), err)
	}
	p.deadCtr.Inc(1)
	if err := p.store.MarkProcessed(ctx, r.Id); err != nil {
		p.logger.Error(fmt.Sprintf("when marking dead-lettered outbox record '%s' as processed", r.Id), err)
	}
}
