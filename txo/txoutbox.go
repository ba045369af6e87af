package txo

import (
	"context"
	"fmt"
)

// Start is the module entry point: it builds a publisher from the provided
// settings, store and broker, applies the functional options and, when the
// settings enable it, launches the polling loop in its own goroutine. The
// loop lives until ctx is cancelled.
//
// With the publisher disabled the returned instance only writes to the
// outbox side of the pattern; another replica is expected to drain it.
func Start(ctx context.Context, s Settings, store Store, broker Broker, options ...Option) *Publisher {
	p := NewPublisher(s, store, broker, options...)
	if p.settings.EnablePublisher {
		p.logger.Debug(fmt.Sprintf("the polling outbox publisher '%s' is enabled", p.id))
		go p.Run(ctx)
	} else {
		p.logger.Debug("the polling outbox publisher is disabled")
	}
	return p
}
