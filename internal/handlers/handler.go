// Package handlers defines the pluggable consumers invoked for each canonical
// event after it has been classified, labeled, and durably persisted.
package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hicommonwealth/chain-events/pkg/events"
)

// Handler consumes one labeled event and optionally returns a derived result.
// Handlers are stateless with respect to the chain; any state a handler needs
// lives in its own store. Handlers must never mutate the event.
type Handler interface {
	Name() string
	Handle(ctx context.Context, ev *events.LabeledEvent) (any, error)
}

// Result records one handler's outcome for a single event.
type Result struct {
	Handler string
	Derived any
	Err     error
}

// Chain runs an ordered list of handlers with per-handler failure isolation:
// one handler erroring never prevents the rest from running. Persistence is
// the durability boundary; everything here is best effort beyond it, so
// failures are logged and reported but never abort the event.
type Chain struct {
	handlers []Handler
	logger   *slog.Logger
}

// NewChain builds a chain over the given handlers, in invocation order.
func NewChain(logger *slog.Logger, handlers ...Handler) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{handlers: handlers, logger: logger}
}

// Run invokes every handler in order and returns their results. A handler
// panic is contained and recorded as that handler's error.
func (c *Chain) Run(ctx context.Context, ev *events.LabeledEvent) []Result {
	results := make([]Result, 0, len(c.handlers))

	for _, h := range c.handlers {
		derived, err := c.invoke(ctx, h, ev)
		if err != nil {
			c.logger.Warn("handler failed",
				"handler", h.Name(),
				"kind", ev.Event.Kind,
				"dedup_key", ev.Event.DedupKey().String(),
				"error", err,
			)
		}
		results = append(results, Result{Handler: h.Name(), Derived: derived, Err: err})
	}

	return results
}

func (c *Chain) invoke(ctx context.Context, h Handler, ev *events.LabeledEvent) (derived any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler %s panicked: %v", h.Name(), p)
		}
	}()
	return h.Handle(ctx, ev)
}

// Len reports the number of handlers in the chain.
func (c *Chain) Len() int {
	return len(c.handlers)
}
