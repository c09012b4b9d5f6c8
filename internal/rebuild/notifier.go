package rebuild

import (
	"context"
	"log/slog"

	"github.com/ryanbastic/go-rebuilder/internal/content"
	"github.com/ryanbastic/go-rebuilder/internal/metrics"
)

// Notifier turns content changes into debounced rebuild triggers.
//
// Every method blocks until the trigger call has finished. Callers must not
// run them in a goroutine: the response to the write may be the last thing
// the process does.
type Notifier struct {
	debouncer  *Debouncer
	dispatcher *Dispatcher
	clock      Clock
	logger     *slog.Logger
}

// NewNotifier creates a Notifier. A nil clock means the wall clock.
func NewNotifier(debouncer *Debouncer, dispatcher *Dispatcher, clock Clock, logger *slog.Logger) *Notifier {
	if clock == nil {
		clock = SystemClock
	}
	return &Notifier{
		debouncer:  debouncer,
		dispatcher: dispatcher,
		clock:      clock,
		logger:     logger,
	}
}

// OnContentChanged handles one change to source/entityID. It reports
// whether a trigger was dispatched. A nil Notifier does nothing.
func (n *Notifier) OnContentChanged(ctx context.Context, source string, op content.Operation, entityID string) bool {
	if n == nil {
		return false
	}

	now := n.clock.Now()
	if !n.debouncer.ShouldDispatch(source, entityID, now) {
		metrics.RecordSuppressed(source)
		n.logger.Debug("rebuild suppressed, cooldown active",
			"source", source,
			"operation", op,
			"entity_id", entityID,
			"cooldown", n.debouncer.Cooldown(),
		)
		return false
	}
	metrics.SetRegistryEntries(n.debouncer.Len())

	n.logger.Info("content change detected",
		"source", source,
		"operation", op,
		"entity_id", entityID,
	)
	n.dispatcher.Dispatch(ctx, Request{
		Source:      source,
		Operation:   op,
		EntityID:    entityID,
		RequestedAt: now,
	})
	return true
}

// DocumentChanged notifies a change to doc, identified through its
// fallback chain.
func (n *Notifier) DocumentChanged(ctx context.Context, doc *content.Document, op content.Operation) bool {
	if n == nil {
		return false
	}
	return n.OnContentChanged(ctx, doc.Collection, op, doc.EntityID())
}

// GlobalChanged notifies an update to a global.
func (n *Notifier) GlobalChanged(ctx context.Context, slug string) bool {
	return n.OnContentChanged(ctx, slug, content.OperationUpdated, content.GlobalEntityID)
}

// Trigger dispatches immediately, ignoring and not recording the cooldown.
// It is the manual retry path for operators.
func (n *Notifier) Trigger(ctx context.Context, source, entityID string) {
	if n == nil {
		return
	}
	n.logger.Info("manual rebuild requested", "source", source, "entity_id", entityID)
	n.dispatcher.Dispatch(ctx, Request{
		Source:      source,
		Operation:   content.OperationUpdated,
		EntityID:    entityID,
		RequestedAt: n.clock.Now(),
	})
}

// Enabled reports whether triggers will actually be sent.
func (n *Notifier) Enabled() bool {
	return n != nil && n.dispatcher.Enabled()
}

// Transport returns the dispatcher transport name.
func (n *Notifier) Transport() string {
	if n == nil {
		return TransportDisabled
	}
	return n.dispatcher.Transport()
}
