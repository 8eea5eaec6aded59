package worker

import (
	"context"
	"log/slog"

	audit "lineacaptura/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them. Store
// failures are logged and the worker moves on to the next event.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
	failed func()
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// OnFailure registers a callback invoked after every failed append.
func (w *Worker) OnFailure(fn func()) *Worker {
	w.failed = fn
	return w
}

// Run processes events until the inbox is closed and drained.
func (w *Worker) Run(ctx context.Context) {
	for event := range w.inbox {
		if err := w.store.Append(ctx, event); err != nil {
			w.logger.ErrorContext(ctx, "failed to persist audit event",
				"action", event.Action,
				"request_id", event.RequestID,
				"error", err,
			)
			if w.failed != nil {
				w.failed()
			}
		}
	}
}
