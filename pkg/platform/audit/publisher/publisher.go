// Package publisher emits audit events either synchronously or through a
// bounded buffer drained by a background worker.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "lineacaptura/pkg/platform/audit"
	"lineacaptura/pkg/platform/audit/metrics"
	"lineacaptura/pkg/platform/audit/worker"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	buffer int
	inbox  chan audit.Event
	done   chan struct{}

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking: events are queued and persisted
// by a background worker. A full buffer drops the event.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) { p.buffer = size }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer > 0 {
		p.inbox = make(chan audit.Event, p.buffer)
		p.done = make(chan struct{})
		w := worker.NewWorker(p.store, p.inbox, p.logger).OnFailure(p.metrics.IncPersistFailures)
		go func() {
			defer close(p.done)
			w.Run(context.Background())
		}()
	}
	return p
}

// Emit records event. In async mode it never blocks and never returns a
// store error; a full buffer drops the event and logs a warning.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.inbox == nil {
		if err := p.store.Append(ctx, event); err != nil {
			p.metrics.IncPersistFailures()
			return err
		}
		p.metrics.IncEmitted(string(event.Category))
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.drop(ctx, event, "publisher closed")
		return nil
	}
	select {
	case p.inbox <- event:
		p.metrics.IncEmitted(string(event.Category))
	default:
		p.drop(ctx, event, "buffer full")
	}
	return nil
}

func (p *Publisher) drop(ctx context.Context, event audit.Event, reason string) {
	p.metrics.IncDropped()
	p.logger.WarnContext(ctx, "audit event dropped",
		"action", event.Action,
		"reason", reason,
		"request_id", event.RequestID,
	)
}

// Close stops accepting events and waits for queued events to be persisted.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.inbox == nil {
			return
		}
		p.mu.Lock()
		p.closed = true
		close(p.inbox)
		p.mu.Unlock()
		<-p.done
	})
}
