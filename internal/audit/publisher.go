package audit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"portal/pkg/platform/middleware/device"
	"portal/pkg/requestcontext"
)

// Publisher enriches events with request metadata and hands them to the
// store and any extra sinks. In async mode events are buffered and written by
// a Worker; a full buffer drops the event.
type Publisher struct {
	store  Store
	sinks  []Sink
	logger *slog.Logger

	bufferSize int
	queue      chan Event
	done       chan struct{}
	closeOnce  sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous delivery with the given buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.bufferSize = size
	}
}

// WithSink adds a sink that receives every event after the store.
func WithSink(sink Sink) Option {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.queue = make(chan Event, p.bufferSize)
		p.done = make(chan struct{})
		worker := NewWorker(p.queue, p.logger, p.targets()...)
		go func() {
			defer close(p.done)
			_ = worker.Run(context.Background())
		}()
	}
	return p
}

func (p *Publisher) targets() []Sink {
	return append([]Sink{p.store}, p.sinks...)
}

// Emit publishes an event. Only synchronous delivery reports sink errors.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	event = enrich(ctx, event)
	if p.queue == nil {
		return deliver(ctx, p.logger, p.targets(), event)
	}
	select {
	case p.queue <- event:
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"request_id", event.RequestID,
		)
	}
	return nil
}

func (p *Publisher) List(ctx context.Context, userID string) ([]Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// Close stops accepting async events and waits until the buffer is drained.
// Emit must not be called after Close.
func (p *Publisher) Close() {
	if p.queue == nil {
		return
	}
	p.closeOnce.Do(func() {
		close(p.queue)
		<-p.done
	})
}

func enrich(ctx context.Context, event Event) Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx).UTC()
	}
	if event.Category == "" {
		event.Category = event.Action.Category()
	}
	if event.Severity == "" && event.Category == CategorySecurity {
		event.Severity = SeverityWarning
	}
	if event.ClientKey == "" {
		event.ClientKey = requestcontext.ClientKey(ctx)
	}
	if event.IP == "" {
		event.IP = requestcontext.ClientIP(ctx)
	}
	if event.Device == "" {
		if ua := requestcontext.UserAgent(ctx); ua != "" {
			event.Device = device.Label(ua)
		}
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		event.TraceID = sc.TraceID().String()
	}
	return event
}
