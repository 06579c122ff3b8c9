package audit

import (
	"context"
	"log/slog"
)

// Worker drains an event channel into sinks until the channel is closed or
// the context ends. A failing sink is logged and does not stop the others.
type Worker struct {
	sinks  []Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(inbox <-chan Event, logger *slog.Logger, sinks ...Sink) *Worker {
	return &Worker{sinks: sinks, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			deliver(context.WithoutCancel(ctx), w.logger, w.sinks, event)
		}
	}
}

func deliver(ctx context.Context, logger *slog.Logger, sinks []Sink, event Event) error {
	var first error
	for _, sink := range sinks {
		if err := sink.Append(ctx, event); err != nil {
			logger.ErrorContext(ctx, "audit sink append failed",
				"action", event.Action,
				"event_id", event.ID,
				"error", err,
			)
			if first == nil {
				first = err
			}
		}
	}
	return first
}
