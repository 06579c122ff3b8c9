package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"portal/internal/platform/logger"
	"portal/pkg/requestcontext"
)

type failingSink struct{ err error }

func (f failingSink) Append(context.Context, Event) error { return f.err }

func TestPublisher_SyncMode(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), Event{UserID: "u1", Action: ActionAccountCreated})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ActionAccountCreated, events[0].Action)
	assert.Equal(t, CategoryCompliance, events[0].Category)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100), WithLogger(logger.Discard()))

	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), Event{UserID: "u1", Action: ActionSessionCreated}))
	}
	pub.Close()
	pub.Close()

	events, err := store.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFullDropsWithoutBlocking(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1), WithLogger(logger.Discard()))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, pub.Emit(context.Background(), Event{UserID: "u1", Action: ActionAuthFailed}))
		}()
	}
	wg.Wait()
	pub.Close()

	assert.LessOrEqual(t, store.Len(), 50)
	assert.Positive(t, store.Len())
}

func TestPublisher_EnrichesFromRequestContext(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	traceID := trace.TraceID{0x01, 0x02, 0x03}
	ctx := requestcontext.WithTime(context.Background(), at)
	ctx = requestcontext.WithRequestID(ctx, "req-1")
	ctx = requestcontext.WithClientKey(ctx, "client-1")
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.7",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  trace.SpanID{0x01},
	}))

	require.NoError(t, pub.Emit(ctx, Event{UserID: "u1", Action: ActionAuthFailed, Reason: "wrong_password"}))

	events, err := pub.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, at, ev.Timestamp)
	assert.Equal(t, "req-1", ev.RequestID)
	assert.Equal(t, "client-1", ev.ClientKey)
	assert.Equal(t, "203.0.113.7", ev.IP)
	assert.Contains(t, ev.Device, "Chrome")
	assert.Equal(t, traceID.String(), ev.TraceID)
	assert.Equal(t, CategorySecurity, ev.Category)
	assert.Equal(t, SeverityWarning, ev.Severity)
}

func TestPublisher_SinkFailureStillReachesStore(t *testing.T) {
	store := NewInMemoryStore()
	boom := errors.New("broker down")
	pub := NewPublisher(store, WithSink(failingSink{err: boom}), WithLogger(logger.Discard()))

	err := pub.Emit(context.Background(), Event{UserID: "u1", Action: ActionSessionRevoked})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, store.Len())
}

func TestWorker_StopsOnContextCancel(t *testing.T) {
	inbox := make(chan Event)
	w := NewWorker(inbox, logger.Discard(), NewInMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.Run(ctx), context.Canceled)
}
