package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/platform/logger"
	"portal/internal/platform/metrics"
)

type flakySink struct {
	err   error
	calls int
}

func (f *flakySink) Append(context.Context, Event) error {
	f.calls++
	return f.err
}

func TestBreaker(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(3, time.Minute)
	b.now = func() time.Time { return now }

	t.Run("opens after threshold consecutive failures", func(t *testing.T) {
		assert.False(t, b.RecordFailure())
		assert.False(t, b.RecordFailure())
		assert.True(t, b.RecordFailure())
		assert.True(t, b.IsOpen())
		assert.False(t, b.Allow())
	})

	t.Run("half-open probe after cooldown", func(t *testing.T) {
		now = now.Add(time.Minute + time.Second)
		assert.True(t, b.Allow())
		assert.True(t, b.RecordFailure(), "a failed probe reopens at once")
		assert.False(t, b.Allow())
	})

	t.Run("success closes", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		require.True(t, b.Allow())
		b.RecordSuccess()
		assert.False(t, b.IsOpen())
		assert.False(t, b.RecordFailure())
	})
}

func TestGuardedSink(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	inner := &flakySink{err: errors.New("broker down")}
	g := NewGuardedSink("kafka", inner, NewBreaker(2, time.Hour), logger.Discard(), m)
	ctx := context.Background()

	require.Error(t, g.Append(ctx, Event{Action: ActionAuthFailed}))
	require.Error(t, g.Append(ctx, Event{Action: ActionAuthFailed}))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditBreaker.WithLabelValues("kafka")))

	err := g.Append(ctx, Event{Action: ActionAuthFailed})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, inner.calls, "open breaker skips the sink")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditDropped.WithLabelValues("kafka")))
}
