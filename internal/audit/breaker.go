package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"portal/internal/platform/metrics"
)

// ErrCircuitOpen is returned by a GuardedSink while its breaker is open.
var ErrCircuitOpen = errors.New("audit sink circuit open")

// Breaker opens after threshold consecutive failures and stays open for the
// cooldown. The first call after the cooldown is let through as a probe.
type Breaker struct {
	mu sync.Mutex

	threshold int
	cooldown  time.Duration

	failures  int
	openUntil time.Time
	open      bool

	now func() time.Time
}

func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	if b.now().After(b.openUntil) {
		// half-open: one more failure reopens immediately
		b.open = false
		b.failures = b.threshold - 1
		return true
	}
	return false
}

// RecordSuccess closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
}

// RecordFailure counts a failure and reports whether it opened the breaker.
func (b *Breaker) RecordFailure() (opened bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.threshold && !b.open {
		b.open = true
		b.openUntil = b.now().Add(b.cooldown)
		return true
	}
	return false
}

func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// GuardedSink skips a remote sink while it keeps failing, so an outage of the
// broker does not stall the worker behind produce timeouts.
type GuardedSink struct {
	name    string
	sink    Sink
	breaker *Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewGuardedSink(name string, sink Sink, breaker *Breaker, logger *slog.Logger, m *metrics.Metrics) *GuardedSink {
	return &GuardedSink{name: name, sink: sink, breaker: breaker, logger: logger, metrics: m}
}

func (g *GuardedSink) Append(ctx context.Context, event Event) error {
	if !g.breaker.Allow() {
		g.metrics.IncAuditDropped(g.name)
		return ErrCircuitOpen
	}
	if err := g.sink.Append(ctx, event); err != nil {
		if g.breaker.RecordFailure() {
			g.metrics.SetAuditBreakerOpen(g.name, true)
			g.logger.WarnContext(ctx, "audit sink circuit opened",
				"sink", g.name,
				"error", err,
			)
		}
		return err
	}
	g.breaker.RecordSuccess()
	g.metrics.SetAuditBreakerOpen(g.name, false)
	return nil
}
