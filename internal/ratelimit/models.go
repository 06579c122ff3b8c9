// Package ratelimit throttles requests per client IP with a sliding window.
package ratelimit

import (
	"context"
	"time"
)

// Class groups endpoints that share one budget.
type Class struct {
	Name     string
	Requests int
	Window   time.Duration
}

// Result is the outcome of one check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole seconds until the oldest counted request leaves the
// window, at least one.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Round(time.Second) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// BucketStore counts requests per key within a sliding window.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}
