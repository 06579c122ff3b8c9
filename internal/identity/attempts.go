package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	redisclient "portal/internal/platform/redis"
)

// InMemoryAttemptLimiter blocks a key once max failures were recorded within
// the window that started at its first failure.
type InMemoryAttemptLimiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	now    func() time.Time
	counts map[string]*attemptWindow
}

type attemptWindow struct {
	failures int
	started  time.Time
}

func NewInMemoryAttemptLimiter(max int, window time.Duration) *InMemoryAttemptLimiter {
	return &InMemoryAttemptLimiter{
		max:    max,
		window: window,
		now:    time.Now,
		counts: make(map[string]*attemptWindow),
	}
}

func (l *InMemoryAttemptLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.activeLocked(key)
	return w == nil || w.failures < l.max, nil
}

func (l *InMemoryAttemptLimiter) RecordFailure(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.activeLocked(key)
	if w == nil {
		w = &attemptWindow{started: l.now()}
		l.counts[strings.ToLower(key)] = w
	}
	w.failures++
	return nil
}

func (l *InMemoryAttemptLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.counts, strings.ToLower(key))
	return nil
}

func (l *InMemoryAttemptLimiter) activeLocked(key string) *attemptWindow {
	key = strings.ToLower(key)
	w, ok := l.counts[key]
	if !ok {
		return nil
	}
	if l.now().Sub(w.started) >= l.window {
		delete(l.counts, key)
		return nil
	}
	return w
}

const attemptsKeyPrefix = "portal:attempts:"

// recordFailure increments the failure count and arms the window on any key
// that has no expiry, in one round trip.
var recordFailure = redis.NewScript(`
local failures = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return failures
`)

// RedisAttemptLimiter counts failures in a key that expires one window after
// the first failure.
type RedisAttemptLimiter struct {
	client *redisclient.Client
	max    int
	window time.Duration
}

func NewRedisAttemptLimiter(client *redisclient.Client, max int, window time.Duration) *RedisAttemptLimiter {
	return &RedisAttemptLimiter{client: client, max: max, window: window}
}

func (l *RedisAttemptLimiter) Allow(ctx context.Context, key string) (bool, error) {
	failures, err := l.client.Get(ctx, attemptsKeyPrefix+strings.ToLower(key)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, nil
		}
		return false, fmt.Errorf("read attempts: %w", err)
	}
	return failures < l.max, nil
}

func (l *RedisAttemptLimiter) RecordFailure(ctx context.Context, key string) error {
	k := attemptsKeyPrefix + strings.ToLower(key)
	if err := recordFailure.Run(ctx, l.client, []string{k}, l.window.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

func (l *RedisAttemptLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, attemptsKeyPrefix+strings.ToLower(key)).Err(); err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	return nil
}
