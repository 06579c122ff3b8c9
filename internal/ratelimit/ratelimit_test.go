package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/platform/logger"
	redisclient "portal/internal/platform/redis"
	"portal/pkg/requestcontext"
	"portal/pkg/testutil"
)

func TestInMemoryBucketStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewInMemoryBucketStore()
	store.now = func() time.Time { return now }

	for i := range 3 {
		res, err := store.Allow(ctx, "k", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		now = now.Add(10 * time.Second)
	}

	res, err := store.Allow(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 30, res.RetryAfter(now), "oldest request leaves the window at +60s")

	other, err := store.Allow(ctx, "other", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are independent")

	now = now.Add(31 * time.Second)
	res, err = store.Allow(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "the first request slid out")

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, store.Sweep(time.Minute))
}

func TestRedisBucketStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redisclient.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	now := time.Now()
	store := NewRedisBucketStore(client)
	store.now = func() time.Time { return now }

	for range 2 {
		res, err := store.Allow(ctx, "chat:10.0.0.1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		now = now.Add(time.Second)
	}
	res, err := store.Allow(ctx, "chat:10.0.0.1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.True(t, mr.Exists(bucketPrefix+"chat:10.0.0.1"))

	now = now.Add(time.Minute)
	res, err = store.Allow(ctx, "chat:10.0.0.1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (Result, error) {
	return Result{}, assert.AnError
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	class := Class{Name: "chat", Requests: 1, Window: time.Minute}
	request := func(ip string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "test"))
	}

	t.Run("rejects over budget per ip", func(t *testing.T) {
		h := New(NewInMemoryBucketStore(), logger.Discard()).Limit(class)(ok)

		first := testutil.DoRequest(h, request("10.0.0.1"))
		assert.Equal(t, http.StatusNoContent, first.Code)
		assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

		second := testutil.DoRequest(h, request("10.0.0.1"))
		testutil.AssertStatusAndError(t, second, http.StatusTooManyRequests, "rate_limit_exceeded")
		assert.NotEmpty(t, second.Header().Get("Retry-After"))

		assert.Equal(t, http.StatusNoContent, testutil.DoRequest(h, request("10.0.0.2")).Code)
	})

	t.Run("fails open when the store errors", func(t *testing.T) {
		h := New(failingStore{}, logger.Discard()).Limit(class)(ok)
		assert.Equal(t, http.StatusNoContent, testutil.DoRequest(h, request("10.0.0.1")).Code)
	})

	t.Run("disabled passes through", func(t *testing.T) {
		h := New(failingStore{}, logger.Discard(), WithDisabled(true)).Limit(class)(ok)
		assert.Equal(t, http.StatusNoContent, testutil.DoRequest(h, request("10.0.0.1")).Code)
	})
}
