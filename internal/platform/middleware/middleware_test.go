package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/platform/logger"
	"portal/pkg/requestcontext"
)

func captureClientKey(got *string) http.Handler {
	return http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		*got = requestcontext.ClientKey(r.Context())
	})
}

func TestClientSession(t *testing.T) {
	keys := NewClientKeys("test-secret", time.Hour)
	mw := ClientSession(keys, false, logger.Discard())

	t.Run("mints a key when no cookie is present", func(t *testing.T) {
		var got string
		rr := httptest.NewRecorder()
		mw(captureClientKey(&got)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotEmpty(t, got)
		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, ClientCookieName, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)

		parsed, err := keys.Parse(cookies[0].Value)
		require.NoError(t, err)
		assert.Equal(t, got, parsed)
	})

	t.Run("reuses a valid cookie", func(t *testing.T) {
		token, key, err := keys.Mint(time.Now())
		require.NoError(t, err)

		var got string
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: ClientCookieName, Value: token})
		rr := httptest.NewRecorder()
		mw(captureClientKey(&got)).ServeHTTP(rr, req)

		assert.Equal(t, key, got)
		assert.Empty(t, rr.Result().Cookies())
	})

	t.Run("replaces a cookie signed with another secret", func(t *testing.T) {
		token, key, err := NewClientKeys("other-secret", time.Hour).Mint(time.Now())
		require.NoError(t, err)

		var got string
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: ClientCookieName, Value: token})
		rr := httptest.NewRecorder()
		mw(captureClientKey(&got)).ServeHTTP(rr, req)

		assert.NotEqual(t, key, got)
		assert.Len(t, rr.Result().Cookies(), 1)
	})

	t.Run("rejects expired tokens", func(t *testing.T) {
		token, _, err := keys.Mint(time.Now().Add(-2 * time.Hour))
		require.NoError(t, err)
		_, err = keys.Parse(token)
		assert.Error(t, err)
	})
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal_error"}`, rr.Body.String())
}

func TestRequestID(t *testing.T) {
	var got string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = requestcontext.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "req-123", got)
	assert.Equal(t, "req-123", rr.Header().Get(RequestIDHeader))
}
