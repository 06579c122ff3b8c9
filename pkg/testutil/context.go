package testutil

import (
	"net/http"

	"golang.org/x/text/language"

	"portal/pkg/requestcontext"
)

// WithClientKey adds a client key to the request context.
// This simulates what the client-session middleware does for every request.
func WithClientKey(req *http.Request, key string) *http.Request {
	return req.WithContext(requestcontext.WithClientKey(req.Context(), key))
}

// WithLanguage adds a negotiated language to the request context.
func WithLanguage(req *http.Request, tag language.Tag) *http.Request {
	return req.WithContext(requestcontext.WithLanguage(req.Context(), tag))
}
