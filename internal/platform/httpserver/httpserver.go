package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with defaults for this project. WriteTimeout stays
// unset because session events and chat responses are long-lived streams.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
