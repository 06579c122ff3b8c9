package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"portal/internal/auth/models"
	"portal/pkg/platform/httputil"
	"portal/pkg/platform/sentinel"
	"portal/pkg/requestcontext"
)

const (
	eventBacklog      = 32
	heartbeatInterval = 15 * time.Second
)

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.acquire(w, r)
	if !ok {
		return
	}
	defer sess.Release()

	httputil.WriteJSON(w, http.StatusOK, sessionResponse{
		Session:       sess.Session(),
		Notifications: sess.Inbox.Drain(),
	})
}

// sessionQueue buffers transitions between the coordinator's writing goroutine
// and the stream writer. When full the oldest transition is dropped.
type sessionQueue struct {
	mu      sync.Mutex
	pending []models.Session
	ready   chan struct{}
}

func newSessionQueue() *sessionQueue {
	return &sessionQueue{ready: make(chan struct{}, 1)}
}

func (q *sessionQueue) push(s models.Session) {
	q.mu.Lock()
	if len(q.pending) == eventBacklog {
		q.pending = q.pending[1:]
	}
	q.pending = append(q.pending, s)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *sessionQueue) take() []models.Session {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// handleSessionEvents streams session transitions as Server-Sent Events,
// starting with the current value.
func (h *Handler) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.acquire(w, r)
	if !ok {
		return
	}
	defer sess.Release()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	queue := newSessionQueue()
	unsubscribe := sess.Subscribe(queue.push)
	defer unsubscribe()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case <-queue.ready:
			for _, s := range queue.take() {
				payload, err := json.Marshal(s)
				if err != nil {
					h.logger.ErrorContext(ctx, "failed to encode session event",
						"request_id", requestcontext.RequestID(ctx),
						"error", err,
					)
					return
				}
				if _, err := fmt.Fprintf(w, "event: session\ndata: %s\n\n", payload); err != nil {
					return
				}
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

type profileResponse struct {
	Principal *models.Principal       `json:"principal"`
	Profile   *models.ProfileDocument `json:"profile"`
}

type unauthorizedResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
}

// handleProfile serves the protected profile data: 202 while the session is
// Loading, 401 with a sign-in redirect when signed out.
func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.acquire(w, r)
	if !ok {
		return
	}
	defer sess.Release()

	current := sess.Session()
	switch current.State {
	case models.StateLoading:
		httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"state": string(models.StateLoading)})
		return
	case models.StateUnauthenticated:
		httputil.WriteJSON(w, http.StatusUnauthorized, unauthorizedResponse{
			Error:    "unauthorized",
			Redirect: "/" + h.locale(ctx) + "/signin",
		})
		return
	}

	doc, err := h.profiles.Get(ctx, current.Principal.UID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		h.logger.ErrorContext(ctx, "failed to load profile",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		doc = nil
	}
	httputil.WriteJSON(w, http.StatusOK, profileResponse{
		Principal: current.Principal,
		Profile:   doc,
	})
}
