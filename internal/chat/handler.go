package chat

import (
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"portal/internal/platform/metrics"
	dErrors "portal/pkg/domain-errors"
	"portal/pkg/platform/httputil"
	"portal/pkg/requestcontext"
)

const (
	missingKeyMessage = "Missing API key. Please set the GEMINI_API_KEY environment variable."
	failureMessage    = "An error occurred while processing your request"
)

type chatRequest struct {
	Messages []Message `json:"messages"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Handler serves the chat stream endpoint. A nil model means no API key was
// configured.
type Handler struct {
	model   Model
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func New(model Model, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		model:   model,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("portal/internal/chat"),
	}
}

// Register registers the chat routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/chat", h.handleChat)
}

// handleChat streams the reply as lines of `0:<json string>\n`, one per
// non-empty chunk. Failures before the first chunk are JSON 500s; a failure
// mid-stream aborts the connection.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "chat.stream")
	defer span.End()
	requestID := requestcontext.RequestID(ctx)

	if h.model == nil {
		h.metrics.ObserveChatStream("missing_key", 0)
		httputil.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: missingKeyMessage})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "invalid chat request", "request_id", requestID, "error", err)
		h.fail(w, span, err)
		return
	}
	history, message, ok := conversation(req.Messages)
	if !ok {
		h.metrics.ObserveChatStream("invalid", 0)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "messages must not be empty"))
		return
	}
	span.SetAttributes(attribute.Int("chat.history_length", len(history)))

	next, stop := iter.Pull2(h.model.Stream(ctx, history, message))
	defer stop()

	chunks := 0
	started := false
	rc := http.NewResponseController(w)
	for {
		text, err, more := next()
		if !more {
			break
		}
		if err != nil {
			if !started {
				h.logger.ErrorContext(ctx, "chat stream failed", "request_id", requestID, "error", err)
				h.fail(w, span, err)
				return
			}
			h.logger.ErrorContext(ctx, "chat stream aborted", "request_id", requestID, "error", err, "chunks", chunks)
			h.metrics.ObserveChatStream("aborted", chunks)
			span.RecordError(err)
			span.SetStatus(codes.Error, "aborted")
			panic(http.ErrAbortHandler)
		}
		if text == "" {
			continue
		}
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		encoded, _ := json.Marshal(text)
		if _, err := fmt.Fprintf(w, "0:%s\n", encoded); err != nil {
			h.metrics.ObserveChatStream("client_gone", chunks)
			return
		}
		_ = rc.Flush()
		chunks++
	}

	if !started {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}
	span.SetAttributes(attribute.Int("chat.chunks", chunks))
	span.SetStatus(codes.Ok, "")
	h.metrics.ObserveChatStream("success", chunks)
}

func (h *Handler) fail(w http.ResponseWriter, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	h.metrics.ObserveChatStream("error", 0)
	httputil.WriteJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   failureMessage,
		Details: err.Error(),
	})
}
