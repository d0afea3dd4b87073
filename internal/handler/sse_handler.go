package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"loom/internal/domain"
	"loom/internal/handler/sse"
	"loom/internal/httputil"
	chatsvc "loom/internal/service/chat"
)

// StreamHandler runs conversation rounds over Server-Sent Events so clients
// see reasoning and tool progress while the round is still running.
type StreamHandler struct {
	orchestrator *chatsvc.Orchestrator
	sseConfig    *sse.Config
	logger       *slog.Logger
}

// NewStreamHandler creates a new streaming chat handler
func NewStreamHandler(orchestrator *chatsvc.Orchestrator, sseConfig *sse.Config, logger *slog.Logger) *StreamHandler {
	if sseConfig == nil {
		sseConfig = sse.DefaultConfig()
	}
	return &StreamHandler{
		orchestrator: orchestrator,
		sseConfig:    sseConfig,
		logger:       logger,
	}
}

// sseNotifier forwards orchestrator progress events to the SSE stream.
// Write failures are logged, not fatal: the round keeps running and its
// outcome is still persisted even if the client stopped listening.
type sseNotifier struct {
	writer *sse.EventWriter
	logger *slog.Logger
}

func (n *sseNotifier) Notify(event string, data map[string]any) {
	if err := n.writer.Send(event, data); err != nil {
		n.logger.Debug("sse event dropped", "event", event, "error", err)
	}
}

// ChatStream runs one round, streaming progress events, then the answer.
// POST /api/chat/stream
//
// Events: reasoning, tool_call, tool_result, persisting, answer, error.
func (h *StreamHandler) ChatStream(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req ChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	writer, err := sse.NewEventWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	keepAlive := sse.NewTickerKeepAlive(h.sseConfig.KeepAliveInterval)
	keepAliveDone := keepAlive.Start(writer, h.logger)
	defer func() {
		keepAlive.Stop()
		<-keepAliveDone
	}()

	result, err := h.orchestrator.Run(r.Context(), &chatsvc.Request{
		UserID:   userID,
		ThreadID: req.ThreadID,
		Message:  req.Message,
		Notifier: &sseNotifier{writer: writer, logger: h.logger},
	})
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		writer.Send("error", map[string]any{
			"status": streamErrorStatus(err),
			"detail": err.Error(),
		})
		return
	}

	// The answer event was already sent by the orchestrator; close with the
	// round summary so clients get sources and turn IDs in one place.
	writer.Send("done", map[string]any{
		"thread_id": result.Thread.ID,
		"message":   result.Answer,
		"sources":   result.Sources,
	})
}

// streamErrorStatus mirrors handleError's mapping for in-stream errors,
// where the HTTP status line is already committed.
func streamErrorStatus(err error) int {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode()
	}
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrBackendUnavailable), errors.Is(err, domain.ErrLoopExceeded):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
