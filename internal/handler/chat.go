package handler

import (
	"log/slog"
	"net/http"

	"loom/internal/httputil"
	chatsvc "loom/internal/service/chat"
)

// ChatHandler handles conversation HTTP requests.
// Handlers only communicate with services, never repositories.
type ChatHandler struct {
	orchestrator *chatsvc.Orchestrator
	logger       *slog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(orchestrator *chatsvc.Orchestrator, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Chat runs one conversation round and returns the assistant's answer.
// POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req ChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.orchestrator.Run(r.Context(), &chatsvc.Request{
		UserID:   userID,
		ThreadID: req.ThreadID,
		Message:  req.Message,
	})
	if err != nil {
		if r.Context().Err() != nil {
			// Client is gone; there is nobody to answer.
			return
		}
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, ChatResponse{
		ThreadID: result.Thread.ID,
		Message:  result.Answer,
		Sources:  result.Sources,
	})
}
