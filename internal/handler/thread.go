package handler

import (
	"log/slog"
	"net/http"

	"loom/internal/httputil"
	chatsvc "loom/internal/service/chat"
)

// ThreadHandler handles thread HTTP requests
type ThreadHandler struct {
	chatService *chatsvc.Service
	logger      *slog.Logger
}

// NewThreadHandler creates a new thread handler
func NewThreadHandler(chatService *chatsvc.Service, logger *slog.Logger) *ThreadHandler {
	return &ThreadHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// CreateThread starts an empty thread
// POST /api/threads
func (h *ThreadHandler) CreateThread(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req CreateThreadRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	thread, err := h.chatService.CreateThread(r.Context(), userID, req.Title)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, thread)
}

// ListThreads retrieves all threads for the user
// GET /api/threads
func (h *ThreadHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	threads, err := h.chatService.ListThreads(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, threads)
}

// GetThread retrieves a single thread by ID
// GET /api/threads/{id}
func (h *ThreadHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	threadID := r.PathValue("id")

	thread, err := h.chatService.GetThread(r.Context(), threadID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, thread)
}

// GetTranscript retrieves the conversational turns of a thread in order
// GET /api/threads/{id}/turns
func (h *ThreadHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	threadID := r.PathValue("id")

	turns, err := h.chatService.Transcript(r.Context(), threadID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, turns)
}

// GetTurn retrieves a single turn by ID
// GET /api/turns/{id}
func (h *ThreadHandler) GetTurn(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	turnID := r.PathValue("id")

	turn, err := h.chatService.GetTurn(r.Context(), turnID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, turn)
}

// RenameThread sets a new thread title
// PATCH /api/threads/{id}
func (h *ThreadHandler) RenameThread(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	threadID := r.PathValue("id")

	var req RenameThreadRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.chatService.RenameThread(r.Context(), threadID, userID, req.Title); err != nil {
		handleError(w, err)
		return
	}

	thread, err := h.chatService.GetThread(r.Context(), threadID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, thread)
}

// DeleteThread deletes a thread and all of its turns
// DELETE /api/threads/{id}
func (h *ThreadHandler) DeleteThread(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	threadID := r.PathValue("id")

	if err := h.chatService.DeleteThread(r.Context(), threadID, userID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
