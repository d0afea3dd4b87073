package handler

import (
	"log/slog"
	"net/http"

	"loom/internal/config"
	"loom/internal/httputil"
	"loom/internal/service/ingest"
)

// DocumentHandler handles document upload and management requests
type DocumentHandler struct {
	ingestService *ingest.Service
	logger        *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(ingestService *ingest.Service, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		ingestService: ingestService,
		logger:        logger,
	}
}

// UploadDocument accepts a multipart upload and starts indexing it.
// Responds 202: the document is pending until background processing
// finishes, and clients poll GET /api/documents/{id} for the outcome.
// POST /api/documents
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes+4096)
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "multipart 'file' field is required")
		return
	}
	defer file.Close()

	doc, err := h.ingestService.Upload(r.Context(), userID, header.Filename, header.Size, file)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusAccepted, toDocumentResponse(doc))
}

// ListDocuments retrieves the user's documents, newest first
// GET /api/documents
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	docs, err := h.ingestService.List(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, toDocumentResponses(docs))
}

// GetDocument retrieves a single document record
// GET /api/documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	documentID := r.PathValue("id")

	doc, err := h.ingestService.Get(r.Context(), documentID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// ReprocessDocument re-runs extraction and indexing for a document
// POST /api/documents/{id}/reprocess
func (h *DocumentHandler) ReprocessDocument(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	documentID := r.PathValue("id")

	doc, err := h.ingestService.Reprocess(r.Context(), documentID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusAccepted, toDocumentResponse(doc))
}

// DeleteDocument removes a document and its index entries
// DELETE /api/documents/{id}
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	documentID := r.PathValue("id")

	if err := h.ingestService.Delete(r.Context(), documentID, userID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
