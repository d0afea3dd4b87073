package handler

import (
	"time"

	"loom/internal/domain/models"
	"loom/internal/domain/models/chat"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id,omitempty"`
}

// ChatResponse is the completed round.
type ChatResponse struct {
	ThreadID string        `json:"thread_id"`
	Message  string        `json:"message"`
	Sources  []chat.Source `json:"sources,omitempty"`
}

// CreateThreadRequest is the body of POST /api/threads.
type CreateThreadRequest struct {
	Title string `json:"title,omitempty"`
}

// RenameThreadRequest is the body of PATCH /api/threads/{id}.
type RenameThreadRequest struct {
	Title string `json:"title"`
}

// DocumentResponse is the API shape of a document record. The storage path
// is server-internal and stays out of responses.
type DocumentResponse struct {
	ID          string     `json:"id"`
	Filename    string     `json:"filename"`
	SizeBytes   int64      `json:"size_bytes"`
	Status      string     `json:"status"`
	Error       *string    `json:"error,omitempty"`
	UploadedAt  time.Time  `json:"uploaded_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

func toDocumentResponse(doc *models.Document) DocumentResponse {
	return DocumentResponse{
		ID:          doc.ID,
		Filename:    doc.Filename,
		SizeBytes:   doc.SizeBytes,
		Status:      doc.Status,
		Error:       doc.Error,
		UploadedAt:  doc.UploadedAt,
		ProcessedAt: doc.ProcessedAt,
	}
}

func toDocumentResponses(docs []models.Document) []DocumentResponse {
	out := make([]DocumentResponse, len(docs))
	for i := range docs {
		out[i] = toDocumentResponse(&docs[i])
	}
	return out
}
