package repositories

import (
	"context"

	"loom/internal/domain/models"
)

// DocumentRepository defines data access for uploaded document records.
type DocumentRepository interface {
	// CreateDocument inserts a new document row (status pending).
	CreateDocument(ctx context.Context, doc *models.Document) error

	// GetDocument retrieves a document scoped to its owner.
	// Returns domain.ErrNotFound if missing or owned by another user.
	GetDocument(ctx context.Context, documentID, userID string) (*models.Document, error)

	// ListDocuments returns a user's documents, newest upload first.
	ListDocuments(ctx context.Context, userID string) ([]models.Document, error)

	// SetStatus transitions a document's processing status. The error
	// message is stored for failed documents and cleared otherwise.
	SetStatus(ctx context.Context, documentID, status string, errMsg *string) error

	// DeleteDocument removes a document and cascades to its chunks.
	DeleteDocument(ctx context.Context, documentID, userID string) error
}

// StoredChunk is one embedded fragment of a processed document.
type StoredChunk struct {
	DocumentID string
	Index      int
	Text       string
	Embedding  []float32
}

// ChunkRepository defines data access for the vector index.
type ChunkRepository interface {
	// InsertChunks stores embedded chunks for a document.
	InsertChunks(ctx context.Context, chunks []StoredChunk) error

	// DeleteChunks removes all chunks of a document (used on reprocess).
	DeleteChunks(ctx context.Context, documentID string) error

	// SearchChunks returns the topK nearest chunks to the query embedding
	// among the given user's ready documents, best match first, with
	// cosine similarity scores. Never returns another user's chunks.
	SearchChunks(ctx context.Context, userID string, embedding []float32, topK int) ([]SearchHit, error)
}

// SearchHit is one ranked result from the vector index.
type SearchHit struct {
	DocumentID string
	Filename   string
	Text       string
	Score      float64
}
