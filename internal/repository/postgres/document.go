package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"loom/internal/domain"
	"loom/internal/domain/models"
	"loom/internal/domain/repositories"
)

// PostgresDocumentRepository implements the DocumentRepository interface using PostgreSQL
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new PostgresDocumentRepository
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// CreateDocument inserts a new document row (status pending)
func (r *PostgresDocumentRepository) CreateDocument(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, filename, storage_path, size_bytes, status, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, uploaded_at
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.UserID,
		doc.Filename,
		doc.StoragePath,
		doc.SizeBytes,
		doc.Status,
		time.Now(),
	).Scan(&doc.ID, &doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

// GetDocument retrieves a document scoped to its owner
func (r *PostgresDocumentRepository) GetDocument(ctx context.Context, documentID, userID string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, filename, storage_path, size_bytes, status, error, uploaded_at, processed_at
		FROM %s
		WHERE id = $1 AND user_id = $2
	`, r.tables.Documents)

	var doc models.Document
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, documentID, userID).Scan(
		&doc.ID,
		&doc.UserID,
		&doc.Filename,
		&doc.StoragePath,
		&doc.SizeBytes,
		&doc.Status,
		&doc.Error,
		&doc.UploadedAt,
		&doc.ProcessedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return &doc, nil
}

// ListDocuments returns a user's documents, newest upload first
func (r *PostgresDocumentRepository) ListDocuments(ctx context.Context, userID string) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, filename, storage_path, size_bytes, status, error, uploaded_at, processed_at
		FROM %s
		WHERE user_id = $1
		ORDER BY uploaded_at DESC
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(
			&doc.ID,
			&doc.UserID,
			&doc.Filename,
			&doc.StoragePath,
			&doc.SizeBytes,
			&doc.Status,
			&doc.Error,
			&doc.UploadedAt,
			&doc.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return docs, nil
}

// SetStatus transitions a document's processing status. processed_at is
// stamped on terminal states (ready, failed) and cleared on pending.
func (r *PostgresDocumentRepository) SetStatus(ctx context.Context, documentID, status string, errMsg *string) error {
	var processedAt *time.Time
	if status == models.DocumentStatusReady || status == models.DocumentStatusFailed {
		now := time.Now()
		processedAt = &now
	}

	query := fmt.Sprintf(`
		UPDATE %s SET status = $2, error = $3, processed_at = $4
		WHERE id = $1
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, documentID, status, errMsg, processedAt)
	if err != nil {
		return fmt.Errorf("set document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}

	return nil
}

// DeleteDocument removes a document; chunks cascade via the foreign key
func (r *PostgresDocumentRepository) DeleteDocument(ctx context.Context, documentID, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, documentID, userID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}

	r.logger.Info("document deleted", "document_id", documentID, "user_id", userID)
	return nil
}
