package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"loom/internal/domain/models"
	"loom/internal/domain/repositories"
)

// PostgresChunkRepository implements the ChunkRepository interface using
// PostgreSQL with the pgvector extension as the vector index.
type PostgresChunkRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewChunkRepository creates a new PostgresChunkRepository
func NewChunkRepository(config *RepositoryConfig) repositories.ChunkRepository {
	return &PostgresChunkRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// InsertChunks stores embedded chunks for a document in one batch
func (r *PostgresChunkRepository) InsertChunks(ctx context.Context, chunks []repositories.StoredChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (document_id, chunk_index, content, embedding)
		VALUES ($1, $2, $3, $4)
	`, r.tables.Chunks)

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		batch.Queue(query,
			chunk.DocumentID,
			chunk.Index,
			chunk.Text,
			pgvector.NewVector(chunk.Embedding),
		)
	}

	executor := GetExecutor(ctx, r.pool)
	results := executor.SendBatch(ctx, batch)
	defer results.Close()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert chunks: %w", err)
		}
	}

	r.logger.Debug("chunks inserted", "document_id", chunks[0].DocumentID, "count", len(chunks))
	return nil
}

// DeleteChunks removes all chunks of a document
func (r *PostgresChunkRepository) DeleteChunks(ctx context.Context, documentID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, r.tables.Chunks)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, documentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	return nil
}

// SearchChunks returns the topK nearest chunks to the query embedding among
// the user's ready documents. The join on the documents table is what scopes
// results to the caller; chunks of other users are never reachable.
func (r *PostgresChunkRepository) SearchChunks(ctx context.Context, userID string, embedding []float32, topK int) ([]repositories.SearchHit, error) {
	// 1 - cosine distance gives similarity in [-1, 1], 1 being identical.
	query := fmt.Sprintf(`
		SELECT c.document_id, d.filename, c.content, 1 - (c.embedding <=> $2) AS score
		FROM %s c
		JOIN %s d ON d.id = c.document_id
		WHERE d.user_id = $1 AND d.status = $3
		ORDER BY c.embedding <=> $2
		LIMIT $4
	`, r.tables.Chunks, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query,
		userID,
		pgvector.NewVector(embedding),
		models.DocumentStatusReady,
		topK,
	)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	hits := []repositories.SearchHit{}
	for rows.Next() {
		var hit repositories.SearchHit
		if err := rows.Scan(&hit.DocumentID, &hit.Filename, &hit.Text, &hit.Score); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search hits: %w", err)
	}

	return hits, nil
}
