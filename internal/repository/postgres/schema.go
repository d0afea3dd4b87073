package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the schema if it does not exist. Idempotent; run at
// startup. embeddingDims must match the configured embedding model.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, embeddingDims int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				user_id TEXT NOT NULL,
				title VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, tables.Threads),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_user_idx ON %s (user_id, updated_at DESC)`,
			tables.Threads, tables.Threads),

		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				thread_id UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				role TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'tool')),
				content TEXT NOT NULL,
				metadata JSONB,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, tables.Turns, tables.Threads),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_thread_idx ON %s (thread_id, created_at, id)`,
			tables.Turns, tables.Turns),

		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				user_id TEXT NOT NULL,
				filename VARCHAR(255) NOT NULL,
				storage_path TEXT NOT NULL,
				size_bytes BIGINT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'ready', 'failed')),
				error TEXT,
				uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				processed_at TIMESTAMPTZ
			)`, tables.Documents),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_user_idx ON %s (user_id, uploaded_at DESC)`,
			tables.Documents, tables.Documents),

		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				document_id UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				chunk_index INT NOT NULL,
				content TEXT NOT NULL,
				embedding vector(%d) NOT NULL
			)`, tables.Chunks, tables.Documents, embeddingDims),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_doc_idx ON %s (document_id, chunk_index)`,
			tables.Chunks, tables.Chunks),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}

	return nil
}
