package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"loom/internal/domain"
	"loom/internal/domain/models/chat"
	"loom/internal/domain/repositories"
)

// PostgresThreadRepository implements the ThreadRepository interface using PostgreSQL
type PostgresThreadRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewThreadRepository creates a new PostgresThreadRepository
func NewThreadRepository(config *RepositoryConfig) repositories.ThreadRepository {
	return &PostgresThreadRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// CreateThread creates a new empty thread owned by thread.UserID
func (r *PostgresThreadRepository) CreateThread(ctx context.Context, thread *chat.Thread) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, r.tables.Threads)

	now := time.Now()
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		thread.UserID,
		thread.Title,
		now,
		now,
	).Scan(&thread.ID, &thread.CreatedAt, &thread.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create thread: %w", err)
	}

	return nil
}

// GetThread retrieves a thread by ID, distinguishing "does not exist"
// from "owned by someone else" so handlers can answer 404 vs 403.
func (r *PostgresThreadRepository) GetThread(ctx context.Context, threadID, userID string) (*chat.Thread, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Threads)

	var thread chat.Thread
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, threadID).Scan(
		&thread.ID,
		&thread.UserID,
		&thread.Title,
		&thread.CreatedAt,
		&thread.UpdatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get thread: %w", err)
	}

	if thread.UserID != userID {
		return nil, fmt.Errorf("thread %s: %w", threadID, domain.ErrForbidden)
	}

	return &thread, nil
}

// ListThreads retrieves all threads for a user, most recently updated first
func (r *PostgresThreadRepository) ListThreads(ctx context.Context, userID string) ([]chat.Thread, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, created_at, updated_at
		FROM %s
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`, r.tables.Threads)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	threads := []chat.Thread{}
	for rows.Next() {
		var thread chat.Thread
		if err := rows.Scan(
			&thread.ID,
			&thread.UserID,
			&thread.Title,
			&thread.CreatedAt,
			&thread.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		threads = append(threads, thread)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}

	return threads, nil
}

// UpdateTitle renames a thread
func (r *PostgresThreadRepository) UpdateTitle(ctx context.Context, threadID, userID, title string) error {
	// Ownership check first so a foreign thread yields ErrForbidden
	if _, err := r.GetThread(ctx, threadID, userID); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s SET title = $1, updated_at = now()
		WHERE id = $2 AND user_id = $3
	`, r.tables.Threads)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, title, threadID, userID)
	if err != nil {
		return fmt.Errorf("update thread title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
	}

	return nil
}

// DeleteThread deletes a thread; turns cascade via the foreign key
func (r *PostgresThreadRepository) DeleteThread(ctx context.Context, threadID, userID string) error {
	if _, err := r.GetThread(ctx, threadID, userID); err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, r.tables.Threads)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, threadID, userID)
	if err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
	}

	r.logger.Info("thread deleted", "thread_id", threadID, "user_id", userID)
	return nil
}
