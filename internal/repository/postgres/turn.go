package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"loom/internal/domain"
	"loom/internal/domain/models/chat"
	"loom/internal/domain/repositories"
)

// PostgresTurnRepository implements the TurnRepository interface using PostgreSQL
type PostgresTurnRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewTurnRepository creates a new PostgresTurnRepository
func NewTurnRepository(config *RepositoryConfig) repositories.TurnRepository {
	return &PostgresTurnRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// lockThread takes a row lock on the thread inside the current transaction,
// serializing concurrent appends to the same thread, and verifies ownership.
func (r *PostgresTurnRepository) lockThread(ctx context.Context, tx pgx.Tx, threadID, userID string) error {
	query := fmt.Sprintf(`SELECT user_id FROM %s WHERE id = $1 FOR UPDATE`, r.tables.Threads)

	var ownerID string
	if err := tx.QueryRow(ctx, query, threadID).Scan(&ownerID); err != nil {
		if IsPgNoRowsError(err) {
			return fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
		}
		return fmt.Errorf("lock thread: %w", err)
	}
	if ownerID != userID {
		return fmt.Errorf("thread %s: %w", threadID, domain.ErrForbidden)
	}
	return nil
}

func (r *PostgresTurnRepository) insertTurn(ctx context.Context, tx pgx.Tx, turn *chat.Turn) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (thread_id, role, content, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, r.tables.Turns)

	err := tx.QueryRow(ctx, query,
		turn.ThreadID,
		turn.Role,
		turn.Content,
		turn.Metadata,
		time.Now(),
	).Scan(&turn.ID, &turn.CreatedAt)
	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("thread %s: %w", turn.ThreadID, domain.ErrNotFound)
		}
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

func (r *PostgresTurnRepository) touchThread(ctx context.Context, tx pgx.Tx, threadID, title string) error {
	var query string
	var args []any
	if title != "" {
		query = fmt.Sprintf(`UPDATE %s SET updated_at = now(), title = $2 WHERE id = $1`, r.tables.Threads)
		args = []any{threadID, title}
	} else {
		query = fmt.Sprintf(`UPDATE %s SET updated_at = now() WHERE id = $1`, r.tables.Threads)
		args = []any{threadID}
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("touch thread: %w", err)
	}
	return nil
}

// AppendTurn atomically appends one turn and bumps the thread's updated_at
func (r *PostgresTurnRepository) AppendTurn(ctx context.Context, userID string, turn *chat.Turn) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := r.lockThread(ctx, tx, turn.ThreadID, userID); err != nil {
			return err
		}
		if err := r.insertTurn(ctx, tx, turn); err != nil {
			return err
		}
		return r.touchThread(ctx, tx, turn.ThreadID, "")
	})
}

// AppendExchange appends one completed chat round (user turn, tool turns,
// assistant turn) in a single transaction. The FOR UPDATE lock on the thread
// row serializes concurrent rounds on the same thread; all turns commit or
// none do. A non-empty title is set in the same transaction.
func (r *PostgresTurnRepository) AppendExchange(ctx context.Context, userID string, userTurn *chat.Turn, toolTurns []*chat.Turn, assistantTurn *chat.Turn, title string) error {
	if userTurn.ThreadID != assistantTurn.ThreadID {
		return fmt.Errorf("exchange spans threads %s and %s: %w", userTurn.ThreadID, assistantTurn.ThreadID, domain.ErrValidation)
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := r.lockThread(ctx, tx, userTurn.ThreadID, userID); err != nil {
			return err
		}
		if err := r.insertTurn(ctx, tx, userTurn); err != nil {
			return err
		}
		for _, toolTurn := range toolTurns {
			if toolTurn.ThreadID != userTurn.ThreadID {
				return fmt.Errorf("exchange spans threads %s and %s: %w", userTurn.ThreadID, toolTurn.ThreadID, domain.ErrValidation)
			}
			if err := r.insertTurn(ctx, tx, toolTurn); err != nil {
				return err
			}
		}
		if err := r.insertTurn(ctx, tx, assistantTurn); err != nil {
			return err
		}
		return r.touchThread(ctx, tx, userTurn.ThreadID, title)
	})
	if err != nil {
		return err
	}

	r.logger.Debug("exchange appended",
		"thread_id", userTurn.ThreadID,
		"user_turn_id", userTurn.ID,
		"assistant_turn_id", assistantTurn.ID,
	)
	return nil
}

// GetTurn retrieves one turn by ID, scoped through its thread's owner.
func (r *PostgresTurnRepository) GetTurn(ctx context.Context, turnID, userID string) (*chat.Turn, error) {
	query := fmt.Sprintf(`
		SELECT t.id, t.thread_id, t.role, t.content, t.metadata, t.created_at, th.user_id
		FROM %s t
		JOIN %s th ON th.id = t.thread_id
		WHERE t.id = $1
	`, r.tables.Turns, r.tables.Threads)

	executor := GetExecutor(ctx, r.pool)

	var turn chat.Turn
	var ownerID string
	err := executor.QueryRow(ctx, query, turnID).Scan(
		&turn.ID,
		&turn.ThreadID,
		&turn.Role,
		&turn.Content,
		&turn.Metadata,
		&turn.CreatedAt,
		&ownerID,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("turn %s: %w", turnID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get turn: %w", err)
	}
	if ownerID != userID {
		return nil, fmt.Errorf("turn %s: %w", turnID, domain.ErrForbidden)
	}

	return &turn, nil
}

// ListTurns returns all turns of a thread in creation order
func (r *PostgresTurnRepository) ListTurns(ctx context.Context, threadID, userID string) ([]chat.Turn, error) {
	// Ownership probe: 404 for missing, 403 for foreign threads.
	probe := fmt.Sprintf(`SELECT user_id FROM %s WHERE id = $1`, r.tables.Threads)
	executor := GetExecutor(ctx, r.pool)

	var ownerID string
	if err := executor.QueryRow(ctx, probe, threadID).Scan(&ownerID); err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("probe thread: %w", err)
	}
	if ownerID != userID {
		return nil, fmt.Errorf("thread %s: %w", threadID, domain.ErrForbidden)
	}

	query := fmt.Sprintf(`
		SELECT id, thread_id, role, content, metadata, created_at
		FROM %s
		WHERE thread_id = $1
		ORDER BY created_at ASC, id ASC
	`, r.tables.Turns)

	rows, err := executor.Query(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	turns := []chat.Turn{}
	for rows.Next() {
		var turn chat.Turn
		if err := rows.Scan(
			&turn.ID,
			&turn.ThreadID,
			&turn.Role,
			&turn.Content,
			&turn.Metadata,
			&turn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	return turns, nil
}
