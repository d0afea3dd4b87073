package repositories

import (
	"context"

	"loom/internal/domain/models/chat"
)

// ThreadRepository defines data access for conversation threads.
// All read and mutate operations are scoped to the owning user; a thread
// that exists but belongs to someone else yields domain.ErrForbidden.
type ThreadRepository interface {
	// CreateThread creates a new empty thread owned by thread.UserID.
	CreateThread(ctx context.Context, thread *chat.Thread) error

	// GetThread retrieves a thread by ID.
	// Returns domain.ErrNotFound if no such thread exists,
	// domain.ErrForbidden if it exists but userID does not own it.
	GetThread(ctx context.Context, threadID, userID string) (*chat.Thread, error)

	// ListThreads retrieves all threads for a user, most recently
	// updated first. Returns an empty slice if the user has none.
	ListThreads(ctx context.Context, userID string) ([]chat.Thread, error)

	// UpdateTitle renames a thread.
	UpdateTitle(ctx context.Context, threadID, userID, title string) error

	// DeleteThread deletes a thread and cascades to all of its turns.
	DeleteThread(ctx context.Context, threadID, userID string) error
}

// TurnRepository defines data access for turns within a thread.
// Turns are append-only and immutable once created.
type TurnRepository interface {
	// AppendTurn atomically appends one turn and bumps the thread's
	// updated_at timestamp. Returns domain.ErrNotFound / ErrForbidden
	// per the thread ownership rules.
	AppendTurn(ctx context.Context, userID string, turn *chat.Turn) error

	// AppendExchange appends one completed chat round in a single
	// transaction: the user turn, any intermediate tool turns, then the
	// assistant turn. The transaction is serialized per thread so
	// concurrent rounds on the same thread cannot interleave, and all
	// turns commit or none do. When title is non-empty the thread title
	// is set in the same transaction (first-message naming).
	AppendExchange(ctx context.Context, userID string, userTurn *chat.Turn, toolTurns []*chat.Turn, assistantTurn *chat.Turn, title string) error

	// ListTurns returns all turns of a thread in creation order,
	// reflecting every previously committed append (read-after-write).
	ListTurns(ctx context.Context, threadID, userID string) ([]chat.Turn, error)

	// GetTurn retrieves one turn by ID, scoped through its thread's owner.
	GetTurn(ctx context.Context, turnID, userID string) (*chat.Turn, error)
}
