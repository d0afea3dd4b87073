package chat

import (
	"time"
)

// Thread represents one ongoing conversation between a user and the assistant.
// A thread belongs to exactly one user; only that user may read or mutate it.
type Thread struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
