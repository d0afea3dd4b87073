package models

import (
	"time"
)

// Document processing statuses. Only ready documents are eligible for
// retrieval.
const (
	DocumentStatusPending = "pending"
	DocumentStatusReady   = "ready"
	DocumentStatusFailed  = "failed"
)

// Document tracks one user-uploaded source file. The retrievable content
// lives in the chunks table; this row carries ownership, provenance and
// processing state.
type Document struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	Filename    string     `json:"filename" db:"filename"`
	StoragePath string     `json:"-" db:"storage_path"`
	SizeBytes   int64      `json:"size_bytes" db:"size_bytes"`
	Status      string     `json:"status" db:"status"`
	Error       *string    `json:"error,omitempty" db:"error"`
	UploadedAt  time.Time  `json:"uploaded_at" db:"uploaded_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty" db:"processed_at"`
}
