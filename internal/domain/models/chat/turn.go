package chat

import (
	"time"
)

// Turn roles. Tool turns are synthetic results fed back into the reasoning
// loop; they are stored so rounds are auditable but are filtered out of
// user-facing transcripts.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Metadata keys written by the orchestrator onto assistant turns.
const (
	MetaToolInvocations = "tool_invocations"
	MetaSources         = "sources"

	// Metadata keys written onto tool turns.
	MetaToolName  = "tool_name"
	MetaToolError = "tool_error"
)

// Turn is one utterance within a thread. Turns are immutable once created
// and totally ordered by creation time within their thread.
type Turn struct {
	ID        string         `json:"id" db:"id"`
	ThreadID  string         `json:"thread_id" db:"thread_id"`
	Role      string         `json:"role" db:"role"`
	Content   string         `json:"content" db:"content"`
	Metadata  map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// IsConversational reports whether the turn should appear in a user-facing
// transcript (user and assistant turns only).
func (t *Turn) IsConversational() bool {
	return t.Role == RoleUser || t.Role == RoleAssistant
}
