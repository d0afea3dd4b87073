package reasoning

import (
	"context"

	"loom/internal/service/tools"
)

// Message is one conversational message in a step request, in the order it
// should be replayed to the backend. Assistant messages may carry tool calls;
// user messages may carry the matching tool results.
type Message struct {
	Role        string // "user" or "assistant"
	Content     string
	ToolCalls   []tools.ToolCall
	ToolResults []ToolResultBlock
}

// ToolResultBlock reports one executed tool call back to the model.
type ToolResultBlock struct {
	ToolCallID string
	Content    string
	IsError    bool
}

// Request is the input to one reasoning step.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Tools       []tools.Definition
	MaxTokens   int
	Temperature *float64
}

// Provider generates one reasoning step against a concrete backend.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// SupportsModel returns true if this provider supports the given model.
	SupportsModel(model string) bool

	// Step runs one reasoning step. Failures are wrapped in the package's
	// classification sentinels where the cause is known.
	Step(ctx context.Context, req *Request) (Outcome, error)
}
