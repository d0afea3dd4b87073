package reasoning

import "loom/internal/service/tools"

// Outcome is the result of one reasoning step: either the model produced
// a final answer, or it asked for tools to be executed. The two cases are
// a sealed union; callers switch on the concrete type.
type Outcome interface {
	isOutcome()
}

// FinalAnswer is a completed assistant response.
type FinalAnswer struct {
	Text string
}

func (FinalAnswer) isOutcome() {}

// ToolRequest asks the orchestrator to execute tools and continue.
// Text carries any assistant commentary emitted alongside the calls.
type ToolRequest struct {
	Text  string
	Calls []tools.ToolCall
}

func (ToolRequest) isOutcome() {}
