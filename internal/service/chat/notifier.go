package chat

// Notifier receives progress events while a round is being orchestrated.
// The SSE handler implements it to stream progress; non-streaming callers
// use NopNotifier.
type Notifier interface {
	Notify(event string, data map[string]any)
}

// Progress event names, in the order a round can emit them.
const (
	EventReasoning  = "reasoning"
	EventToolCall   = "tool_call"
	EventToolResult = "tool_result"
	EventPersisting = "persisting"
	EventAnswer     = "answer"
)

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) Notify(event string, data map[string]any) {}
