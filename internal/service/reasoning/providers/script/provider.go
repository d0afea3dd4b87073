package script

import (
	"context"
	"fmt"
	"strings"

	"loom/internal/service/reasoning"
	"loom/internal/service/tools"
)

// Provider is a deterministic mock reasoning backend for development and
// testing without real API keys. It follows a fixed script: arithmetic in
// the latest user message turns into a calculator call, questions turn into
// a document search, and tool results are echoed back as the final answer.
type Provider struct{}

// NewProvider creates a new script provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "script"
}

// SupportsModel returns true if the model name starts with "script-".
// Example models: "script-default", "script-test"
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "script-")
}

// Step produces the scripted next outcome for the conversation.
func (p *Provider) Step(ctx context.Context, req *reasoning.Request) (reasoning.Outcome, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by script provider: %w", req.Model, reasoning.ErrInvalidRequest)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("empty conversation: %w", reasoning.ErrInvalidRequest)
	}

	last := req.Messages[len(req.Messages)-1]

	// After a tool round, fold the results into a final answer.
	if len(last.ToolResults) > 0 {
		parts := make([]string, 0, len(last.ToolResults))
		for _, tr := range last.ToolResults {
			if tr.IsError {
				parts = append(parts, fmt.Sprintf("The tool failed: %s.", tr.Content))
			} else {
				parts = append(parts, tr.Content)
			}
		}
		return reasoning.FinalAnswer{Text: strings.Join(parts, " ")}, nil
	}

	content := strings.TrimSpace(last.Content)

	if expr, ok := extractArithmetic(content); ok && hasTool(req.Tools, "calculator") {
		return reasoning.ToolRequest{
			Calls: []tools.ToolCall{{
				ID:    "script-calc-1",
				Name:  "calculator",
				Input: map[string]any{"expression": expr},
			}},
		}, nil
	}

	if strings.HasSuffix(content, "?") && hasTool(req.Tools, "search_documents") {
		return reasoning.ToolRequest{
			Calls: []tools.ToolCall{{
				ID:    "script-search-1",
				Name:  "search_documents",
				Input: map[string]any{"query": strings.TrimSuffix(content, "?")},
			}},
		}, nil
	}

	return reasoning.FinalAnswer{Text: "You said: " + content}, nil
}

func hasTool(defs []tools.Definition, name string) bool {
	for _, def := range defs {
		if def.Name == name {
			return true
		}
	}
	return false
}

// extractArithmetic reports whether the message looks like a calculation,
// returning the substring worth handing to the calculator.
func extractArithmetic(content string) (string, bool) {
	hasDigit := strings.ContainsAny(content, "0123456789")
	hasOp := strings.ContainsAny(content, "+-*/") || strings.Contains(content, "sqrt")
	if !hasDigit || !hasOp {
		return "", false
	}
	// Strip a leading natural-language prefix like "what is". The
	// expression can only start with a digit, an opening paren, or sqrt;
	// scanning for bare letters would trip over words like "is".
	trimmed := strings.TrimSuffix(content, "?")
	start := strings.IndexAny(trimmed, "0123456789(")
	if sq := strings.Index(trimmed, "sqrt"); sq >= 0 && (start < 0 || sq < start) {
		start = sq
	}
	if start > 0 {
		trimmed = trimmed[start:]
	}
	return strings.TrimSpace(trimmed), true
}
