package script

import (
	"context"
	"testing"

	"loom/internal/service/reasoning"
	"loom/internal/service/tools"
)

var chatTools = []tools.Definition{
	{Name: "calculator"},
	{Name: "search_documents"},
}

func stepRequest(content string) *reasoning.Request {
	return &reasoning.Request{
		Model:    "script-default",
		Messages: []reasoning.Message{{Role: "user", Content: content}},
		Tools:    chatTools,
	}
}

func TestStepArithmetic(t *testing.T) {
	provider := NewProvider()

	tests := []struct {
		name     string
		message  string
		wantExpr string
	}{
		{"BareExpression", "2 + 2", "2 + 2"},
		{"NaturalPhrasing", "what is 2 + 2", "2 + 2"},
		{"NaturalPhrasingQuestionMark", "What is 12 * 3?", "12 * 3"},
		{"LeadingProseBeforeSqrt", "please compute sqrt(16)", "sqrt(16)"},
		{"Parenthesized", "calculate (3 + 4) * 2", "(3 + 4) * 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := provider.Step(context.Background(), stepRequest(tt.message))
			if err != nil {
				t.Fatalf("Step failed: %v", err)
			}
			request, ok := outcome.(reasoning.ToolRequest)
			if !ok {
				t.Fatalf("outcome = %T, want ToolRequest", outcome)
			}
			if len(request.Calls) != 1 || request.Calls[0].Name != "calculator" {
				t.Fatalf("calls = %+v, want one calculator call", request.Calls)
			}
			if got := request.Calls[0].Input["expression"]; got != tt.wantExpr {
				t.Errorf("expression = %q, want %q", got, tt.wantExpr)
			}
		})
	}
}

func TestStepNoArithmetic(t *testing.T) {
	provider := NewProvider()

	t.Run("PlainStatement", func(t *testing.T) {
		outcome, err := provider.Step(context.Background(), stepRequest("hello there"))
		if err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		if _, ok := outcome.(reasoning.FinalAnswer); !ok {
			t.Errorf("outcome = %T, want FinalAnswer", outcome)
		}
	})

	t.Run("QuestionSearchesDocuments", func(t *testing.T) {
		outcome, err := provider.Step(context.Background(), stepRequest("how do I expense travel?"))
		if err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		request, ok := outcome.(reasoning.ToolRequest)
		if !ok {
			t.Fatalf("outcome = %T, want ToolRequest", outcome)
		}
		if request.Calls[0].Name != "search_documents" {
			t.Errorf("tool = %q, want search_documents", request.Calls[0].Name)
		}
	})
}

func TestStepFoldsToolResults(t *testing.T) {
	provider := NewProvider()

	req := &reasoning.Request{
		Model: "script-default",
		Messages: []reasoning.Message{
			{Role: "user", Content: "what is 2 + 2"},
			{Role: "user", ToolResults: []reasoning.ToolResultBlock{
				{ToolCallID: "script-calc-1", Content: "4"},
			}},
		},
		Tools: chatTools,
	}
	outcome, err := provider.Step(context.Background(), req)
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	answer, ok := outcome.(reasoning.FinalAnswer)
	if !ok {
		t.Fatalf("outcome = %T, want FinalAnswer", outcome)
	}
	if answer.Text != "4" {
		t.Errorf("answer = %q, want %q", answer.Text, "4")
	}
}
