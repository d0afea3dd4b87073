package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"loom/internal/config"
	"loom/internal/domain"
	chatmodels "loom/internal/domain/models/chat"
	"loom/internal/service/reasoning"
	"loom/internal/service/tools"
)

// fakeThreadRepo is an in-memory ThreadRepository.
type fakeThreadRepo struct {
	threads map[string]*chatmodels.Thread
	nextID  int
}

func newFakeThreadRepo() *fakeThreadRepo {
	return &fakeThreadRepo{threads: make(map[string]*chatmodels.Thread)}
}

func (f *fakeThreadRepo) CreateThread(ctx context.Context, thread *chatmodels.Thread) error {
	f.nextID++
	thread.ID = fmt.Sprintf("thread-%d", f.nextID)
	copied := *thread
	f.threads[thread.ID] = &copied
	return nil
}

func (f *fakeThreadRepo) GetThread(ctx context.Context, threadID, userID string) (*chatmodels.Thread, error) {
	thread, ok := f.threads[threadID]
	if !ok {
		return nil, fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
	}
	if thread.UserID != userID {
		return nil, fmt.Errorf("thread %s: %w", threadID, domain.ErrForbidden)
	}
	copied := *thread
	return &copied, nil
}

func (f *fakeThreadRepo) ListThreads(ctx context.Context, userID string) ([]chatmodels.Thread, error) {
	var out []chatmodels.Thread
	for _, thread := range f.threads {
		if thread.UserID == userID {
			out = append(out, *thread)
		}
	}
	return out, nil
}

func (f *fakeThreadRepo) UpdateTitle(ctx context.Context, threadID, userID, title string) error {
	thread, err := f.GetThread(ctx, threadID, userID)
	if err != nil {
		return err
	}
	f.threads[thread.ID].Title = title
	return nil
}

func (f *fakeThreadRepo) DeleteThread(ctx context.Context, threadID, userID string) error {
	if _, err := f.GetThread(ctx, threadID, userID); err != nil {
		return err
	}
	delete(f.threads, threadID)
	return nil
}

// fakeTurnRepo is an in-memory TurnRepository whose AppendExchange is
// all-or-nothing, like the real one.
type fakeTurnRepo struct {
	threads    *fakeThreadRepo
	turns      map[string][]chatmodels.Turn
	nextID     int
	failAppend error
	titles     map[string]string // titles set via AppendExchange
}

func newFakeTurnRepo(threads *fakeThreadRepo) *fakeTurnRepo {
	return &fakeTurnRepo{
		threads: threads,
		turns:   make(map[string][]chatmodels.Turn),
		titles:  make(map[string]string),
	}
}

func (f *fakeTurnRepo) AppendTurn(ctx context.Context, userID string, turn *chatmodels.Turn) error {
	if _, err := f.threads.GetThread(ctx, turn.ThreadID, userID); err != nil {
		return err
	}
	f.nextID++
	turn.ID = fmt.Sprintf("turn-%d", f.nextID)
	f.turns[turn.ThreadID] = append(f.turns[turn.ThreadID], *turn)
	return nil
}

func (f *fakeTurnRepo) AppendExchange(ctx context.Context, userID string, userTurn *chatmodels.Turn, toolTurns []*chatmodels.Turn, assistantTurn *chatmodels.Turn, title string) error {
	if f.failAppend != nil {
		return f.failAppend
	}
	if _, err := f.threads.GetThread(ctx, userTurn.ThreadID, userID); err != nil {
		return err
	}
	all := append([]*chatmodels.Turn{userTurn}, toolTurns...)
	all = append(all, assistantTurn)
	for _, turn := range all {
		f.nextID++
		turn.ID = fmt.Sprintf("turn-%d", f.nextID)
		f.turns[turn.ThreadID] = append(f.turns[turn.ThreadID], *turn)
	}
	if title != "" {
		f.titles[userTurn.ThreadID] = title
		f.threads.threads[userTurn.ThreadID].Title = title
	}
	return nil
}

func (f *fakeTurnRepo) GetTurn(ctx context.Context, turnID, userID string) (*chatmodels.Turn, error) {
	for threadID, turns := range f.turns {
		for i := range turns {
			if turns[i].ID == turnID {
				if _, err := f.threads.GetThread(ctx, threadID, userID); err != nil {
					return nil, err
				}
				turn := turns[i]
				return &turn, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTurnRepo) ListTurns(ctx context.Context, threadID, userID string) ([]chatmodels.Turn, error) {
	if _, err := f.threads.GetThread(ctx, threadID, userID); err != nil {
		return nil, err
	}
	return append([]chatmodels.Turn{}, f.turns[threadID]...), nil
}

// scriptedStepper returns outcomes in sequence and records each request.
type scriptedStepper struct {
	outcomes []reasoning.Outcome
	err      error
	requests []*reasoning.Request
	onStep   func(ctx context.Context)
}

func (s *scriptedStepper) Step(ctx context.Context, req *reasoning.Request) (reasoning.Outcome, error) {
	s.requests = append(s.requests, req)
	if s.onStep != nil {
		s.onStep(ctx)
	}
	if s.err != nil {
		return nil, s.err
	}
	if len(s.outcomes) == 0 {
		return nil, errors.New("scripted stepper exhausted")
	}
	outcome := s.outcomes[0]
	s.outcomes = s.outcomes[1:]
	return outcome, nil
}

// fixedSearcher returns the same chunks for every query.
type fixedSearcher struct {
	chunks []chatmodels.Chunk
}

func (f *fixedSearcher) Search(ctx context.Context, userID, query string, topK int) ([]chatmodels.Chunk, error) {
	return f.chunks, nil
}

func testOrchestrator(t *testing.T, stepper Stepper, searcher tools.Searcher) (*Orchestrator, *fakeThreadRepo, *fakeTurnRepo) {
	t.Helper()
	threads := newFakeThreadRepo()
	turns := newFakeTurnRepo(threads)
	if searcher == nil {
		searcher = &fixedSearcher{}
	}
	orch := NewOrchestrator(
		threads,
		turns,
		stepper,
		searcher,
		"claude-haiku-4-5-20251001",
		config.OrchestratorConfig{MaxRounds: 5, TopK: 4, MaxContextTurns: 100},
		slog.New(slog.DiscardHandler),
	)
	return orch, threads, turns
}

func TestOrchestrator_Run_DirectAnswer(t *testing.T) {
	stepper := &scriptedStepper{outcomes: []reasoning.Outcome{
		reasoning.FinalAnswer{Text: "Hello! How can I help?"},
	}}
	orch, threads, turns := testOrchestrator(t, stepper, nil)

	result, err := orch.Run(context.Background(), &Request{
		UserID:  "user-1",
		Message: "Hi there",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Answer != "Hello! How can I help?" {
		t.Errorf("answer = %q", result.Answer)
	}
	if result.Thread == nil || result.Thread.ID == "" {
		t.Fatal("expected a new thread")
	}
	if threads.threads[result.Thread.ID].Title != "Hi there" {
		t.Errorf("thread title = %q, want 'Hi there'", threads.threads[result.Thread.ID].Title)
	}

	stored := turns.turns[result.Thread.ID]
	if len(stored) != 2 {
		t.Fatalf("expected 2 turns persisted, got %d", len(stored))
	}
	if stored[0].Role != chatmodels.RoleUser || stored[0].Content != "Hi there" {
		t.Errorf("first turn = %+v", stored[0])
	}
	if stored[1].Role != chatmodels.RoleAssistant || stored[1].Content != result.Answer {
		t.Errorf("second turn = %+v", stored[1])
	}

	// The request carried the system prompt and both tool definitions.
	req := stepper.requests[0]
	if req.System == "" {
		t.Error("expected a system prompt")
	}
	if len(req.Tools) != 2 {
		t.Errorf("expected 2 tool definitions, got %d", len(req.Tools))
	}
}

func TestOrchestrator_Run_CalculatorLoop(t *testing.T) {
	stepper := &scriptedStepper{outcomes: []reasoning.Outcome{
		reasoning.ToolRequest{Calls: []tools.ToolCall{{
			ID:    "call-1",
			Name:  "calculator",
			Input: map[string]any{"expression": "(3 + 5) * 2"},
		}}},
		reasoning.FinalAnswer{Text: "The result is 16."},
	}}
	orch, _, turns := testOrchestrator(t, stepper, nil)

	result, err := orch.Run(context.Background(), &Request{
		UserID:  "user-1",
		Message: "what is (3 + 5) * 2",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Answer != "The result is 16." {
		t.Errorf("answer = %q", result.Answer)
	}

	// The second step saw the tool loop replayed.
	if len(stepper.requests) != 2 {
		t.Fatalf("expected 2 reasoning steps, got %d", len(stepper.requests))
	}
	second := stepper.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if len(last.ToolResults) != 1 {
		t.Fatalf("expected tool result in final message, got %+v", last)
	}
	if last.ToolResults[0].IsError {
		t.Error("calculator result should not be an error")
	}
	if !strings.Contains(last.ToolResults[0].Content, "16") {
		t.Errorf("tool result content = %q, want it to contain 16", last.ToolResults[0].Content)
	}

	// Round persisted as user, tool, assistant.
	stored := turns.turns[result.Thread.ID]
	if len(stored) != 3 {
		t.Fatalf("expected 3 turns persisted, got %d", len(stored))
	}
	if stored[1].Role != chatmodels.RoleTool {
		t.Errorf("middle turn role = %s, want tool", stored[1].Role)
	}
	if stored[1].Metadata[chatmodels.MetaToolName] != "calculator" {
		t.Errorf("tool turn metadata = %+v", stored[1].Metadata)
	}

	invocations, ok := stored[2].Metadata[chatmodels.MetaToolInvocations].([]map[string]any)
	if !ok || len(invocations) != 1 {
		t.Fatalf("assistant metadata = %+v", stored[2].Metadata)
	}
	if invocations[0]["name"] != "calculator" {
		t.Errorf("invocation = %+v", invocations[0])
	}
}

func TestOrchestrator_Run_InvalidExpressionFeedsBack(t *testing.T) {
	stepper := &scriptedStepper{outcomes: []reasoning.Outcome{
		reasoning.ToolRequest{Calls: []tools.ToolCall{{
			ID:    "call-1",
			Name:  "calculator",
			Input: map[string]any{"expression": "5 / 0"},
		}}},
		reasoning.FinalAnswer{Text: "That expression divides by zero."},
	}}
	orch, _, _ := testOrchestrator(t, stepper, nil)

	result, err := orch.Run(context.Background(), &Request{
		UserID:  "user-1",
		Message: "what is 5 / 0",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Answer != "That expression divides by zero." {
		t.Errorf("answer = %q", result.Answer)
	}

	second := stepper.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if !last.ToolResults[0].IsError {
		t.Error("expected error tool result for division by zero")
	}
}

func TestOrchestrator_Run_RetrievalSources(t *testing.T) {
	searcher := &fixedSearcher{chunks: []chatmodels.Chunk{
		{DocumentID: "doc-1", Filename: "handbook.md", Text: "Remote work policy...", Score: 0.9},
	}}
	stepper := &scriptedStepper{outcomes: []reasoning.Outcome{
		reasoning.ToolRequest{Calls: []tools.ToolCall{{
			ID:    "call-1",
			Name:  "search_documents",
			Input: map[string]any{"query": "remote work policy"},
		}}},
		reasoning.FinalAnswer{Text: "Per the handbook, remote work is allowed."},
	}}
	orch, _, turns := testOrchestrator(t, stepper, searcher)

	result, err := orch.Run(context.Background(), &Request{
		UserID:  "user-1",
		Message: "What is the remote work policy?",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(result.Sources) != 1 || result.Sources[0].Filename != "handbook.md" {
		t.Fatalf("sources = %+v", result.Sources)
	}

	stored := turns.turns[result.Thread.ID]
	assistant := stored[len(stored)-1]
	if _, ok := assistant.Metadata[chatmodels.MetaSources]; !ok {
		t.Errorf("assistant metadata missing sources: %+v", assistant.Metadata)
	}
}

func TestOrchestrator_Run_EmptyRetrievalStillAnswers(t *testing.T) {
	stepper := &scriptedStepper{outcomes: []reasoning.Outcome{
		reasoning.ToolRequest{Calls: []tools.ToolCall{{
			ID:    "call-1",
			Name:  "search_documents",
			Input: map[string]any{"query": "nonexistent topic"},
		}}},
		reasoning.FinalAnswer{Text: "I could not find that in your documents."},
	}}
	orch, _, _ := testOrchestrator(t, stepper, &fixedSearcher{})

	result, err := orch.Run(context.Background(), &Request{
		UserID:  "user-1",
		Message: "What about the nonexistent topic?",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(result.Sources) != 0 {
		t.Errorf("expected no sources, got %+v", result.Sources)
	}
}

func TestOrchestrator_Run_RoundLimit(t *testing.T) {
	// The model keeps asking for tools and never settles.
	endless := make([]reasoning.Outcome, 5)
	for i := range endless {
		endless[i] = reasoning.ToolRequest{Calls: []tools.ToolCall{{
			ID:    fmt.Sprintf("call-%d", i),
			Name:  "calculator",
			Input: map[string]any{"expression": "1 + 1"},
		}}}
	}
	stepper := &scriptedStepper{outcomes: endless}
	orch, _, turns := testOrchestrator(t, stepper, nil)

	_, err := orch.Run(context.Background(), &Request{
		UserID:  "user-1",
		Message: "loop forever",
	})
	if !errors.Is(err, domain.ErrLoopExceeded) {
		t.Fatalf("error = %v, want ErrLoopExceeded", err)
	}
	if len(stepper.requests) != 5 {
		t.Errorf("expected exactly 5 reasoning steps, got %d", len(stepper.requests))
	}

	// Nothing was persisted.
	for threadID, stored := range turns.turns {
		if len(stored) != 0 {
			t.Errorf("thread %s has %d persisted turns, want 0", threadID, len(stored))
		}
	}
}

func TestOrchestrator_Run_BackendFailure(t *testing.T) {
	stepper := &scriptedStepper{err: fmt.Errorf("3 attempts failed: %w", domain.ErrBackendUnavailable)}
	orch, _, turns := testOrchestrator(t, stepper, nil)

	_, err := orch.Run(context.Background(), &Request{
		UserID:  "user-1",
		Message: "hello",
	})
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("error = %v, want ErrBackendUnavailable", err)
	}
	for _, stored := range turns.turns {
		if len(stored) != 0 {
			t.Error("failed round must not persist turns")
		}
	}
}

func TestOrchestrator_Run_PersistFailure(t *testing.T) {
	stepper := &scriptedStepper{outcomes: []reasoning.Outcome{
		reasoning.FinalAnswer{Text: "done"},
	}}
	orch, _, turns := testOrchestrator(t, stepper, nil)
	turns.failAppend = errors.New("connection reset by peer")

	_, err := orch.Run(context.Background(), &Request{
		UserID:  "user-1",
		Message: "hello",
	})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("error = %v, want ErrPersistence", err)
	}
	for _, stored := range turns.turns {
		if len(stored) != 0 {
			t.Error("failed persist must not leave partial turns")
		}
	}
}

func TestOrchestrator_Run_UnexpectedOutcome(t *testing.T) {
	// A broken provider returning a nil outcome with a nil error must
	// surface as an error, not a panic, and must not persist anything.
	stepper := &scriptedStepper{outcomes: []reasoning.Outcome{nil}}
	orch, _, turns := testOrchestrator(t, stepper, nil)

	_, err := orch.Run(context.Background(), &Request{
		UserID:  "user-1",
		Message: "hello",
	})
	if err == nil {
		t.Fatal("expected an error for a nil outcome")
	}
	for _, stored := range turns.turns {
		if len(stored) != 0 {
			t.Error("failed round must not persist turns")
		}
	}
}

func TestOrchestrator_Run_CancellationSkipsPersist(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stepper := &scriptedStepper{
		outcomes: []reasoning.Outcome{reasoning.FinalAnswer{Text: "done"}},
		onStep:   func(context.Context) { cancel() },
	}
	orch, _, turns := testOrchestrator(t, stepper, nil)

	_, err := orch.Run(ctx, &Request{
		UserID:  "user-1",
		Message: "hello",
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	for _, stored := range turns.turns {
		if len(stored) != 0 {
			t.Error("cancelled round must not persist turns")
		}
	}
}

func TestOrchestrator_Run_ExistingThread(t *testing.T) {
	stepper := &scriptedStepper{outcomes: []reasoning.Outcome{
		reasoning.FinalAnswer{Text: "Continuing."},
	}}
	orch, threads, turns := testOrchestrator(t, stepper, nil)

	thread := &chatmodels.Thread{UserID: "user-1", Title: "Existing"}
	if err := threads.CreateThread(context.Background(), thread); err != nil {
		t.Fatal(err)
	}
	turns.turns[thread.ID] = []chatmodels.Turn{
		{ThreadID: thread.ID, Role: chatmodels.RoleUser, Content: "earlier question"},
		{ThreadID: thread.ID, Role: chatmodels.RoleAssistant, Content: "earlier answer"},
	}

	result, err := orch.Run(context.Background(), &Request{
		UserID:   "user-1",
		ThreadID: thread.ID,
		Message:  "follow-up",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Thread.ID != thread.ID {
		t.Errorf("thread = %s, want %s", result.Thread.ID, thread.ID)
	}

	// History was replayed before the new message.
	req := stepper.requests[0]
	if len(req.Messages) != 3 {
		t.Fatalf("expected 3 messages (2 history + 1 new), got %d", len(req.Messages))
	}
	if req.Messages[0].Content != "earlier question" {
		t.Errorf("first replayed message = %q", req.Messages[0].Content)
	}

	// Existing title is kept.
	if threads.threads[thread.ID].Title != "Existing" {
		t.Errorf("title = %q, want 'Existing'", threads.threads[thread.ID].Title)
	}
}

func TestOrchestrator_Run_ThreadAccess(t *testing.T) {
	stepper := &scriptedStepper{outcomes: []reasoning.Outcome{
		reasoning.FinalAnswer{Text: "nope"},
	}}
	orch, threads, _ := testOrchestrator(t, stepper, nil)

	other := &chatmodels.Thread{UserID: "user-2", Title: "Theirs"}
	if err := threads.CreateThread(context.Background(), other); err != nil {
		t.Fatal(err)
	}

	t.Run("foreign thread is forbidden", func(t *testing.T) {
		_, err := orch.Run(context.Background(), &Request{
			UserID:   "user-1",
			ThreadID: other.ID,
			Message:  "hi",
		})
		if !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("error = %v, want ErrForbidden", err)
		}
	})

	t.Run("missing thread is not found", func(t *testing.T) {
		_, err := orch.Run(context.Background(), &Request{
			UserID:   "user-1",
			ThreadID: "thread-404",
			Message:  "hi",
		})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestOrchestrator_Run_Validation(t *testing.T) {
	orch, _, _ := testOrchestrator(t, &scriptedStepper{}, nil)

	t.Run("empty message", func(t *testing.T) {
		_, err := orch.Run(context.Background(), &Request{UserID: "user-1", Message: ""})
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("oversized message", func(t *testing.T) {
		_, err := orch.Run(context.Background(), &Request{
			UserID:  "user-1",
			Message: strings.Repeat("x", config.MaxMessageLength+1),
		})
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"short message", "Hello world", "Hello world"},
		{"trims whitespace", "  Hello  ", "Hello"},
		{"first line only", "Question here\nwith details below", "Question here"},
		{"truncated", strings.Repeat("a", 80), strings.Repeat("a", 50)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := deriveTitle(tc.message); got != tc.want {
				t.Errorf("deriveTitle(%q) = %q, want %q", tc.message, got, tc.want)
			}
		})
	}
}
