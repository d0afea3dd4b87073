package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"loom/internal/config"
	"loom/internal/domain"
	chatmodels "loom/internal/domain/models/chat"
	"loom/internal/domain/repositories"
	"loom/internal/service/reasoning"
	"loom/internal/service/tools"
)

// Stepper runs one reasoning step. Satisfied by *reasoning.Invoker.
type Stepper interface {
	Step(ctx context.Context, req *reasoning.Request) (reasoning.Outcome, error)
}

// Request is one user message to orchestrate.
type Request struct {
	UserID   string
	ThreadID string // empty means start a new thread
	Message  string
	Notifier Notifier // optional progress sink
}

// Result is the completed round.
type Result struct {
	Thread        *chatmodels.Thread
	UserTurn      *chatmodels.Turn
	AssistantTurn *chatmodels.Turn
	Answer        string
	Sources       []chatmodels.Source
}

// Orchestrator drives one conversation round: resolve the thread, load
// history, loop reasoning steps and tool executions until a final answer,
// then persist the whole round atomically. Nothing is written until the
// round succeeds, so a failed or cancelled round leaves the thread exactly
// as it was.
type Orchestrator struct {
	threads  repositories.ThreadRepository
	turns    repositories.TurnRepository
	stepper  Stepper
	searcher tools.Searcher
	model    string
	cfg      config.OrchestratorConfig
	logger   *slog.Logger
}

// NewOrchestrator creates a conversation orchestrator.
func NewOrchestrator(
	threads repositories.ThreadRepository,
	turns repositories.TurnRepository,
	stepper Stepper,
	searcher tools.Searcher,
	model string,
	cfg config.OrchestratorConfig,
	logger *slog.Logger,
) *Orchestrator {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 5
	}
	return &Orchestrator{
		threads:  threads,
		turns:    turns,
		stepper:  stepper,
		searcher: searcher,
		model:    model,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run processes one user message and returns the completed round.
func (o *Orchestrator) Run(ctx context.Context, req *Request) (*Result, error) {
	if err := validation.Validate(req.Message,
		validation.Required,
		validation.Length(1, config.MaxMessageLength),
	); err != nil {
		return nil, fmt.Errorf("%w: message: %v", domain.ErrValidation, err)
	}

	notifier := req.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}

	thread, err := o.resolveThread(ctx, req)
	if err != nil {
		return nil, err
	}

	stored, err := o.turns.ListTurns(ctx, thread.ID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	history := buildHistory(stored, o.cfg.MaxContextTurns)

	// First message in the thread names it.
	title := ""
	if len(stored) == 0 {
		title = deriveTitle(req.Message)
	}

	// Tools are registered per request so the search tool is scoped to
	// this user and its source tracking starts empty.
	registry := tools.NewToolRegistry()
	searchTool := tools.RegisterChatTools(registry, req.UserID, o.cfg.TopK, o.searcher)

	messages := append(history, reasoning.Message{
		Role:    chatmodels.RoleUser,
		Content: req.Message,
	})

	answer, toolTurns, invocations, err := o.reason(ctx, thread.ID, messages, registry, notifier)
	if err != nil {
		return nil, err
	}

	// A cancelled round is abandoned whole; nothing reaches the store.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	notifier.Notify(EventPersisting, map[string]any{"thread_id": thread.ID})

	sources := searchTool.Sources()
	userTurn := &chatmodels.Turn{
		ThreadID: thread.ID,
		Role:     chatmodels.RoleUser,
		Content:  req.Message,
	}
	assistantTurn := &chatmodels.Turn{
		ThreadID: thread.ID,
		Role:     chatmodels.RoleAssistant,
		Content:  answer,
		Metadata: assistantMetadata(invocations, sources),
	}

	if err := o.turns.AppendExchange(ctx, req.UserID, userTurn, toolTurns, assistantTurn, title); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	if title != "" {
		thread.Title = title
	}

	notifier.Notify(EventAnswer, map[string]any{
		"thread_id": thread.ID,
		"content":   answer,
	})

	o.logger.Info("round completed",
		"thread_id", thread.ID,
		"user_id", req.UserID,
		"tool_invocations", len(invocations),
		"sources", len(sources),
	)

	return &Result{
		Thread:        thread,
		UserTurn:      userTurn,
		AssistantTurn: assistantTurn,
		Answer:        answer,
		Sources:       sources,
	}, nil
}

// resolveThread loads the target thread or creates a fresh one.
func (o *Orchestrator) resolveThread(ctx context.Context, req *Request) (*chatmodels.Thread, error) {
	if req.ThreadID != "" {
		return o.threads.GetThread(ctx, req.ThreadID, req.UserID)
	}

	thread := &chatmodels.Thread{
		UserID: req.UserID,
		Title:  deriveTitle(req.Message),
	}
	if err := o.threads.CreateThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	return thread, nil
}

// reason loops reasoning steps and tool executions until the model settles
// on a final answer or the round budget runs out.
func (o *Orchestrator) reason(
	ctx context.Context,
	threadID string,
	messages []reasoning.Message,
	registry *tools.ToolRegistry,
	notifier Notifier,
) (answer string, toolTurns []*chatmodels.Turn, invocations []map[string]any, err error) {
	for round := 1; round <= o.cfg.MaxRounds; round++ {
		notifier.Notify(EventReasoning, map[string]any{"round": round})

		outcome, err := o.stepper.Step(ctx, &reasoning.Request{
			Model:     o.model,
			System:    systemPrompt,
			Messages:  messages,
			Tools:     registry.Definitions(),
			MaxTokens: o.cfg.MaxTokens,
		})
		if err != nil {
			return "", nil, nil, fmt.Errorf("reasoning step: %w", err)
		}

		var request reasoning.ToolRequest
		switch out := outcome.(type) {
		case reasoning.FinalAnswer:
			return out.Text, toolTurns, invocations, nil
		case reasoning.ToolRequest:
			request = out
		default:
			return "", nil, nil, fmt.Errorf("reasoning step returned unexpected outcome %T", outcome)
		}

		for _, call := range request.Calls {
			notifier.Notify(EventToolCall, map[string]any{
				"name":  call.Name,
				"input": call.Input,
			})
		}

		results := registry.ExecuteParallel(ctx, request.Calls)
		if err := ctx.Err(); err != nil {
			return "", nil, nil, err
		}

		resultBlocks := make([]reasoning.ToolResultBlock, len(results))
		for i, result := range results {
			content := renderToolResult(result)
			resultBlocks[i] = reasoning.ToolResultBlock{
				ToolCallID: result.ID,
				Content:    content,
				IsError:    result.IsError,
			}

			notifier.Notify(EventToolResult, map[string]any{
				"name":     result.Name,
				"is_error": result.IsError,
			})

			toolTurns = append(toolTurns, toolTurn(threadID, result, content))
			invocations = append(invocations, invocationRecord(request.Calls[i], result))
		}

		messages = append(messages,
			reasoning.Message{
				Role:      chatmodels.RoleAssistant,
				Content:   request.Text,
				ToolCalls: request.Calls,
			},
			reasoning.Message{
				Role:        chatmodels.RoleUser,
				ToolResults: resultBlocks,
			},
		)
	}

	o.logger.Warn("round budget exhausted",
		"thread_id", threadID,
		"max_rounds", o.cfg.MaxRounds,
	)
	return "", nil, nil, fmt.Errorf("no final answer after %d rounds: %w", o.cfg.MaxRounds, domain.ErrLoopExceeded)
}

// renderToolResult flattens a tool result into the text handed back to the
// model. Failures become plain messages the model can react to.
func renderToolResult(result tools.ToolResult) string {
	if result.IsError {
		return result.Error.Error()
	}
	payload, err := json.Marshal(result.Result)
	if err != nil {
		return fmt.Sprintf("unserializable tool result: %v", err)
	}
	return string(payload)
}

// toolTurn builds the audit turn recorded for one tool execution.
func toolTurn(threadID string, result tools.ToolResult, content string) *chatmodels.Turn {
	meta := map[string]any{
		chatmodels.MetaToolName: result.Name,
	}
	if result.IsError {
		meta[chatmodels.MetaToolError] = result.Error.Error()
	}
	return &chatmodels.Turn{
		ThreadID: threadID,
		Role:     chatmodels.RoleTool,
		Content:  content,
		Metadata: meta,
	}
}

// invocationRecord summarizes one tool call for assistant turn metadata.
func invocationRecord(call tools.ToolCall, result tools.ToolResult) map[string]any {
	record := map[string]any{
		"name":  call.Name,
		"input": call.Input,
	}
	if result.IsError {
		record["error"] = result.Error.Error()
	}
	return record
}

func assistantMetadata(invocations []map[string]any, sources []chatmodels.Source) map[string]any {
	if len(invocations) == 0 && len(sources) == 0 {
		return nil
	}
	meta := map[string]any{}
	if len(invocations) > 0 {
		meta[chatmodels.MetaToolInvocations] = invocations
	}
	if len(sources) > 0 {
		meta[chatmodels.MetaSources] = sources
	}
	return meta
}
