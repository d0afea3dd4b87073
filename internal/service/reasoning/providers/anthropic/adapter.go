package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"loom/internal/service/reasoning"
	"loom/internal/service/tools"
)

// convertMessages converts reasoning messages to Anthropic SDK format.
// Tool calls become assistant tool_use blocks, tool results become user
// tool_result blocks; both are replayed verbatim so the model sees the
// full tool loop.
func convertMessages(messages []reasoning.Message) ([]anthropic.MessageParam, error) {
	result := make([]anthropic.MessageParam, 0, len(messages))

	for i, msg := range messages {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(msg.ToolCalls)+len(msg.ToolResults))

		for _, tr := range msg.ToolResults {
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfToolResult: &anthropic.ToolResultBlockParam{
					ToolUseID: tr.ToolCallID,
					IsError:   anthropic.Bool(tr.IsError),
					Content: []anthropic.ToolResultBlockParamContentUnion{
						{OfText: &anthropic.TextBlockParam{Text: tr.Content}},
					},
				},
			})
		}

		if msg.Content != "" {
			blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
		}

		for _, call := range msg.ToolCalls {
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    call.ID,
					Name:  call.Name,
					Input: call.Input,
				},
			})
		}

		if len(blocks) == 0 {
			return nil, fmt.Errorf("message %d has no content", i)
		}

		var message anthropic.MessageParam
		switch msg.Role {
		case "user":
			message = anthropic.NewUserMessage(blocks...)
		case "assistant":
			message = anthropic.NewAssistantMessage(blocks...)
		default:
			return nil, fmt.Errorf("message %d: unsupported role '%s'", i, msg.Role)
		}

		result = append(result, message)
	}

	return result, nil
}

// convertTools converts tool definitions to Anthropic SDK format.
func convertTools(defs []tools.Definition) []anthropic.ToolUnionParam {
	if len(defs) == 0 {
		return nil
	}

	result := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		schema := anthropic.ToolInputSchemaParam{}
		if props, ok := def.InputSchema["properties"]; ok {
			schema.Properties = props
		}
		if required, ok := def.InputSchema["required"].([]string); ok {
			schema.Required = required
		}

		result = append(result, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        def.Name,
				Description: anthropic.String(def.Description),
				InputSchema: schema,
			},
		})
	}
	return result
}

// convertResponse converts an Anthropic response to a reasoning outcome.
// A stop reason of tool_use yields a ToolRequest; anything else is a
// final answer built from the text blocks.
func convertResponse(msg *anthropic.Message) (reasoning.Outcome, error) {
	var textBuilder strings.Builder
	var calls []tools.ToolCall

	for i, block := range msg.Content {
		switch block.Type {
		case "text":
			textBuilder.WriteString(block.Text)
		case "tool_use":
			input := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &input); err != nil {
					return nil, fmt.Errorf("block %d: decode tool input: %w", i, err)
				}
			}
			calls = append(calls, tools.ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: input,
			})
		}
	}

	text := strings.TrimSpace(textBuilder.String())

	if msg.StopReason == anthropic.StopReasonToolUse {
		if len(calls) == 0 {
			return nil, fmt.Errorf("stop reason tool_use with no tool_use blocks")
		}
		return reasoning.ToolRequest{Text: text, Calls: calls}, nil
	}

	return reasoning.FinalAnswer{Text: text}, nil
}
