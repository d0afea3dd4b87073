package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"loom/internal/service/reasoning"
)

// Provider implements the reasoning.Provider interface for Anthropic
// (Claude) models.
type Provider struct {
	client *anthropic.Client
}

// NewProvider creates a new Anthropic provider with the given API key.
func NewProvider(apiKey string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &Provider{
		client: &client,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "anthropic"
}

// SupportsModel returns true if this provider supports the given model.
// Anthropic models start with "claude-"
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

// Step runs one reasoning step against the Messages API.
func (p *Provider) Step(ctx context.Context, req *reasoning.Request) (reasoning.Outcome, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by Anthropic provider: %w", req.Model, reasoning.ErrInvalidRequest)
	}

	messages, err := convertMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("convert messages: %w", reasoning.ErrInvalidRequest)
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	apiParams := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: maxTokens,
		Tools:     convertTools(req.Tools),
	}

	if req.Temperature != nil {
		apiParams.Temperature = anthropic.Float(*req.Temperature)
	}

	if req.System != "" {
		apiParams.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: req.System,
			},
		}
	}

	message, err := p.client.Messages.New(ctx, apiParams)
	if err != nil {
		return nil, classifyError(err)
	}

	return convertResponse(message)
}

// classifyError maps SDK failures onto the reasoning package's sentinels.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 429:
			return fmt.Errorf("anthropic: %v: %w", err, reasoning.ErrRateLimited)
		case 408:
			return fmt.Errorf("anthropic: %v: %w", err, reasoning.ErrTimeout)
		case 500, 502, 503, 529:
			return fmt.Errorf("anthropic: %v: %w", err, reasoning.ErrUnavailable)
		default:
			return fmt.Errorf("anthropic: %v: %w", err, reasoning.ErrInvalidRequest)
		}
	}

	// No HTTP response at all: connection refused, DNS failure, etc.
	return fmt.Errorf("anthropic: %v: %w", err, reasoning.ErrUnavailable)
}
