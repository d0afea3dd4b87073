package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"loom/internal/domain"
	"loom/internal/domain/models/chat"
)

// Searcher is the slice of the retrieval gateway the search tool needs.
type Searcher interface {
	// Search returns the passages most similar to the query among the
	// given user's documents, best match first.
	Search(ctx context.Context, userID, query string, topK int) ([]chat.Chunk, error)
}

// SearchTool lets the model look up passages in the calling user's documents.
// Instances are created per-request with the user baked in, and remember which
// chunks they returned so the final answer can cite its sources.
type SearchTool struct {
	userID   string
	topK     int
	searcher Searcher

	mu   sync.Mutex
	used []chat.Chunk
}

// NewSearchTool creates a search tool scoped to one user.
func NewSearchTool(userID string, topK int, searcher Searcher) *SearchTool {
	return &SearchTool{
		userID:   userID,
		topK:     topK,
		searcher: searcher,
	}
}

// Execute runs a similarity search for the 'query' input parameter.
// An empty result set is a valid answer, not an error.
func (t *SearchTool) Execute(ctx context.Context, input map[string]any) (any, error) {
	query, ok := input["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required: %w", domain.ErrValidation)
	}

	chunks, err := t.searcher.Search(ctx, t.userID, query, t.topK)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}

	t.mu.Lock()
	t.used = append(t.used, chunks...)
	t.mu.Unlock()

	if len(chunks) == 0 {
		return map[string]any{
			"passages": []any{},
			"note":     "No relevant passages found in the user's documents.",
		}, nil
	}

	passages := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		passages[i] = map[string]any{
			"filename": c.Filename,
			"text":     c.Text,
			"score":    c.Score,
		}
	}
	return map[string]any{"passages": passages}, nil
}

// Sources returns the distinct documents whose chunks were returned during
// this request, in first-use order.
func (t *SearchTool) Sources() []chat.Source {
	t.mu.Lock()
	defer t.mu.Unlock()
	return chat.SourcesOf(t.used)
}
