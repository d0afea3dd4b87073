package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"loom/internal/domain/models/chat"
	"loom/internal/domain/repositories"
)

// Gateway answers similarity queries over a user's indexed documents.
// It embeds the query and delegates the nearest-neighbor search to the
// chunk repository; results below MinScore are dropped.
type Gateway struct {
	embedder Embedder
	chunks   repositories.ChunkRepository
	minScore float64
	logger   *slog.Logger
}

// NewGateway creates a retrieval gateway.
func NewGateway(embedder Embedder, chunks repositories.ChunkRepository, minScore float64, logger *slog.Logger) *Gateway {
	return &Gateway{
		embedder: embedder,
		chunks:   chunks,
		minScore: minScore,
		logger:   logger,
	}
}

// Search returns the topK passages most similar to the query among the
// given user's ready documents, best match first. No matches is an empty
// slice, not an error.
func (g *Gateway) Search(ctx context.Context, userID, query string, topK int) ([]chat.Chunk, error) {
	vectors, err := g.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := g.chunks.SearchChunks(ctx, userID, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	results := make([]chat.Chunk, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < g.minScore {
			continue
		}
		results = append(results, chat.Chunk{
			DocumentID: hit.DocumentID,
			Filename:   hit.Filename,
			Text:       hit.Text,
			Score:      hit.Score,
		})
	}

	g.logger.Debug("retrieval search",
		"user_id", userID,
		"top_k", topK,
		"hits", len(hits),
		"kept", len(results),
	)
	return results, nil
}
