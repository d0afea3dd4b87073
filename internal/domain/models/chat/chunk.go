package chat

// Chunk is one retrieved document fragment with provenance. Chunks are
// transient: produced per-query by the retrieval gateway and recorded only
// as metadata on the assistant turn that used them.
type Chunk struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// Source is the provenance entry returned to the caller for one chunk.
type Source struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Score      float64 `json:"score"`
}

// SourcesOf collapses chunks into their provenance entries, preserving
// relevance order and dropping duplicate documents.
func SourcesOf(chunks []Chunk) []Source {
	if len(chunks) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(chunks))
	sources := make([]Source, 0, len(chunks))
	for _, c := range chunks {
		if seen[c.DocumentID] {
			continue
		}
		seen[c.DocumentID] = true
		sources = append(sources, Source{
			DocumentID: c.DocumentID,
			Filename:   c.Filename,
			Score:      c.Score,
		})
	}
	return sources
}
