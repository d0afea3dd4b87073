package ingest

import (
	"fmt"
	"path/filepath"

	"loom/internal/domain"
)

// ExtractorRegistry routes files to extractors by extension. It implements
// Extractor itself, so the ingest service sees one dispatching extractor.
type ExtractorRegistry struct {
	extractors []Extractor
}

// NewExtractorRegistry creates a registry with the standard extractors
// pre-registered.
func NewExtractorRegistry() *ExtractorRegistry {
	r := &ExtractorRegistry{}
	r.Register(NewPlainTextExtractor())
	r.Register(NewHTMLExtractor())
	return r
}

// Register adds an extractor. Later registrations win on overlap.
func (r *ExtractorRegistry) Register(e Extractor) {
	r.extractors = append([]Extractor{e}, r.extractors...)
}

// Supports reports whether any registered extractor handles the file.
func (r *ExtractorRegistry) Supports(filename string) bool {
	for _, e := range r.extractors {
		if e.Supports(filename) {
			return true
		}
	}
	return false
}

// Extract dispatches to the first extractor that supports the file.
func (r *ExtractorRegistry) Extract(filename string, data []byte) (string, error) {
	for _, e := range r.extractors {
		if e.Supports(filename) {
			return e.Extract(filename, data)
		}
	}
	return "", fmt.Errorf("unsupported file type %q: %w", filepath.Ext(filename), domain.ErrValidation)
}
