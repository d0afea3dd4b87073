package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"loom/internal/domain"
)

// Extractor turns an uploaded file into indexable plain text.
// Adding a format means adding an Extractor, not touching the pipeline.
type Extractor interface {
	// Supports reports whether the file can be extracted, by name.
	Supports(filename string) bool

	// Extract returns the plain text content of the file.
	Extract(filename string, data []byte) (string, error)
}

// PlainTextExtractor handles plain text formats (.txt, .md).
type PlainTextExtractor struct{}

// NewPlainTextExtractor creates the default extractor.
func NewPlainTextExtractor() *PlainTextExtractor {
	return &PlainTextExtractor{}
}

// Supports reports whether the file has a plain text extension.
func (e *PlainTextExtractor) Supports(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".markdown":
		return true
	default:
		return false
	}
}

// Extract returns the file content as a string after checking it is valid
// UTF-8 text rather than a binary renamed to .txt.
func (e *PlainTextExtractor) Extract(filename string, data []byte) (string, error) {
	if !e.Supports(filename) {
		return "", fmt.Errorf("unsupported file type %q: %w", filepath.Ext(filename), domain.ErrValidation)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("file %q is not valid UTF-8 text: %w", filename, domain.ErrValidation)
	}
	return string(data), nil
}
