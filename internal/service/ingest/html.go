package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"

	"loom/internal/domain"
)

// HTMLExtractor converts HTML files to markdown for indexing.
// Two stages: sanitize (strip scripts, event handlers, javascript: URLs),
// then convert the surviving markup to markdown.
type HTMLExtractor struct {
	policy    *bluemonday.Policy
	converter *md.Converter
}

// NewHTMLExtractor creates an HTML extractor with a UGC sanitization
// policy. The policy and converter are safe for concurrent use.
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{
		policy:    bluemonday.UGCPolicy(),
		converter: md.NewConverter("", true, nil),
	}
}

// Supports reports whether the file has an HTML extension.
func (e *HTMLExtractor) Supports(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		return true
	default:
		return false
	}
}

// Extract sanitizes the HTML and converts it to markdown.
func (e *HTMLExtractor) Extract(filename string, data []byte) (string, error) {
	sanitized := e.policy.Sanitize(string(data))

	markdown, err := e.converter.ConvertString(sanitized)
	if err != nil {
		return "", fmt.Errorf("convert %q to markdown: %w", filename, domain.ErrValidation)
	}
	return markdown, nil
}
