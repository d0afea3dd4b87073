package ingest

import "strings"

// Splitter cuts extracted text into overlapping chunks sized for embedding.
// Overlap keeps context that straddles a boundary findable from both sides.
type Splitter struct {
	ChunkSize int // target chunk length in runes
	Overlap   int // runes carried over into the next chunk
}

// DefaultSplitter returns the splitter used for document indexing.
func DefaultSplitter() Splitter {
	return Splitter{ChunkSize: 1000, Overlap: 200}
}

// Split cuts text into chunks of at most ChunkSize runes with Overlap runes
// of context shared between neighbors. Boundaries prefer whitespace so words
// are not cut mid-token. Blank input yields no chunks.
func (s Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	size := s.ChunkSize
	if size <= 0 {
		size = 1000
	}
	overlap := s.Overlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{strings.TrimSpace(text)}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakAt(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(runes) {
			break
		}
		start = end - overlap
	}
	return chunks
}

// breakAt walks back from end looking for whitespace to break on, giving up
// after a quarter of the chunk and cutting mid-word instead.
func breakAt(runes []rune, start, end int) int {
	limit := end - (end-start)/4
	for i := end; i > limit; i-- {
		if isSpace(runes[i-1]) {
			return i
		}
	}
	return end
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
