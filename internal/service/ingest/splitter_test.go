package ingest

import (
	"strings"
	"testing"
)

func TestSplitter_Split(t *testing.T) {
	t.Run("empty input yields no chunks", func(t *testing.T) {
		s := DefaultSplitter()
		if got := s.Split(""); got != nil {
			t.Errorf("Split(\"\") = %v, want nil", got)
		}
		if got := s.Split("   \n\t "); got != nil {
			t.Errorf("Split(whitespace) = %v, want nil", got)
		}
	})

	t.Run("short input is a single chunk", func(t *testing.T) {
		s := DefaultSplitter()
		got := s.Split("hello world")
		if len(got) != 1 || got[0] != "hello world" {
			t.Errorf("Split = %v, want single chunk", got)
		}
	})

	t.Run("long input is split with overlap", func(t *testing.T) {
		s := Splitter{ChunkSize: 100, Overlap: 20}
		words := strings.Repeat("alpha beta gamma delta ", 30) // ~690 chars
		got := s.Split(words)

		if len(got) < 5 {
			t.Fatalf("expected several chunks, got %d", len(got))
		}
		for i, chunk := range got {
			if len([]rune(chunk)) > 100 {
				t.Errorf("chunk %d exceeds size: %d runes", i, len([]rune(chunk)))
			}
			if chunk != strings.TrimSpace(chunk) {
				t.Errorf("chunk %d has surrounding whitespace", i)
			}
		}

		// Consecutive chunks share content through the overlap.
		tail := got[0][len(got[0])-10:]
		if !strings.Contains(got[1], strings.TrimSpace(tail)) {
			t.Errorf("chunk 1 does not overlap chunk 0: %q not in %q", tail, got[1])
		}
	})

	t.Run("breaks on whitespace not mid-word", func(t *testing.T) {
		s := Splitter{ChunkSize: 50, Overlap: 0}
		got := s.Split(strings.Repeat("supercalifragilistic ", 10))
		for i, chunk := range got {
			if strings.HasSuffix(chunk, "supercalifragilisti") {
				t.Errorf("chunk %d cut mid-word: %q", i, chunk)
			}
		}
	})

	t.Run("unsplittable run is cut anyway", func(t *testing.T) {
		s := Splitter{ChunkSize: 50, Overlap: 10}
		got := s.Split(strings.Repeat("x", 200))
		if len(got) < 2 {
			t.Fatalf("expected multiple chunks, got %d", len(got))
		}
	})
}
