package chunking

import (
	"fmt"
	"strings"

	"github.com/docforge/docqa/internal/core/domain"
)

// sentenceSearchWindow bounds how far back from the raw window edge the
// splitter looks for a sentence-terminal character before giving up.
const sentenceSearchWindow = 100

// Splitter cuts text into overlapping chunks, preferring sentence
// boundaries over raw character cuts.
type Splitter struct {
	chunkSize int
	overlap   int
}

func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, domain.WrapError(domain.ErrConfiguration, "new splitter",
			fmt.Errorf("chunk size must be positive, got %d", chunkSize))
	}
	if overlap < 0 {
		return nil, domain.WrapError(domain.ErrConfiguration, "new splitter",
			fmt.Errorf("overlap must be non-negative, got %d", overlap))
	}
	if overlap >= chunkSize {
		return nil, domain.WrapError(domain.ErrConfiguration, "new splitter",
			fmt.Errorf("overlap %d must be smaller than chunk size %d", overlap, chunkSize))
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split returns the chunk sequence for text. Identical input always yields
// an identical sequence; whitespace-only chunks are dropped.
func (s *Splitter) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= s.chunkSize {
		return []string{trimmed}
	}

	chunks := make([]string, 0, len(runes)/(s.chunkSize-s.overlap)+1)
	start := 0
	for start < len(runes) {
		end := start + s.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			// Prefer cutting just after the nearest sentence end within the
			// search window instead of mid-sentence.
			limit := start + s.chunkSize - sentenceSearchWindow
			if limit < start {
				limit = start
			}
			for i := end; i > limit; i-- {
				if i < len(runes) && isSentenceEnd(runes[i]) {
					end = i + 1
					break
				}
			}
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - s.overlap
		if next <= start {
			// Overlap larger than the produced chunk would stall the window.
			next = end
		}
		start = next
	}
	return chunks
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
