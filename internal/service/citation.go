package service

import (
	"strings"
	"unicode"

	"github.com/cloo-solutions/docuchat/internal/domain"
	"github.com/cloo-solutions/docuchat/internal/index"
)

// minCitationWordLen filters out stop-word-sized tokens when matching
// the question against retrieved chunks.
const minCitationWordLen = 4

// preview window around a matched word, in characters of the chunk text.
const (
	previewBefore = 50
	previewAfter  = 100
)

// ExtractCitations derives one citation per retrieved chunk. The
// question is tokenized into words of at least four characters; each
// word is searched case-insensitively in the chunk text, and every
// match yields a window of 50 characters before and 100 characters
// after the match start. The longest window across all matching words
// becomes the preview. This is a best-effort highlighter, not a
// relevance guarantee: when several words match, the longest window
// wins even if a shorter one centers on the more important term.
// Chunks with no matching word fall back to their full text as the
// preview.
func ExtractCitations(question string, results []index.Result) []domain.Citation {
	words := citationWords(question)

	citations := make([]domain.Citation, 0, len(results))
	for _, result := range results {
		chunk := result.Chunk
		text := []rune(chunk.Text)
		// Matching runs over a rune-wise lowered copy so offsets map
		// back to the original text. Lowercasing can change a rune's
		// UTF-8 width, so byte offsets would not transfer.
		lowered := make([]rune, len(text))
		for i, r := range text {
			lowered[i] = unicode.ToLower(r)
		}

		var best []rune
		for _, word := range words {
			idx := indexRunes(lowered, word)
			if idx < 0 {
				continue
			}
			start := idx - previewBefore
			if start < 0 {
				start = 0
			}
			end := idx + len(word) + previewAfter
			if end > len(text) {
				end = len(text)
			}
			if window := text[start:end]; len(window) > len(best) {
				best = window
			}
		}
		preview := string(best)
		if preview == "" {
			preview = chunk.Text
		}

		citations = append(citations, domain.Citation{
			Source:   chunk.Source,
			Page:     chunk.Page,
			Preview:  strings.TrimSpace(preview),
			FullText: chunk.Text,
		})
	}
	return citations
}

// citationWords lowercases and splits the question, keeping only words
// long enough to act as match anchors.
func citationWords(question string) [][]rune {
	fields := strings.Fields(strings.ToLower(question))
	words := make([][]rune, 0, len(fields))
	for _, f := range fields {
		if word := []rune(f); len(word) >= minCitationWordLen {
			words = append(words, word)
		}
	}
	return words
}

// indexRunes returns the index of the first occurrence of word in
// text, or -1. Haystacks here are single chunk pages, so the naive
// scan is fine.
func indexRunes(text, word []rune) int {
	if len(word) == 0 {
		return -1
	}
	for i := 0; i+len(word) <= len(text); i++ {
		j := 0
		for j < len(word) && text[i+j] == word[j] {
			j++
		}
		if j == len(word) {
			return i
		}
	}
	return -1
}
