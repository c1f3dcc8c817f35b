// Package index provides the per-session in-memory vector index.
// Indices are immutable after construction: membership is exactly the
// chunks ingested for the session, and re-ingestion creates a new
// session rather than mutating an existing index.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/cloo-solutions/docuchat/internal/domain"
)

// Embedder produces a fixed-length vector for a piece of text.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Result is one search hit: the chunk and its cosine similarity to the query.
type Result struct {
	Chunk domain.DocumentChunk
	Score float64
}

type entry struct {
	chunk  domain.DocumentChunk
	vector []float32
}

// Index holds embedded chunks for one session in insertion order.
type Index struct {
	embedder Embedder
	entries  []entry
}

// Build embeds every chunk's text and bulk-inserts into a fresh index.
// One embedding call per chunk; a failed call fails the build.
func Build(ctx context.Context, embedder Embedder, chunks []domain.DocumentChunk) (*Index, error) {
	entries := make([]entry, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := embedder.GenerateEmbedding(ctx, chunk.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunk %s p.%d: %w", chunk.Source, chunk.Page, err)
		}
		entries = append(entries, entry{chunk: chunk, vector: vector})
	}
	return &Index{embedder: embedder, entries: entries}, nil
}

// Search embeds the query and returns up to k chunks ordered by
// descending cosine similarity. Ties break by insertion order: the
// first chunk inserted wins.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 || len(ix.entries) == 0 {
		return []Result{}, nil
	}

	queryVec, err := ix.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	order := make([]int, len(ix.entries))
	scores := make([]float64, len(ix.entries))
	for i := range ix.entries {
		order[i] = i
		scores[i] = cosineSimilarity(ix.entries[i].vector, queryVec)
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	results := make([]Result, 0, k)
	for _, i := range order[:k] {
		results = append(results, Result{Chunk: ix.entries[i].chunk, Score: scores[i]})
	}
	return results, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Entry is one indexed chunk together with its embedding vector,
// exposed for archival.
type Entry struct {
	Chunk  domain.DocumentChunk
	Vector []float32
}

// Entries returns the indexed chunks with their vectors in insertion order.
func (ix *Index) Entries() []Entry {
	entries := make([]Entry, len(ix.entries))
	for i, e := range ix.entries {
		entries[i] = Entry{Chunk: e.chunk, Vector: e.vector}
	}
	return entries
}

// Chunks returns the indexed chunks in insertion order.
func (ix *Index) Chunks() []domain.DocumentChunk {
	chunks := make([]domain.DocumentChunk, len(ix.entries))
	for i, e := range ix.entries {
		chunks[i] = e.chunk
	}
	return chunks
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
