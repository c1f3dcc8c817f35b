package index

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/docuchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder maps exact texts to fixed vectors.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (s *stubEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	v, ok := s.vectors[text]
	if !ok {
		return []float32{0, 0, 0}, nil
	}
	return v, nil
}

func testChunks() []domain.DocumentChunk {
	return []domain.DocumentChunk{
		{Source: "report.pdf", Page: 1, Text: "Total: 5 units"},
		{Source: "report.pdf", Page: 2, Text: "Total: 12 units"},
		{Source: "notes.pdf", Page: 1, Text: "Meeting notes from March"},
	}
}

func TestBuild_EmbedsEveryChunk(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{}}

	ix, err := Build(context.Background(), embedder, testChunks())

	require.NoError(t, err)
	assert.Equal(t, 3, ix.Len())
	assert.Equal(t, 3, embedder.calls)
}

func TestBuild_EmbedError(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("rate limited")}

	ix, err := Build(context.Background(), embedder, testChunks())

	assert.Nil(t, ix)
	assert.ErrorContains(t, err, "failed to embed chunk report.pdf p.1")
}

func TestSearch_OrdersByDescendingSimilarity(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"Total: 5 units":           {1, 0, 0},
		"Total: 12 units":          {0.9, 0.1, 0},
		"Meeting notes from March": {0, 1, 0},
		"total on page 2":          {1, 0.05, 0},
	}}

	ix, err := Build(context.Background(), embedder, testChunks())
	require.NoError(t, err)

	results, err := ix.Search(context.Background(), "total on page 2", 2)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Chunk.Page)
	assert.Equal(t, 2, results[1].Chunk.Page)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearch_TiesBreakByInsertionOrder(t *testing.T) {
	same := []float32{1, 0, 0}
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"Total: 5 units":           same,
		"Total: 12 units":          same,
		"Meeting notes from March": same,
		"anything":                 same,
	}}

	ix, err := Build(context.Background(), embedder, testChunks())
	require.NoError(t, err)

	results, err := ix.Search(context.Background(), "anything", 3)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "report.pdf", results[0].Chunk.Source)
	assert.Equal(t, 1, results[0].Chunk.Page)
	assert.Equal(t, 2, results[1].Chunk.Page)
	assert.Equal(t, "notes.pdf", results[2].Chunk.Source)
}

func TestSearch_ReturnsAtMostK(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{}}
	ix, err := Build(context.Background(), embedder, testChunks())
	require.NoError(t, err)

	results, err := ix.Search(context.Background(), "query", 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = ix.Search(context.Background(), "query", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_EmbedError(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{}}
	ix, err := Build(context.Background(), embedder, testChunks())
	require.NoError(t, err)

	embedder.err = errors.New("boom")
	results, err := ix.Search(context.Background(), "query", 3)

	assert.Nil(t, results)
	assert.ErrorContains(t, err, "failed to embed query")
}

func TestChunks_PreservesInsertionOrder(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{}}
	ix, err := Build(context.Background(), embedder, testChunks())
	require.NoError(t, err)

	chunks := ix.Chunks()
	require.Len(t, chunks, 3)
	assert.Equal(t, testChunks(), chunks)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
