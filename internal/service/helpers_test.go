package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docuchat/internal/domain"
	"github.com/cloo-solutions/docuchat/internal/index"
)

// fixedEmbedder returns the mapped vector for known texts and a unit
// vector otherwise.
type fixedEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (e *fixedEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

// stubGenerator returns a canned answer and captures the prompt it was
// given.
type stubGenerator struct {
	answer string
	err    error
	prompt string
}

func (g *stubGenerator) Generate(ctx context.Context, promptText string) (string, error) {
	g.prompt = promptText
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func buildTestIndex(t *testing.T, chunks []domain.DocumentChunk, embedder index.Embedder) *index.Index {
	t.Helper()
	if embedder == nil {
		embedder = &fixedEmbedder{vectors: map[string][]float32{}}
	}
	ix, err := index.Build(context.Background(), embedder, chunks)
	require.NoError(t, err)
	return ix
}

func reportChunks(sessionID string) []domain.DocumentChunk {
	return []domain.DocumentChunk{
		{SessionID: sessionID, Source: "report.pdf", Page: 1, Text: "Total: 5 units"},
		{SessionID: sessionID, Source: "report.pdf", Page: 2, Text: "Total: 12 units"},
	}
}
