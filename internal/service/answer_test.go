package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docuchat/internal/domain"
)

func answerFixture(t *testing.T, generator *stubGenerator) (*AnswerService, *SessionRegistry) {
	t.Helper()
	registry := NewSessionRegistry()
	embedder := &fixedEmbedder{vectors: map[string][]float32{
		"Total: 5 units":  {1, 0, 0},
		"Total: 12 units": {0, 1, 0},
		"page two total":  {0, 1, 0.1},
	}}
	ix := buildTestIndex(t, reportChunks("s1"), embedder)
	require.NoError(t, registry.Register("s1", ix))

	return NewAnswerService(registry, generator, nil, 6, time.Minute), registry
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	svc, _ := answerFixture(t, &stubGenerator{answer: "x"})

	_, err := svc.Answer(context.Background(), "s1", "   \t ")
	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
}

func TestAnswer_UnknownSession(t *testing.T) {
	svc, _ := answerFixture(t, &stubGenerator{answer: "x"})

	_, err := svc.Answer(context.Background(), "nope", "question")
	assert.ErrorIs(t, err, domain.ErrUnknownSession)
}

func TestAnswer_GenerationFailure(t *testing.T) {
	svc, _ := answerFixture(t, &stubGenerator{err: errors.New("model overloaded")})

	_, err := svc.Answer(context.Background(), "s1", "what is the total")

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeGeneration, domainErr.Code)
	assert.ErrorContains(t, err, "model overloaded")
}

func TestAnswer_PromptCarriesContextAndQuestion(t *testing.T) {
	generator := &stubGenerator{answer: "Total: 12 units"}
	svc, _ := answerFixture(t, generator)

	answer, err := svc.Answer(context.Background(), "s1", "page two total")
	require.NoError(t, err)

	assert.Contains(t, generator.prompt, "Total: 5 units")
	assert.Contains(t, generator.prompt, "Total: 12 units")
	assert.Contains(t, generator.prompt, "Question: page two total")
	assert.Equal(t, "Total: 12 units", answer.Text)
}

func TestAnswer_CitesRetrievedChunks(t *testing.T) {
	generator := &stubGenerator{answer: "Total: 12 units"}
	svc, _ := answerFixture(t, generator)

	answer, err := svc.Answer(context.Background(), "s1", "what is the total on page 2")
	require.NoError(t, err)

	require.NotEmpty(t, answer.Citations)
	pages := make([]int, 0, len(answer.Citations))
	for _, c := range answer.Citations {
		pages = append(pages, c.Page)
	}
	assert.Contains(t, pages, 2)
}

func TestAnswer_NotFoundContract(t *testing.T) {
	// The generator honors the contract: no supporting context means
	// the literal "Not found".
	generator := &stubGenerator{answer: "Not found"}
	svc, _ := answerFixture(t, generator)

	answer, err := svc.Answer(context.Background(), "s1", "what is the capital of France")
	require.NoError(t, err)
	assert.Equal(t, "Not found", answer.Text)
}

func TestAnswer_RecordsTurnInHistory(t *testing.T) {
	registry := NewSessionRegistry()
	ix := buildTestIndex(t, reportChunks("s1"), nil)
	require.NoError(t, registry.Register("s1", ix))

	messages := new(mockMessageRepository)
	messages.On("Create", anyContext, anyMessage).Return(nil)
	history := NewHistoryService(registry, new(mockSessionLister), messages)

	svc := NewAnswerService(registry, &stubGenerator{answer: "Total: 5 units"}, history, 6, time.Minute)

	_, err := svc.Answer(context.Background(), "s1", "what is the total")
	require.NoError(t, err)

	turns, err := registry.Turns("s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "what is the total", turns[0].Question)
	assert.Equal(t, "Total: 5 units", turns[0].Answer)
	messages.AssertNumberOfCalls(t, "Create", 2)
}

func TestAnswer_PersistFailureSurfaces(t *testing.T) {
	registry := NewSessionRegistry()
	ix := buildTestIndex(t, reportChunks("s1"), nil)
	require.NoError(t, registry.Register("s1", ix))

	messages := new(mockMessageRepository)
	messages.On("Create", anyContext, anyMessage).Return(errors.New("db down"))
	history := NewHistoryService(registry, new(mockSessionLister), messages)

	svc := NewAnswerService(registry, &stubGenerator{answer: "x"}, history, 6, time.Minute)

	_, err := svc.Answer(context.Background(), "s1", "question")
	assert.ErrorContains(t, err, "db down")

	turns, err := registry.Turns("s1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}
