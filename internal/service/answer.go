package service

import (
	"context"
	"strings"
	"time"

	"github.com/cloo-solutions/docuchat/internal/domain"
	"github.com/cloo-solutions/docuchat/internal/prompt"
	"github.com/cloo-solutions/docuchat/internal/telemetry"
)

// Generator produces a completion for a fully rendered prompt.
type Generator interface {
	Generate(ctx context.Context, promptText string) (string, error)
}

// Answer is a fully computed response: the generated text and the
// citations derived from the retrieved chunks.
type Answer struct {
	SessionID string
	Question  string
	Text      string
	Citations []domain.Citation
	CreatedAt time.Time
}

// AnswerService runs the retrieval-augmented answer pipeline: resolve
// the session's index, retrieve top-k chunks, render the extraction
// prompt, call the generator once, and derive citations. The turn is
// recorded to history before the answer is returned, so a consumer
// abandoning the stream never loses the turn.
type AnswerService struct {
	registry  *SessionRegistry
	generator Generator
	history   *HistoryService
	template  *prompt.Template
	topK      int
	timeout   time.Duration
	now       func() time.Time
}

// NewAnswerService creates an AnswerService. topK bounds retrieval and
// timeout bounds the generation call; the timeout is fatal to the
// request, not the process.
func NewAnswerService(registry *SessionRegistry, generator Generator, history *HistoryService, topK int, timeout time.Duration) *AnswerService {
	return &AnswerService{
		registry:  registry,
		generator: generator,
		history:   history,
		template:  prompt.Default(),
		topK:      topK,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Answer answers a question against a session's ingested documents.
func (s *AnswerService) Answer(ctx context.Context, sessionID, question string) (*Answer, error) {
	ctx, span := telemetry.StartSpan(ctx, "AnswerService.Answer", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "answer",
	})
	defer span.End()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	ix, err := s.registry.Index(sessionID)
	if err != nil {
		return nil, err
	}

	results, err := ix.Search(ctx, question, s.topK)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewGenerationError(err)
	}

	contextTexts := make([]string, 0, len(results))
	for _, r := range results {
		contextTexts = append(contextTexts, r.Chunk.Text)
	}
	rendered := s.template.Render(strings.Join(contextTexts, "\n\n"), question)

	genCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	text, err := s.generator.Generate(genCtx, rendered)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewGenerationError(err)
	}

	answer := &Answer{
		SessionID: sessionID,
		Question:  question,
		Text:      text,
		Citations: ExtractCitations(question, results),
		CreatedAt: s.now().UTC(),
	}

	if s.history != nil {
		turn := domain.Turn{
			Question:  answer.Question,
			Answer:    answer.Text,
			Citations: answer.Citations,
			CreatedAt: answer.CreatedAt,
		}
		if err := s.history.Append(ctx, sessionID, turn); err != nil {
			span.SetError(err)
			return nil, err
		}
	}

	return answer, nil
}
