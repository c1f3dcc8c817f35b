package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/docuchat/internal/domain"
	"github.com/cloo-solutions/docuchat/internal/telemetry"
)

// Export formats accepted by HistoryService.Export.
const (
	ExportFormatJSON = "json"
	ExportFormatText = "txt"
)

// MessageRepository persists individual chat messages.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	ListBySession(ctx context.Context, sessionID string) ([]*domain.Message, error)
	ListAll(ctx context.Context) ([]*domain.Message, error)
}

// SessionIDLister enumerates persisted chat session ids.
type SessionIDLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// HistoryService is the durable log of question/answer turns. Each
// turn is stored as two message rows (the user question, then the ai
// answer carrying the citations), appended atomically with the
// in-memory turn sequence under the session's append lock.
type HistoryService struct {
	registry *SessionRegistry
	sessions SessionIDLister
	messages MessageRepository
	now      func() time.Time
}

// NewHistoryService creates a HistoryService.
func NewHistoryService(registry *SessionRegistry, sessions SessionIDLister, messages MessageRepository) *HistoryService {
	return &HistoryService{registry: registry, sessions: sessions, messages: messages, now: time.Now}
}

// Append records a turn durably and in memory. A persistence failure
// aborts the append and surfaces to the caller; the in-memory sequence
// is only extended once both message rows are written.
func (s *HistoryService) Append(ctx context.Context, sessionID string, turn domain.Turn) error {
	ctx, span := telemetry.StartSpan(ctx, "HistoryService.Append", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "append",
	})
	defer span.End()

	err := s.registry.Append(sessionID, turn, func() error {
		now := s.now().UTC()
		question := &domain.Message{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			Sender:    domain.SenderUser,
			Text:      turn.Question,
			CreatedAt: now,
		}
		if err := s.messages.Create(ctx, question); err != nil {
			return fmt.Errorf("failed to persist question: %w", err)
		}
		// The answer row must sort strictly after its question so the
		// restore path can pair them back into turns.
		answer := &domain.Message{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			Sender:    domain.SenderAI,
			Text:      turn.Answer,
			Citations: turn.Citations,
			CreatedAt: now.Add(time.Microsecond),
		}
		if err := s.messages.Create(ctx, answer); err != nil {
			return fmt.Errorf("failed to persist answer: %w", err)
		}
		return nil
	})
	if err != nil {
		span.SetError(err)
	}
	return err
}

// Messages returns the ordered message log for a session.
func (s *HistoryService) Messages(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	return s.messages.ListBySession(ctx, sessionID)
}

// LoadAll repopulates in-memory history from the durable log. Called
// once at startup before the server accepts requests. Restored
// sessions are browsable and exportable but not queryable, since
// their indices are not persisted.
func (s *HistoryService) LoadAll(ctx context.Context) (int, error) {
	ids, err := s.sessions.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load sessions: %w", err)
	}
	all, err := s.messages.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load message history: %w", err)
	}

	bySession := make(map[string][]*domain.Message)
	for _, msg := range all {
		bySession[msg.SessionID] = append(bySession[msg.SessionID], msg)
	}

	// Walk the session rows, not the message log: a session that was
	// ingested but never asked anything has no messages yet and must
	// still list and export after a restart.
	for _, id := range ids {
		s.registry.Restore(id, domain.TurnsFromMessages(bySession[id]))
	}
	return len(ids), nil
}

// Export renders a session's full turn sequence as JSON or as a plain
// text transcript. Unknown session ids and unsupported formats fail
// with their respective domain errors.
func (s *HistoryService) Export(ctx context.Context, sessionID, format string) ([]byte, error) {
	_, span := telemetry.StartSpan(ctx, "HistoryService.Export", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "export",
	})
	defer span.End()

	turns, err := s.registry.Turns(sessionID)
	if err != nil {
		return nil, err
	}

	switch format {
	case ExportFormatJSON:
		data, err := json.MarshalIndent(turns, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal history: %w", err)
		}
		return data, nil
	case ExportFormatText:
		return []byte(renderTranscript(turns)), nil
	default:
		return nil, domain.ErrUnsupportedFormat
	}
}

// renderTranscript formats turns as a human-readable transcript with
// per-citation source, page, and preview lines.
func renderTranscript(turns []domain.Turn) string {
	var b strings.Builder
	b.WriteString("Chat Export\n===========\n\n")
	for i, turn := range turns {
		fmt.Fprintf(&b, "Q%d: %s\n", i+1, turn.Question)
		fmt.Fprintf(&b, "A%d: %s\n", i+1, turn.Answer)
		if len(turn.Citations) > 0 {
			b.WriteString("Sources:\n")
			for _, c := range turn.Citations {
				fmt.Fprintf(&b, "  - %s (p.%d): %s\n", c.Source, c.Page, c.Preview)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
