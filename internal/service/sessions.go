package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cloo-solutions/docuchat/internal/domain"
	"github.com/cloo-solutions/docuchat/internal/pagination"
	"github.com/cloo-solutions/docuchat/internal/telemetry"
)

const (
	defaultSessionPageSize = 20
	maxSessionPageSize     = 100
)

// SessionService exposes durable session metadata: the list of a
// user's chat sessions and single-session lookup. Listing is
// cursor-paginated, newest first.
type SessionService struct {
	sessions SessionRepository
	registry *SessionRegistry
}

// NewSessionService creates a SessionService.
func NewSessionService(sessions SessionRepository, registry *SessionRegistry) *SessionService {
	return &SessionService{sessions: sessions, registry: registry}
}

// SessionView is session metadata plus whether the session currently
// has a live index and can be queried.
type SessionView struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	Queryable bool   `json:"queryable"`
}

// List returns one page of the user's sessions.
func (s *SessionService) List(ctx context.Context, userID string, limit int, cursor string) (*pagination.PageResult[SessionView], error) {
	ctx, span := telemetry.StartSpan(ctx, "SessionService.List", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "list",
	})
	defer span.End()

	if limit <= 0 {
		limit = defaultSessionPageSize
	}
	if limit > maxSessionPageSize {
		limit = maxSessionPageSize
	}

	sessions, next, err := s.sessions.ListByUser(ctx, userID, limit, cursor)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		_, indexErr := s.registry.Index(session.ID)
		views = append(views, SessionView{
			ID:        session.ID,
			Title:     session.Title,
			CreatedAt: session.CreatedAt.UTC().Format(time.RFC3339),
			Queryable: indexErr == nil,
		})
	}

	return &pagination.PageResult[SessionView]{
		Items:   views,
		Cursor:  next,
		HasMore: next != "",
	}, nil
}

// Get looks up one session by id.
func (s *SessionService) Get(ctx context.Context, id string) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrUnknownSession
	}
	return session, nil
}
