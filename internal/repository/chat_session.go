package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/docuchat/internal/domain"
	"github.com/cloo-solutions/docuchat/internal/pagination"
)

// ChatSessionRepository persists chat session metadata.
type ChatSessionRepository struct {
	db dbtx
}

func NewChatSessionRepository(pool *pgxpool.Pool) *ChatSessionRepository {
	return &ChatSessionRepository{db: pool}
}

func NewChatSessionRepositoryWithTx(tx pgx.Tx) *ChatSessionRepository {
	return &ChatSessionRepository{db: tx}
}

func (r *ChatSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if err := domain.ValidateSession(session); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO chat_sessions (id, user_id, title, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		session.ID, session.UserID, session.Title, session.CreatedAt, session.UpdatedAt,
	)
	return err
}

func (r *ChatSessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, title, created_at, updated_at
		 FROM chat_sessions WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUnknownSession
		}
		return nil, err
	}
	return &s, nil
}

// ListByUser returns one page of the user's sessions, newest first,
// with an opaque cursor for the next page.
func (r *ChatSessionRepository) ListByUser(ctx context.Context, userID string, limit int, cursor string) ([]*domain.Session, string, error) {
	if limit <= 0 {
		limit = 20
	}

	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	var rows pgx.Rows
	if decoded != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, user_id, title, created_at, updated_at
			 FROM chat_sessions
			 WHERE user_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			userID, decoded.Timestamp, decoded.LastID, limit,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, user_id, title, created_at, updated_at
			 FROM chat_sessions
			 WHERE user_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			userID, limit,
		)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	sessions := make([]*domain.Session, 0, limit)
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, "", err
		}
		sessions = append(sessions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	next := pagination.CreateNextCursor(sessions, limit,
		func(s *domain.Session) string { return s.ID },
		func(s *domain.Session) time.Time { return s.CreatedAt },
	)
	return sessions, next, nil
}

// ListIDs returns every persisted session id in creation order. The
// startup restore pass walks this list so that sessions without any
// recorded turns come back too.
func (r *ChatSessionRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM chat_sessions ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *ChatSessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE chat_sessions SET updated_at = $1 WHERE id = $2`,
		at, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrUnknownSession
	}
	return nil
}
