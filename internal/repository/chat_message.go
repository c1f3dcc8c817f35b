package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/docuchat/internal/domain"
)

// ChatMessageRepository persists the durable message log. Citations
// are stored as a JSONB blob on the AI message they belong to.
type ChatMessageRepository struct {
	db dbtx
}

func NewChatMessageRepository(pool *pgxpool.Pool) *ChatMessageRepository {
	return &ChatMessageRepository{db: pool}
}

func NewChatMessageRepositoryWithTx(tx pgx.Tx) *ChatMessageRepository {
	return &ChatMessageRepository{db: tx}
}

func (r *ChatMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	if err := domain.ValidateMessage(message); err != nil {
		return err
	}

	var citations []byte
	if len(message.Citations) > 0 {
		var err error
		citations, err = json.Marshal(message.Citations)
		if err != nil {
			return fmt.Errorf("failed to marshal citations: %w", err)
		}
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO chat_messages (id, session_id, sender, text, citations, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		message.ID, message.SessionID, string(message.Sender), message.Text, citations, message.CreatedAt,
	)
	return err
}

func (r *ChatMessageRepository) ListBySession(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, sender, text, citations, created_at
		 FROM chat_messages
		 WHERE session_id = $1
		 ORDER BY created_at ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessageRows(rows)
}

// ListAll returns the entire message log ordered by session and time,
// used once at startup to repopulate in-memory history.
func (r *ChatMessageRepository) ListAll(ctx context.Context) ([]*domain.Message, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, sender, text, citations, created_at
		 FROM chat_messages
		 ORDER BY session_id, created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessageRows(rows)
}

func scanMessageRows(rows pgx.Rows) ([]*domain.Message, error) {
	var messages []*domain.Message
	for rows.Next() {
		var m domain.Message
		var sender string
		var citations []byte
		if err := rows.Scan(&m.ID, &m.SessionID, &sender, &m.Text, &citations, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Sender = domain.Sender(sender)
		if len(citations) > 0 {
			if err := json.Unmarshal(citations, &m.Citations); err != nil {
				return nil, fmt.Errorf("failed to unmarshal citations for message %s: %w", m.ID, err)
			}
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}
