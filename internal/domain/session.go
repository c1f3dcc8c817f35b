package domain

import (
	"fmt"
	"time"
)

// Session represents one user's ingested document set plus its
// accumulated question/answer history. The in-memory portion (vector
// index, turn list) lives for the process lifetime; the metadata here
// is the durable part.
type Session struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession creates a new Session instance
func NewSession(id, userID string, createdAt time.Time) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		Title:     fmt.Sprintf("Session - %s", createdAt.Format("2006-01-02 15:04:05")),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// ValidateSession validates a Session instance
func ValidateSession(s *Session) error {
	if s == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if s.ID == "" {
		return fmt.Errorf("session ID is required")
	}
	if s.UserID == "" {
		return fmt.Errorf("session UserID is required")
	}
	if s.Title == "" {
		return fmt.Errorf("session Title is required")
	}
	return nil
}
