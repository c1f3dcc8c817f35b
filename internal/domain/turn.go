package domain

import (
	"fmt"
	"time"
)

// Sender identifies who produced a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Citation is structured evidence attached to an answer: where the
// supporting passage came from and a highlighted preview of it.
// Citations are derived at answer time and persisted only as part of
// the turn they belong to.
type Citation struct {
	Source   string `json:"source"`
	Page     int    `json:"page"`
	Preview  string `json:"preview"`
	FullText string `json:"full_text"`
}

// Turn is one question/answer exchange with its citations. Turns are
// append-only; they are never edited or deleted once persisted.
type Turn struct {
	Question  string     `json:"q"`
	Answer    string     `json:"a"`
	Citations []Citation `json:"citations"`
	CreatedAt time.Time  `json:"created_at"`
}

// Message is the durable row unit of the chat log. A turn persists as
// two messages: the user question followed by the AI answer carrying
// the citations.
type Message struct {
	ID        string
	SessionID string
	Sender    Sender
	Text      string
	Citations []Citation
	CreatedAt time.Time
}

// ValidateMessage validates a Message instance
func ValidateMessage(m *Message) error {
	if m == nil {
		return fmt.Errorf("message cannot be nil")
	}
	if m.SessionID == "" {
		return fmt.Errorf("message SessionID is required")
	}
	if m.Sender != SenderUser && m.Sender != SenderAI {
		return fmt.Errorf("message Sender is invalid: %s", m.Sender)
	}
	if m.Text == "" {
		return fmt.Errorf("message Text is required")
	}
	return nil
}

// TurnsFromMessages reconstructs the ordered turn sequence from a
// chronological message log. A user message opens a turn; the next AI
// message completes it. Unpaired messages are kept with the missing
// half empty so history is never silently dropped.
func TurnsFromMessages(messages []*Message) []Turn {
	turns := make([]Turn, 0, len(messages)/2)
	var open *Turn
	for _, m := range messages {
		switch m.Sender {
		case SenderUser:
			if open != nil {
				turns = append(turns, *open)
			}
			open = &Turn{Question: m.Text, CreatedAt: m.CreatedAt}
		case SenderAI:
			if open == nil {
				open = &Turn{CreatedAt: m.CreatedAt}
			}
			open.Answer = m.Text
			open.Citations = m.Citations
			turns = append(turns, *open)
			open = nil
		}
	}
	if open != nil {
		turns = append(turns, *open)
	}
	return turns
}
