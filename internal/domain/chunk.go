package domain

import (
	"fmt"
	"time"
)

// DocumentChunk is one page's extracted text, the unit of retrieval.
// Chunks are immutable once created; re-ingestion creates a new
// session rather than mutating an existing index.
type DocumentChunk struct {
	SessionID string
	Source    string // originating document filename
	Page      int    // 1-based page number
	Text      string
}

// ArchivedChunk is the durable copy of a chunk together with its
// embedding, written by the archive worker after ingestion. The live
// index is not rebuilt from it on restart.
type ArchivedChunk struct {
	ID         string
	SessionID  string
	Source     string
	Page       int
	ChunkIndex int
	Text       string
	Embedding  []float32
	CreatedAt  time.Time
}

// ValidateChunk validates a DocumentChunk instance
func ValidateChunk(c *DocumentChunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}
	if c.Source == "" {
		return fmt.Errorf("chunk Source is required")
	}
	if c.Page < 1 {
		return fmt.Errorf("chunk Page must be 1-based, got %d", c.Page)
	}
	if c.Text == "" {
		return fmt.Errorf("chunk Text is required")
	}
	return nil
}
