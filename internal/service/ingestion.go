package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/docuchat/internal/domain"
	"github.com/cloo-solutions/docuchat/internal/index"
	"github.com/cloo-solutions/docuchat/internal/ingest"
	"github.com/cloo-solutions/docuchat/internal/telemetry"
)

// SessionRepository persists chat session metadata.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	ListByUser(ctx context.Context, userID string, limit int, cursor string) ([]*domain.Session, string, error)
}

// DocumentArchiver stores raw uploaded documents in object storage.
// Archival is best-effort: a failed put is logged, never fatal to the
// ingestion.
type DocumentArchiver interface {
	Archive(ctx context.Context, key string, data []byte, contentType string) error
}

// ChunkArchiver accepts embedded chunks for asynchronous durable
// archival.
type ChunkArchiver interface {
	Enqueue(sessionID string, entries []index.Entry)
}

// IngestFailure reports one document that could not be extracted.
// The batch continues past it.
type IngestFailure struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// IngestResult is the outcome of one ingestion batch.
type IngestResult struct {
	SessionID  string          `json:"session_id"`
	ChunkCount int             `json:"chunk_count"`
	Failures   []IngestFailure `json:"failures,omitempty"`
}

// IngestionService turns a batch of uploaded documents into a fresh
// queryable session: extract pages, embed them into a new in-memory
// index, register the session, and persist its metadata. Each
// ingestion creates a new session id; existing sessions are never
// mutated.
type IngestionService struct {
	extractor ingest.PageExtractor
	embedder  index.Embedder
	registry  *SessionRegistry
	sessions  SessionRepository
	documents DocumentArchiver
	chunks    ChunkArchiver
	now       func() time.Time
}

// NewIngestionService creates an IngestionService. documents and
// chunks may be nil when object storage or chunk archival is not
// configured.
func NewIngestionService(
	extractor ingest.PageExtractor,
	embedder index.Embedder,
	registry *SessionRegistry,
	sessions SessionRepository,
	documents DocumentArchiver,
	chunks ChunkArchiver,
) *IngestionService {
	return &IngestionService{
		extractor: extractor,
		embedder:  embedder,
		registry:  registry,
		sessions:  sessions,
		documents: documents,
		chunks:    chunks,
		now:       time.Now,
	}
}

// Ingest processes a document batch for the given owner. Extraction
// failures are per-document and recoverable: the batch continues and
// the failures are reported alongside the result. A batch yielding no
// text at all fails with ErrNoContent.
func (s *IngestionService) Ingest(ctx context.Context, userID string, documents []ingest.Document) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Ingest", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "ingest",
	})
	defer span.End()

	if len(documents) == 0 {
		return nil, domain.ErrNoContent
	}

	var chunks []domain.DocumentChunk
	var failures []IngestFailure
	for _, doc := range documents {
		pages, err := s.extractor.ExtractPages(ctx, doc)
		if err != nil {
			extractionErr := domain.NewExtractionError(doc.Name, err)
			failures = append(failures, IngestFailure{Source: doc.Name, Reason: extractionErr.Error()})
			continue
		}
		for _, page := range pages {
			if page.Text == "" {
				continue
			}
			chunks = append(chunks, domain.DocumentChunk{
				Source: doc.Name,
				Page:   page.Number,
				Text:   page.Text,
			})
		}
	}
	if len(chunks) == 0 {
		return nil, domain.ErrNoContent
	}

	sessionID := uuid.New().String()
	for i := range chunks {
		chunks[i].SessionID = sessionID
	}

	ix, err := index.Build(ctx, s.embedder, chunks)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewGenerationError(err)
	}

	if err := s.registry.Register(sessionID, ix); err != nil {
		return nil, err
	}

	session := domain.NewSession(sessionID, userID, s.now().UTC())
	if err := s.sessions.Create(ctx, session); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	if s.documents != nil {
		for _, doc := range documents {
			key := fmt.Sprintf("sessions/%s/%s", sessionID, doc.Name)
			if err := s.documents.Archive(ctx, key, doc.Data, "application/pdf"); err != nil {
				log.Printf("ingestion: failed to archive %s: %v", key, err)
			}
		}
	}
	if s.chunks != nil {
		s.chunks.Enqueue(sessionID, ix.Entries())
	}

	return &IngestResult{
		SessionID:  sessionID,
		ChunkCount: ix.Len(),
		Failures:   failures,
	}, nil
}
