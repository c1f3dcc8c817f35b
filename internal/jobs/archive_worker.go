package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/docuchat/internal/domain"
	"github.com/cloo-solutions/docuchat/internal/index"
)

const (
	// MaxRetries is the maximum number of attempts for a failed batch
	MaxRetries = 3
)

// ChunkRepository defines the interface for archived chunk persistence
type ChunkRepository interface {
	CreateBatch(ctx context.Context, chunks []*domain.ArchivedChunk) error
}

// chunkBatch is one session's embedded chunks waiting to be archived.
type chunkBatch struct {
	sessionID string
	entries   []index.Entry
	retries   int
}

// ArchiveWorker drains an in-memory queue of embedded chunks into the
// document_chunks table. Ingestion enqueues and returns immediately;
// archival happens on the worker's poll cycle, so a slow database
// never delays an upload response.
type ArchiveWorker struct {
	mu    sync.Mutex
	queue []*chunkBatch
	repo  ChunkRepository
}

// NewArchiveWorker creates a new ArchiveWorker instance
func NewArchiveWorker(repo ChunkRepository) *ArchiveWorker {
	return &ArchiveWorker{repo: repo}
}

// Enqueue adds a session's embedded chunks to the archive queue.
func (w *ArchiveWorker) Enqueue(sessionID string, entries []index.Entry) {
	if len(entries) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queue = append(w.queue, &chunkBatch{sessionID: sessionID, entries: entries})
}

// Pending returns the number of queued batches.
func (w *ArchiveWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// ProcessJobs implements the JobProcessor interface
func (w *ArchiveWorker) ProcessJobs(ctx context.Context) error {
	batches := w.drain()
	if len(batches) == 0 {
		return nil
	}

	log.Printf("Archiving %d pending chunk batches", len(batches))

	for _, batch := range batches {
		if err := w.processBatch(ctx, batch); err != nil {
			log.Printf("Error archiving chunks for session %s: %v", batch.sessionID, err)
			w.handleBatchFailure(batch, err)
		}
	}

	return nil
}

func (w *ArchiveWorker) drain() []*chunkBatch {
	w.mu.Lock()
	defer w.mu.Unlock()
	batches := w.queue
	w.queue = nil
	return batches
}

func (w *ArchiveWorker) processBatch(ctx context.Context, batch *chunkBatch) error {
	now := time.Now().UTC()
	chunks := make([]*domain.ArchivedChunk, 0, len(batch.entries))
	for i, entry := range batch.entries {
		chunks = append(chunks, &domain.ArchivedChunk{
			ID:         uuid.New().String(),
			SessionID:  batch.sessionID,
			Source:     entry.Chunk.Source,
			Page:       entry.Chunk.Page,
			ChunkIndex: i,
			Text:       entry.Chunk.Text,
			Embedding:  entry.Vector,
			CreatedAt:  now,
		})
	}

	if err := w.repo.CreateBatch(ctx, chunks); err != nil {
		return fmt.Errorf("failed to archive chunk batch: %w", err)
	}

	log.Printf("Archived %d chunks for session %s", len(chunks), batch.sessionID)
	return nil
}

// handleBatchFailure requeues a failed batch until MaxRetries.
func (w *ArchiveWorker) handleBatchFailure(batch *chunkBatch, batchErr error) {
	batch.retries++
	if batch.retries >= MaxRetries {
		log.Printf("Chunk batch for session %s exceeded max retries (%d), dropping: %v", batch.sessionID, MaxRetries, batchErr)
		return
	}

	log.Printf("Chunk batch for session %s will be retried (attempt %d/%d)", batch.sessionID, batch.retries, MaxRetries)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queue = append(w.queue, batch)
}
