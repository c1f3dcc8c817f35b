package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/docuchat/internal/domain"
)

// DocumentChunkRepository archives embedded chunks with their vectors.
// The archive is write-mostly: the live index serves queries, the
// table keeps the embeddings durable for audit and future reload.
type DocumentChunkRepository struct {
	db dbtx
}

func NewDocumentChunkRepository(pool *pgxpool.Pool) *DocumentChunkRepository {
	return &DocumentChunkRepository{db: pool}
}

func NewDocumentChunkRepositoryWithTx(tx pgx.Tx) *DocumentChunkRepository {
	return &DocumentChunkRepository{db: tx}
}

func (r *DocumentChunkRepository) CreateBatch(ctx context.Context, chunks []*domain.ArchivedChunk) error {
	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO document_chunks
				(id, session_id, source, page, chunk_index, text, embedding, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID,
			c.SessionID,
			c.Source,
			c.Page,
			c.ChunkIndex,
			c.Text,
			pgvector.NewVector(c.Embedding),
			createdAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *DocumentChunkRepository) ListBySession(ctx context.Context, sessionID string) ([]*domain.ArchivedChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, source, page, chunk_index, text, embedding, created_at
		 FROM document_chunks
		 WHERE session_id = $1
		 ORDER BY chunk_index ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.ArchivedChunk
	for rows.Next() {
		var c domain.ArchivedChunk
		var embedding pgvector.Vector
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Source, &c.Page, &c.ChunkIndex, &c.Text, &embedding, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Embedding = embedding.Slice()
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

func (r *DocumentChunkRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE session_id = $1`,
		sessionID,
	).Scan(&count)
	return count, err
}
