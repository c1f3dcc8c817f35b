//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docuchat/internal/domain"
	"github.com/cloo-solutions/docuchat/internal/testutil"
)

func testEmbedding(dim int, fill float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = fill
	}
	return v
}

func TestDocumentChunkRepository_CreateBatchAndList(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	userRepo := NewUserRepository(pool)
	sessionRepo := NewChatSessionRepository(pool)
	chunkRepo := NewDocumentChunkRepository(pool)

	session := createTestChatSession(ctx, t, userRepo, sessionRepo)

	now := time.Now().UTC().Truncate(time.Microsecond)
	chunks := []*domain.ArchivedChunk{
		{
			ID:         uuid.NewString(),
			SessionID:  session.ID,
			Source:     "report.pdf",
			Page:       1,
			ChunkIndex: 0,
			Text:       "Total: 5 units",
			Embedding:  testEmbedding(1536, 0.1),
			CreatedAt:  now,
		},
		{
			ID:         uuid.NewString(),
			SessionID:  session.ID,
			Source:     "report.pdf",
			Page:       2,
			ChunkIndex: 1,
			Text:       "Total: 12 units",
			Embedding:  testEmbedding(1536, 0.2),
			CreatedAt:  now,
		},
	}
	require.NoError(t, chunkRepo.CreateBatch(ctx, chunks))

	retrieved, err := chunkRepo.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, retrieved, 2)

	assert.Equal(t, 0, retrieved[0].ChunkIndex)
	assert.Equal(t, 1, retrieved[0].Page)
	assert.Equal(t, "Total: 5 units", retrieved[0].Text)
	require.Len(t, retrieved[0].Embedding, 1536)
	assert.InDelta(t, 0.1, retrieved[0].Embedding[0], 1e-6)

	assert.Equal(t, 1, retrieved[1].ChunkIndex)
	assert.Equal(t, 2, retrieved[1].Page)
}

func TestDocumentChunkRepository_CountBySession(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	userRepo := NewUserRepository(pool)
	sessionRepo := NewChatSessionRepository(pool)
	chunkRepo := NewDocumentChunkRepository(pool)

	session := createTestChatSession(ctx, t, userRepo, sessionRepo)

	count, err := chunkRepo.CountBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, chunkRepo.CreateBatch(ctx, []*domain.ArchivedChunk{{
		ID:         uuid.NewString(),
		SessionID:  session.ID,
		Source:     "notes.pdf",
		Page:       1,
		ChunkIndex: 0,
		Text:       "hello",
		Embedding:  testEmbedding(1536, 0.3),
	}}))

	count, err = chunkRepo.CountBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
