//go:build integration

package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docuchat/internal/domain"
	"github.com/cloo-solutions/docuchat/internal/testutil"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	userRepo := NewUserRepository(pool)

	user := createTestUser(ctx, t, userRepo)

	retrieved, err := userRepo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, user.Username, retrieved.Username)

	missing, err := userRepo.GetByID(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_GetByUsername(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	userRepo := NewUserRepository(pool)

	user := createTestUser(ctx, t, userRepo)

	retrieved, err := userRepo.GetByUsername(ctx, user.Username)
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, user.ID, retrieved.ID)

	missing, err := userRepo.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserSessionRepository_TokenLookup(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	userRepo := NewUserRepository(pool)
	userSessionRepo := NewUserSessionRepository(pool)

	user := createTestUser(ctx, t, userRepo)

	sum := sha256.Sum256([]byte("secret-token"))
	hash := hex.EncodeToString(sum[:])

	now := time.Now().UTC().Truncate(time.Microsecond)
	session := &domain.UserSession{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: hash,
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
	require.NoError(t, userSessionRepo.Create(ctx, session))

	retrieved, err := userSessionRepo.GetByTokenHash(ctx, hash)
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, user.ID, retrieved.UserID)
	assert.False(t, retrieved.Expired(now))
	assert.True(t, retrieved.Expired(now.Add(25*time.Hour)))

	missing, err := userSessionRepo.GetByTokenHash(ctx, "deadbeef")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
