package repository

import (
	"context"
	"errors"
	"testing"

	"pwani/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchGetByPair_NormalizesOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewMatchRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db)
	bob := createTestUser(t, db)
	createTestMatch(t, db, alice.ID, bob.ID)

	match, err := repo.GetByPair(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.True(t, match.Involves(alice.ID))

	missing, err := repo.GetByPair(ctx, alice.ID, alice.ID+1000)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMatchListForUser_PreloadsParticipants(t *testing.T) {
	db := newTestDB(t)
	repo := NewMatchRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db)
	bob := createTestUser(t, db)
	carol := createTestUser(t, db)
	createTestMatch(t, db, alice.ID, bob.ID)
	createTestMatch(t, db, alice.ID, carol.ID)
	createTestMatch(t, db, bob.ID, carol.ID)

	matches, err := repo.ListForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.True(t, m.Involves(alice.ID))
		assert.NotEmpty(t, m.UserA.FirstName)
		assert.NotEmpty(t, m.UserB.FirstName)
	}
}

func TestMatchedUserIDs(t *testing.T) {
	db := newTestDB(t)
	repo := NewMatchRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db)
	bob := createTestUser(t, db)
	carol := createTestUser(t, db)
	createTestMatch(t, db, alice.ID, bob.ID)
	createTestMatch(t, db, carol.ID, alice.ID)

	ids, err := repo.MatchedUserIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{bob.ID, carol.ID}, ids)
}

func TestMatchDelete_RemovesMessagesAndLikeEdges(t *testing.T) {
	db := newTestDB(t)
	repo := NewMatchRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db)
	bob := createTestUser(t, db)
	require.NoError(t, db.Create(&models.LikeEdge{FromUserID: alice.ID, ToUserID: bob.ID}).Error)
	require.NoError(t, db.Create(&models.LikeEdge{FromUserID: bob.ID, ToUserID: alice.ID}).Error)
	match := createTestMatch(t, db, alice.ID, bob.ID)
	require.NoError(t, db.Create(&models.Message{MatchID: match.ID, SenderID: alice.ID, Body: "hi", Kind: "text"}).Error)

	require.NoError(t, repo.Delete(ctx, match.ID))

	var matchCount, messageCount, likeCount int64
	require.NoError(t, db.Model(&models.Match{}).Count(&matchCount).Error)
	require.NoError(t, db.Model(&models.Message{}).Count(&messageCount).Error)
	require.NoError(t, db.Model(&models.LikeEdge{}).Count(&likeCount).Error)
	assert.Zero(t, matchCount)
	assert.Zero(t, messageCount)
	assert.Zero(t, likeCount, "stale mutual likes would resurface both users in discovery")
}

func TestMatchDelete_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewMatchRepository(db)

	err := repo.Delete(context.Background(), 9999)
	require.Error(t, err)

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}
