package repository

import (
	"context"
	"errors"
	"testing"

	"pwani/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordLike_NoReciprocal(t *testing.T) {
	db := newTestDB(t)
	repo := NewSwipeRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db)
	bob := createTestUser(t, db)

	match, created, err := repo.RecordLike(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Nil(t, match)
	assert.False(t, created)

	exists, err := repo.LikeExists(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRecordLike_MutualCreatesMatch(t *testing.T) {
	db := newTestDB(t)
	repo := NewSwipeRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db)
	bob := createTestUser(t, db)

	_, created, err := repo.RecordLike(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, created)

	match, created, err := repo.RecordLike(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, match)

	// pair is stored in canonical order regardless of who liked last
	assert.Less(t, match.UserAID, match.UserBID)
	assert.True(t, match.Involves(alice.ID))
	assert.True(t, match.Involves(bob.ID))

	var matchCount int64
	require.NoError(t, db.Model(&models.Match{}).Count(&matchCount).Error)
	assert.EqualValues(t, 1, matchCount)
}

func TestRecordLike_DuplicateIsConflict(t *testing.T) {
	db := newTestDB(t)
	repo := NewSwipeRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db)
	bob := createTestUser(t, db)

	_, _, err := repo.RecordLike(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, _, err = repo.RecordLike(ctx, alice.ID, bob.ID)
	require.Error(t, err)

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CONFLICT", appErr.Code)
}

func TestRecordLike_ExistingMatchReturnedWithoutDoubleCount(t *testing.T) {
	db := newTestDB(t)
	repo := NewSwipeRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db)
	bob := createTestUser(t, db)

	// a match already exists but alice's like edge is missing, as after a
	// concurrent like landed between her insert and the match create
	require.NoError(t, db.Create(&models.LikeEdge{FromUserID: bob.ID, ToUserID: alice.ID}).Error)
	createTestMatch(t, db, alice.ID, bob.ID)

	match, created, err := repo.RecordLike(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.False(t, created, "pre-existing match must not be reported as newly created")
}

func TestRecordDislike_Idempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewSwipeRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db)
	bob := createTestUser(t, db)

	require.NoError(t, repo.RecordDislike(ctx, alice.ID, bob.ID))
	require.NoError(t, repo.RecordDislike(ctx, alice.ID, bob.ID))

	var count int64
	require.NoError(t, db.Model(&models.DislikeEdge{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRecordSuperLike_DuplicateIsConflict(t *testing.T) {
	db := newTestDB(t)
	repo := NewSwipeRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db)
	bob := createTestUser(t, db)

	require.NoError(t, repo.RecordSuperLike(ctx, alice.ID, bob.ID))

	err := repo.RecordSuperLike(ctx, alice.ID, bob.ID)
	require.Error(t, err)

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CONFLICT", appErr.Code)
}

func TestLikesReceived_NewestFirstWithSender(t *testing.T) {
	db := newTestDB(t)
	repo := NewSwipeRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db)
	bob := createTestUser(t, db)
	carol := createTestUser(t, db)

	_, _, err := repo.RecordLike(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	_, _, err = repo.RecordLike(ctx, carol.ID, alice.ID)
	require.NoError(t, err)

	likes, err := repo.LikesReceived(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, likes, 2)
	for _, like := range likes {
		assert.NotEmpty(t, like.FromUser.FirstName)
	}
}

func TestDecidedUserIDs_SpansAllLedgers(t *testing.T) {
	db := newTestDB(t)
	repo := NewSwipeRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db)
	bob := createTestUser(t, db)
	carol := createTestUser(t, db)
	dan := createTestUser(t, db)

	_, _, err := repo.RecordLike(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, repo.RecordDislike(ctx, alice.ID, carol.ID))
	require.NoError(t, repo.RecordSuperLike(ctx, alice.ID, dan.ID))
	// a superlike on an already-liked user must not duplicate the ID
	require.NoError(t, repo.RecordSuperLike(ctx, alice.ID, bob.ID))

	decided, err := repo.DecidedUserIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{bob.ID, carol.ID, dan.ID}, decided)
}

func TestRemoveLike(t *testing.T) {
	db := newTestDB(t)
	repo := NewSwipeRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db)
	bob := createTestUser(t, db)

	_, _, err := repo.RecordLike(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, repo.RemoveLike(ctx, alice.ID, bob.ID))

	exists, err := repo.LikeExists(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}
