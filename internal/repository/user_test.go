package repository

import (
	"context"
	"errors"
	"testing"

	"pwani/internal/cache"
	"pwani/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first := createTestUser(t, db)

	err := repo.Create(ctx, &models.User{
		Email:       first.Email,
		Password:    "hashed",
		FirstName:   "Other",
		LastName:    "Person",
		DateOfBirth: first.DateOfBirth,
		Gender:      models.GenderMale,
	})
	require.Error(t, err)

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestUserGetByEmail_MissingIsNilNil(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	user, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	_, err := repo.GetByID(context.Background(), 9999)
	require.Error(t, err)

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestUserUpdateLocation(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db)
	require.NoError(t, repo.UpdateLocation(ctx, user.ID, -4.0435, 39.6682))

	var updated models.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	require.True(t, updated.HasLocation())
	assert.InDelta(t, -4.0435, *updated.Latitude, 1e-9)
	assert.InDelta(t, 39.6682, *updated.Longitude, 1e-9)

	err := repo.UpdateLocation(ctx, 9999, 0, 0)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestListCandidates_ExcludesSelfIncompleteAndDecided(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db)
	bob := createTestUser(t, db)
	carol := createTestUser(t, db)
	incomplete := createTestUser(t, db, func(u *models.User) { u.IsProfileComplete = false })

	candidates, err := repo.ListCandidates(ctx, alice.ID, []uint{carol.ID})
	require.NoError(t, err)

	ids := make([]uint, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []uint{bob.ID}, ids)
	assert.NotContains(t, ids, alice.ID)
	assert.NotContains(t, ids, incomplete.ID)
}

func TestUserSearch_CaseInsensitiveOnNames(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	amina := createTestUser(t, db, func(u *models.User) { u.FirstName = "Amina" })
	createTestUser(t, db, func(u *models.User) { u.FirstName = "Joseph" })
	hidden := createTestUser(t, db, func(u *models.User) {
		u.FirstName = "Aminata"
		u.IsProfileComplete = false
	})

	results, err := repo.Search(ctx, "AMIN", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, amina.ID, results[0].ID)
	assert.NotEqual(t, hidden.ID, results[0].ID)
}

func TestUserSearch_MatchesBioAndInterests(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	surfer := createTestUser(t, db, func(u *models.User) { u.Bio = "Weekend surfer from Diani" })
	drummer := createTestUser(t, db, func(u *models.User) {
		u.Interests = models.StringList{"drumming", "cooking"}
	})
	createTestUser(t, db)

	results, err := repo.Search(ctx, "surf", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, surfer.ID, results[0].ID)

	results, err = repo.Search(ctx, "DRUM", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, drummer.ID, results[0].ID)
}

func TestUserUpdate_PasswordSurvivesWarmCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})

	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db)

	// First read fills the cache; the second is served from it, and the
	// cached JSON never carries the hash.
	_, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	cached, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, cached.Password)

	cached.Bio = "Updated from a cached read"
	require.NoError(t, repo.Update(ctx, cached))

	var fresh models.User
	require.NoError(t, db.First(&fresh, user.ID).Error)
	assert.Equal(t, "hashed-password", fresh.Password)
	assert.Equal(t, "Updated from a cached read", fresh.Bio)
}
