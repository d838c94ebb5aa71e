package repository

import (
	"fmt"
	"testing"
	"time"

	"pwani/internal/database"
	"pwani/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

var testUserSeq int

func createTestUser(t *testing.T, db *gorm.DB, overrides ...func(*models.User)) *models.User {
	t.Helper()
	testUserSeq++
	user := &models.User{
		Email:             fmt.Sprintf("user%d@example.com", testUserSeq),
		Password:          "hashed-password",
		FirstName:         fmt.Sprintf("User%d", testUserSeq),
		LastName:          "Test",
		DateOfBirth:       time.Date(1995, 4, 12, 0, 0, 0, 0, time.UTC),
		Gender:            models.GenderFemale,
		PrefGenders:       models.StringList{models.GenderMale, models.GenderFemale},
		IsProfileComplete: true,
	}
	for _, override := range overrides {
		override(user)
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestMatch(t *testing.T, db *gorm.DB, x, y uint) *models.Match {
	t.Helper()
	a, b := models.NormalizePair(x, y)
	match := &models.Match{UserAID: a, UserBID: b}
	require.NoError(t, db.Create(match).Error)
	return match
}
