package service

import (
	"fmt"
	"testing"
	"time"

	"pwani/internal/database"
	"pwani/internal/models"
	"pwani/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fixture bundles the real repositories over an in-memory database so the
// services are tested against actual SQL semantics.
type fixture struct {
	db            *gorm.DB
	users         repository.UserRepository
	swipes        repository.SwipeRepository
	matches       repository.MatchRepository
	messages      repository.MessageRepository
	notifications repository.NotificationRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return &fixture{
		db:            db,
		users:         repository.NewUserRepository(db),
		swipes:        repository.NewSwipeRepository(db),
		matches:       repository.NewMatchRepository(db),
		messages:      repository.NewMessageRepository(db),
		notifications: repository.NewNotificationRepository(db),
	}
}

var fixtureUserSeq int

func (f *fixture) createUser(t *testing.T, overrides ...func(*models.User)) *models.User {
	t.Helper()
	fixtureUserSeq++
	user := &models.User{
		Email:             fmt.Sprintf("svc%d@example.com", fixtureUserSeq),
		Password:          "hashed-password",
		FirstName:         fmt.Sprintf("Svc%d", fixtureUserSeq),
		LastName:          "Test",
		DateOfBirth:       time.Date(1995, 4, 12, 0, 0, 0, 0, time.UTC),
		Gender:            models.GenderFemale,
		PrefGenders:       models.StringList{models.GenderMale, models.GenderFemale},
		IsProfileComplete: true,
	}
	for _, override := range overrides {
		override(user)
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *fixture) createMatch(t *testing.T, x, y uint) *models.Match {
	t.Helper()
	a, b := models.NormalizePair(x, y)
	match := &models.Match{UserAID: a, UserBID: b}
	require.NoError(t, f.db.Create(match).Error)
	return match
}

func ptr[T any](v T) *T { return &v }
