package seed

import (
	"fmt"
	"log"

	"pwani/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options controls seed data generation.
type Options struct {
	NumUsers    int
	NumMatches  int
	ShouldClean bool
}

// Seed populates the database with demo profiles, a web of likes and a set of
// mutual matches with conversation history. All seeded accounts share the
// password "PwaniDemo123!".
func Seed(db *gorm.DB, opts Options) error {
	log.Println("🌱 Starting database seeding...")

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			return fmt.Errorf("failed to clear data: %w", err)
		}
		log.Println("✓ Cleared existing data")
	}

	if opts.NumUsers < 2 {
		opts.NumUsers = 2
	}
	if opts.NumMatches > opts.NumUsers/2 {
		opts.NumMatches = opts.NumUsers / 2
	}

	factory := NewFactory(db)

	users, err := createUsers(factory, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("✓ Created %d users", len(users))

	likes, err := createLikes(factory, users)
	if err != nil {
		return fmt.Errorf("failed to create likes: %w", err)
	}
	log.Printf("✓ Created %d likes", likes)

	matches, err := createMatches(factory, users, opts.NumMatches)
	if err != nil {
		return fmt.Errorf("failed to create matches: %w", err)
	}
	log.Printf("✓ Created %d matches with conversations", len(matches))

	log.Println("🎉 Database seeding completed successfully!")
	log.Println("   Demo login: any seeded email / PwaniDemo123!")
	return nil
}

// clearData truncates all seeded tables. Postgres only.
func clearData(db *gorm.DB) error {
	tables := []string{
		"messages",
		"matches",
		"like_edges",
		"super_like_edges",
		"dislike_edges",
		"notifications",
		"users",
	}
	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}
	return nil
}

func createUsers(factory *Factory, count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count+1)

	// A stable account to log in with during development.
	demo, err := factory.CreateUser(func(u *models.User) {
		u.Email = "demo@pwani.love"
		u.FirstName = "Amani"
		u.LastName = "Mwangi"
	})
	if err != nil {
		return nil, err
	}
	users = append(users, demo)

	for i := 0; i < count; i++ {
		user, err := factory.CreateUser()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// createLikes sprinkles one-directional likes so the likes-received screens
// have content. Mutual pairs are created separately by createMatches.
func createLikes(factory *Factory, users []*models.User) (int, error) {
	created := 0
	for i, user := range users {
		for j := 0; j < 2; j++ {
			target := users[(i+1+factory.r.Intn(len(users)-1))%len(users)]
			if target.ID == user.ID {
				continue
			}
			if err := factory.CreateLike(user.ID, target.ID); err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

func createMatches(factory *Factory, users []*models.User, count int) ([]*models.Match, error) {
	matches := make([]*models.Match, 0, count)
	for i := 0; i+1 < len(users) && len(matches) < count; i += 2 {
		match, err := factory.CreateMatch(users[i].ID, users[i+1].ID)
		if err != nil {
			return nil, err
		}
		for m := 0; m < 2+factory.r.Intn(4); m++ {
			sender := users[i].ID
			if m%2 == 1 {
				sender = users[i+1].ID
			}
			if err := factory.CreateMessage(match, sender, gofakeit.HipsterSentence(8)); err != nil {
				return nil, err
			}
		}
		matches = append(matches, match)
	}
	return matches, nil
}
