// Command main runs the database seeder for Pwani Love.
package main

import (
	"flag"
	"log"

	"pwani/internal/config"
	"pwani/internal/database"
	"pwani/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numMatches := flag.Int("matches", 15, "Number of mutual matches with conversation history")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d matches, clean=%v\n", *numUsers, *numMatches, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Seed(db, seed.Options{
		NumUsers:    *numUsers,
		NumMatches:  *numMatches,
		ShouldClean: *shouldClean,
	}); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Println("📧 All test users have the password: PwaniDemo123!")
}
