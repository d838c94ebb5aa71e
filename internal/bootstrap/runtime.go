// Package bootstrap wires up the runtime dependencies shared by the server
// and auxiliary commands.
package bootstrap

import (
	"fmt"
	"log"
	"strings"

	"pwani/internal/cache"
	"pwani/internal/config"
	"pwani/internal/database"
	"pwani/internal/models"
	"pwani/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedDemoData bool
}

// InitRuntime connects to DB and Redis and optionally seeds demo profiles.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// May result in a nil client if Redis is unreachable; the server
	// degrades realtime features instead of refusing to start.
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedDemoData {
		if err := ensureDevDemoData(cfg, db); err != nil {
			return nil, nil, fmt.Errorf("failed to bootstrap demo data: %w", err)
		}
	}

	return db, r, nil
}

// ensureDevDemoData seeds a small demo dataset on an empty development
// database so a fresh checkout has profiles to swipe through.
func ensureDevDemoData(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") {
		return nil
	}

	var userCount int64
	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		return err
	}
	if userCount > 0 {
		return nil
	}

	if err := seed.Seed(db, seed.Options{NumUsers: 25, NumMatches: 8}); err != nil {
		return err
	}
	log.Println("development demo data seeded on empty database")
	return nil
}
