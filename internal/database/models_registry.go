package database

import "pwani/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.LikeEdge{},
		&models.SuperLikeEdge{},
		&models.DislikeEdge{},
		&models.Match{},
		&models.Message{},
		&models.Notification{},
	}
}
