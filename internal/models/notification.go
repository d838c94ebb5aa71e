package models

import (
	"time"
)

// Notification kinds persisted for the in-app inbox.
const (
	NotificationKindMatch     = "match"
	NotificationKindSuperLike = "superlike"
	NotificationKindMessage   = "message"
)

// Notification is a persisted in-app notification. Writing one is always a
// secondary effect: failures are logged and never fail the triggering
// request.
type Notification struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID uint   `gorm:"not null;index" json:"user_id"`
	Kind   string `gorm:"type:varchar(24);not null" json:"kind"`
	Title  string `gorm:"not null" json:"title"`
	Body   string `json:"body"`

	// Data carries kind-specific JSON (match id, sender name, ...).
	Data   string `gorm:"type:text" json:"data"`
	IsRead bool   `gorm:"default:false;index" json:"is_read"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}
