package models

import (
	"time"

	"gorm.io/gorm"
)

// LikeEdge is a directed "fromUser expressed interest in toUser" record.
// The (from, to) pair is unique: re-liking the same user is a conflict.
type LikeEdge struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FromUserID uint      `gorm:"not null;uniqueIndex:idx_like_from_to" json:"from_user_id"`
	ToUserID   uint      `gorm:"not null;uniqueIndex:idx_like_from_to;index" json:"to_user_id"`
	CreatedAt  time.Time `json:"created_at"`

	FromUser User `gorm:"foreignKey:FromUserID" json:"from_user,omitempty"`
	ToUser   User `gorm:"foreignKey:ToUserID" json:"to_user,omitempty"`
}

// TableName specifies the table name for GORM
func (LikeEdge) TableName() string {
	return "like_edges"
}

// SuperLikeEdge is a directed super-like record. It lives in its own ledger
// and never creates a match by itself; it is advisory on top of the regular
// like flow.
type SuperLikeEdge struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FromUserID uint      `gorm:"not null;uniqueIndex:idx_superlike_from_to" json:"from_user_id"`
	ToUserID   uint      `gorm:"not null;uniqueIndex:idx_superlike_from_to;index" json:"to_user_id"`
	CreatedAt  time.Time `json:"created_at"`

	FromUser User `gorm:"foreignKey:FromUserID" json:"from_user,omitempty"`
	ToUser   User `gorm:"foreignKey:ToUserID" json:"to_user,omitempty"`
}

// TableName specifies the table name for GORM
func (SuperLikeEdge) TableName() string {
	return "super_like_edges"
}

// DislikeEdge records a pass for analytics. It does not affect discovery
// beyond removing any prior like edge, and writes to it are best-effort.
type DislikeEdge struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	FromUserID uint           `gorm:"not null;uniqueIndex:idx_dislike_from_to" json:"from_user_id"`
	ToUserID   uint           `gorm:"not null;uniqueIndex:idx_dislike_from_to" json:"to_user_id"`
	CreatedAt  time.Time      `json:"created_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for GORM
func (DislikeEdge) TableName() string {
	return "dislike_edges"
}
