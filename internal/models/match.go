package models

import (
	"time"
)

// Match is the undirected pairing materialized when both directions of
// LikeEdge exist between two users. UserAID is always the smaller ID; the
// unique index on the normalized pair guarantees at most one match per pair
// no matter how concurrent likes interleave.
type Match struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	UserAID uint `gorm:"not null;uniqueIndex:idx_match_pair" json:"user_a_id"`
	UserBID uint `gorm:"not null;uniqueIndex:idx_match_pair;index" json:"user_b_id"`

	// Last-message summary shown in match lists.
	LastMessageText     string     `json:"last_message_text"`
	LastMessageSenderID *uint      `json:"last_message_sender_id,omitempty"`
	LastMessageAt       *time.Time `json:"last_message_at,omitempty"`

	// Per-participant unread counters.
	UnreadCountA int `gorm:"default:0" json:"unread_count_a"`
	UnreadCountB int `gorm:"default:0" json:"unread_count_b"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserA User `gorm:"foreignKey:UserAID" json:"user_a,omitempty"`
	UserB User `gorm:"foreignKey:UserBID" json:"user_b,omitempty"`
}

// TableName specifies the table name for GORM
func (Match) TableName() string {
	return "matches"
}

// NormalizePair orders two user IDs into the canonical (a < b) form used as
// the match pair key.
func NormalizePair(x, y uint) (uint, uint) {
	if x < y {
		return x, y
	}
	return y, x
}

// Involves reports whether userID is one of the two participants.
func (m *Match) Involves(userID uint) bool {
	return m.UserAID == userID || m.UserBID == userID
}

// OtherUserID returns the participant that is not userID.
func (m *Match) OtherUserID(userID uint) uint {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}

// UnreadFor returns the unread counter belonging to userID.
func (m *Match) UnreadFor(userID uint) int {
	if m.UserAID == userID {
		return m.UnreadCountA
	}
	return m.UnreadCountB
}

// Message is a chat message inside a match. Messages only exist between
// matched users.
type Message struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	MatchID  uint   `gorm:"not null;index" json:"match_id"`
	SenderID uint   `gorm:"not null" json:"sender_id"`
	Body     string `gorm:"not null" json:"body"`
	Kind     string `gorm:"type:varchar(16);default:'text'" json:"kind"`
	IsRead   bool   `gorm:"default:false" json:"is_read"`

	CreatedAt time.Time `json:"created_at"`

	Sender User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}
