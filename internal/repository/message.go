package repository

import (
	"context"
	"errors"

	"pwani/internal/cache"
	"pwani/internal/models"
	"pwani/internal/observability"

	"gorm.io/gorm"
)

// MessageRepository defines persistence operations for match conversations.
type MessageRepository interface {
	// Create stores the message and updates the match's last-message summary
	// and the recipient's unread counter in one transaction.
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	ListByMatch(ctx context.Context, matchID uint, limit, offset int) ([]models.Message, error)
	MarkRead(ctx context.Context, matchID, readerID uint) error
	Delete(ctx context.Context, id uint) error
	UnreadTotal(ctx context.Context, userID uint) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository returns a new MessageRepository implementation.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	var recipientID uint

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var match models.Match
		if err := tx.First(&match, message.MatchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Match", message.MatchID)
			}
			return models.NewInternalError(err)
		}

		if err := tx.Create(message).Error; err != nil {
			return models.NewInternalError(err)
		}

		updates := map[string]interface{}{
			"last_message_text":      message.Body,
			"last_message_sender_id": message.SenderID,
			"last_message_at":        message.CreatedAt,
		}
		recipientID = match.OtherUserID(message.SenderID)
		if recipientID == match.UserAID {
			updates["unread_count_a"] = gorm.Expr("unread_count_a + 1")
		} else {
			updates["unread_count_b"] = gorm.Expr("unread_count_b + 1")
		}
		if err := tx.Model(&models.Match{}).Where("id = ?", match.ID).Updates(updates).Error; err != nil {
			return models.NewInternalError(err)
		}
		return touchMatch(tx, match.ID)
	})
	if err != nil {
		return err
	}

	cache.InvalidateUnread(ctx, recipientID)
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Message", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &message, nil
}

func (r *messageRepository) ListByMatch(ctx context.Context, matchID uint, limit, offset int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	defer observability.TrackQuery("select", "messages")()

	var messages []models.Message
	if err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("match_id = ?", matchID).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return messages, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, matchID, readerID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var match models.Match
		if err := tx.First(&match, matchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Match", matchID)
			}
			return models.NewInternalError(err)
		}

		if err := tx.Model(&models.Message{}).
			Where("match_id = ? AND sender_id <> ? AND is_read = ?", matchID, readerID, false).
			Update("is_read", true).Error; err != nil {
			return models.NewInternalError(err)
		}

		column := "unread_count_a"
		if readerID == match.UserBID {
			column = "unread_count_b"
		}
		if err := tx.Model(&models.Match{}).
			Where("id = ?", matchID).
			Update(column, 0).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.InvalidateUnread(ctx, readerID)
	return nil
}

func (r *messageRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Message{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// UnreadTotal sums unread counters across every match the user belongs to.
func (r *messageRepository) UnreadTotal(ctx context.Context, userID uint) (int64, error) {
	var total int64
	key := cache.UnreadKey(userID)

	err := cache.Aside(ctx, key, &total, cache.UnreadTTL, func() error {
		var matches []models.Match
		if err := r.db.WithContext(ctx).
			Select("user_a_id", "user_b_id", "unread_count_a", "unread_count_b").
			Where("user_a_id = ? OR user_b_id = ?", userID, userID).
			Find(&matches).Error; err != nil {
			return models.NewInternalError(err)
		}
		total = 0
		for _, m := range matches {
			total += int64(m.UnreadFor(userID))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
