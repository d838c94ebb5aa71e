package repository

import (
	"context"
	"errors"
	"time"

	"pwani/internal/cache"
	"pwani/internal/models"
	"pwani/internal/observability"

	"gorm.io/gorm"
)

// MatchRepository defines persistence operations for matches.
type MatchRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Match, error)
	GetByPair(ctx context.Context, x, y uint) (*models.Match, error)
	ListForUser(ctx context.Context, userID uint) ([]models.Match, error)
	MatchedUserIDs(ctx context.Context, userID uint) ([]uint, error)
	Delete(ctx context.Context, id uint) error
}

type matchRepository struct {
	db *gorm.DB
}

// NewMatchRepository returns a new MatchRepository implementation.
func NewMatchRepository(db *gorm.DB) MatchRepository {
	return &matchRepository{db: db}
}

func (r *matchRepository) GetByID(ctx context.Context, id uint) (*models.Match, error) {
	var match models.Match
	if err := r.db.WithContext(ctx).
		Preload("UserA").
		Preload("UserB").
		First(&match, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Match", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &match, nil
}

func (r *matchRepository) GetByPair(ctx context.Context, x, y uint) (*models.Match, error) {
	a, b := models.NormalizePair(x, y)
	var match models.Match
	if err := r.db.WithContext(ctx).
		Where("user_a_id = ? AND user_b_id = ?", a, b).
		First(&match).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &match, nil
}

func (r *matchRepository) ListForUser(ctx context.Context, userID uint) ([]models.Match, error) {
	defer observability.TrackQuery("select", "matches")()

	var matches []models.Match
	if err := r.db.WithContext(ctx).
		Preload("UserA").
		Preload("UserB").
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&matches).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return matches, nil
}

func (r *matchRepository) MatchedUserIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	key := cache.MatchedIDsKey(userID)

	err := cache.Aside(ctx, key, &ids, cache.EdgeSetTTL, func() error {
		var matches []models.Match
		if err := r.db.WithContext(ctx).
			Select("user_a_id", "user_b_id").
			Where("user_a_id = ? OR user_b_id = ?", userID, userID).
			Find(&matches).Error; err != nil {
			return models.NewInternalError(err)
		}
		ids = make([]uint, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.OtherUserID(userID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *matchRepository) Delete(ctx context.Context, id uint) error {
	var match models.Match
	if err := r.db.WithContext(ctx).First(&match, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Match", id)
		}
		return models.NewInternalError(err)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("match_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		// Remove the like edges so neither side resurfaces in discovery
		// with a stale mutual like.
		if err := tx.Where(
			"(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)",
			match.UserAID, match.UserBID, match.UserBID, match.UserAID,
		).Delete(&models.LikeEdge{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Delete(&models.Match{}, id).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.InvalidateSwipeState(ctx, match.UserAID)
	cache.InvalidateSwipeState(ctx, match.UserBID)
	return nil
}

// touchMatch bumps a match's updated_at so recent conversations sort first.
func touchMatch(tx *gorm.DB, matchID uint) error {
	return tx.Model(&models.Match{}).
		Where("id = ?", matchID).
		Update("updated_at", time.Now()).Error
}
