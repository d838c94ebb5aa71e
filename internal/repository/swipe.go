package repository

import (
	"context"

	"pwani/internal/cache"
	"pwani/internal/models"

	"gorm.io/gorm"
)

// SwipeRepository defines persistence operations for like, superlike and
// dislike edges, including the transactional mutual-like match creation.
type SwipeRepository interface {
	// RecordLike inserts a like edge and, when the reciprocal like already
	// exists, creates the match in the same transaction. Returns the match
	// (nil when no mutual like) and whether this call created it.
	RecordLike(ctx context.Context, fromUserID, toUserID uint) (*models.Match, bool, error)
	RemoveLike(ctx context.Context, fromUserID, toUserID uint) error
	RecordDislike(ctx context.Context, fromUserID, toUserID uint) error
	RecordSuperLike(ctx context.Context, fromUserID, toUserID uint) error
	LikeExists(ctx context.Context, fromUserID, toUserID uint) (bool, error)
	LikesReceived(ctx context.Context, toUserID uint) ([]models.LikeEdge, error)
	SuperLikesReceived(ctx context.Context, toUserID uint) ([]models.SuperLikeEdge, error)
	DecidedUserIDs(ctx context.Context, userID uint) ([]uint, error)
}

type swipeRepository struct {
	db *gorm.DB
}

// NewSwipeRepository returns a new SwipeRepository implementation.
func NewSwipeRepository(db *gorm.DB) SwipeRepository {
	return &swipeRepository{db: db}
}

func (r *swipeRepository) RecordLike(ctx context.Context, fromUserID, toUserID uint) (*models.Match, bool, error) {
	var match *models.Match
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		like := models.LikeEdge{FromUserID: fromUserID, ToUserID: toUserID}
		if err := tx.Create(&like).Error; err != nil {
			if isUniqueConstraintError(err) {
				return models.NewConflictError("You have already liked this user")
			}
			return models.NewInternalError(err)
		}

		var reciprocal int64
		if err := tx.Model(&models.LikeEdge{}).
			Where("from_user_id = ? AND to_user_id = ?", toUserID, fromUserID).
			Count(&reciprocal).Error; err != nil {
			return models.NewInternalError(err)
		}
		if reciprocal == 0 {
			return nil
		}

		a, b := models.NormalizePair(fromUserID, toUserID)
		m := models.Match{UserAID: a, UserBID: b}
		if err := tx.Create(&m).Error; err != nil {
			if isUniqueConstraintError(err) {
				// A concurrent like already created the match. Load it so the
				// caller still sees the pair as matched without double-counting.
				if err := tx.Where("user_a_id = ? AND user_b_id = ?", a, b).First(&m).Error; err != nil {
					return models.NewInternalError(err)
				}
				match = &m
				return nil
			}
			return models.NewInternalError(err)
		}
		match = &m
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	cache.InvalidateSwipeState(ctx, fromUserID)
	cache.InvalidateSwipeState(ctx, toUserID)
	return match, created, nil
}

func (r *swipeRepository) RemoveLike(ctx context.Context, fromUserID, toUserID uint) error {
	if err := r.db.WithContext(ctx).
		Where("from_user_id = ? AND to_user_id = ?", fromUserID, toUserID).
		Delete(&models.LikeEdge{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *swipeRepository) RecordDislike(ctx context.Context, fromUserID, toUserID uint) error {
	dislike := models.DislikeEdge{FromUserID: fromUserID, ToUserID: toUserID}
	err := r.db.WithContext(ctx).
		Where("from_user_id = ? AND to_user_id = ?", fromUserID, toUserID).
		FirstOrCreate(&dislike).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			// Concurrent duplicate, the edge exists which is all we need.
			return nil
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateSwipeState(ctx, fromUserID)
	return nil
}

func (r *swipeRepository) RecordSuperLike(ctx context.Context, fromUserID, toUserID uint) error {
	super := models.SuperLikeEdge{FromUserID: fromUserID, ToUserID: toUserID}
	if err := r.db.WithContext(ctx).Create(&super).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("You have already superliked this user")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateSwipeState(ctx, fromUserID)
	return nil
}

func (r *swipeRepository) LikeExists(ctx context.Context, fromUserID, toUserID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.LikeEdge{}).
		Where("from_user_id = ? AND to_user_id = ?", fromUserID, toUserID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *swipeRepository) LikesReceived(ctx context.Context, toUserID uint) ([]models.LikeEdge, error) {
	var likes []models.LikeEdge
	if err := r.db.WithContext(ctx).
		Preload("FromUser").
		Where("to_user_id = ?", toUserID).
		Order("created_at DESC").
		Find(&likes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return likes, nil
}

func (r *swipeRepository) SuperLikesReceived(ctx context.Context, toUserID uint) ([]models.SuperLikeEdge, error) {
	var supers []models.SuperLikeEdge
	if err := r.db.WithContext(ctx).
		Preload("FromUser").
		Where("to_user_id = ?", toUserID).
		Order("created_at DESC").
		Find(&supers).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return supers, nil
}

// DecidedUserIDs returns every user the given user has already swiped on,
// across like, superlike and dislike ledgers.
func (r *swipeRepository) DecidedUserIDs(ctx context.Context, userID uint) ([]uint, error) {
	collect := func(model interface{}) ([]uint, error) {
		var ids []uint
		if err := r.db.WithContext(ctx).Model(model).
			Where("from_user_id = ?", userID).
			Pluck("to_user_id", &ids).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		return ids, nil
	}

	var out []uint
	key := cache.DecidedIDsKey(userID)
	err := cache.Aside(ctx, key, &out, cache.EdgeSetTTL, func() error {
		seen := make(map[uint]struct{})
		for _, m := range []interface{}{&models.LikeEdge{}, &models.SuperLikeEdge{}, &models.DislikeEdge{}} {
			ids, err := collect(m)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
