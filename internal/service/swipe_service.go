package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"pwani/internal/middleware"
	"pwani/internal/models"
	"pwani/internal/observability"
	"pwani/internal/repository"
)

// SwipeService implements the like/dislike/superlike ledger and mutual-like
// match creation.
type SwipeService struct {
	users         repository.UserRepository
	swipes        repository.SwipeRepository
	matches       repository.MatchRepository
	notifications repository.NotificationRepository
}

// NewSwipeService returns a new SwipeService.
func NewSwipeService(
	users repository.UserRepository,
	swipes repository.SwipeRepository,
	matches repository.MatchRepository,
	notifications repository.NotificationRepository,
) *SwipeService {
	return &SwipeService{users: users, swipes: swipes, matches: matches, notifications: notifications}
}

// LikeResult reports the outcome of a like.
type LikeResult struct {
	Matched bool          `json:"matched"`
	Match   *models.Match `json:"match,omitempty"`
}

// Like records a like edge from -> to. When the reciprocal like exists the
// match is created atomically with the edge insert and both users get a
// persisted match notification.
func (s *SwipeService) Like(ctx context.Context, fromUserID, toUserID uint) (*LikeResult, error) {
	if fromUserID == toUserID {
		return nil, models.NewValidationError("You cannot like yourself")
	}

	target, err := s.users.GetByID(ctx, toUserID)
	if err != nil {
		return nil, err
	}

	match, created, err := s.swipes.RecordLike(ctx, fromUserID, toUserID)
	if err != nil {
		observability.SwipesTotal.WithLabelValues("like", "rejected").Inc()
		observability.RecordSpanError(ctx, err)
		return nil, err
	}

	outcome := "recorded"
	if match != nil {
		outcome = "matched"
	}
	observability.SwipesTotal.WithLabelValues("like", outcome).Inc()

	if created {
		observability.MatchesCreatedTotal.Inc()
		liker, likerErr := s.users.GetByID(ctx, fromUserID)
		if likerErr != nil {
			middleware.Logger.WarnContext(ctx, "match notification skipped, liker lookup failed",
				slog.Any("user_id", fromUserID), slog.String("error", likerErr.Error()))
		} else {
			s.persistMatchNotifications(ctx, match, liker, target)
		}
	}

	return &LikeResult{Matched: match != nil, Match: match}, nil
}

// Dislike records a pass. It removes any prior like edge so the pair cannot
// match from a stale like, then records the dislike best-effort.
func (s *SwipeService) Dislike(ctx context.Context, fromUserID, toUserID uint) error {
	if fromUserID == toUserID {
		return models.NewValidationError("You cannot dislike yourself")
	}

	if _, err := s.users.GetByID(ctx, toUserID); err != nil {
		return err
	}

	if err := s.swipes.RemoveLike(ctx, fromUserID, toUserID); err != nil {
		return err
	}

	if err := s.swipes.RecordDislike(ctx, fromUserID, toUserID); err != nil {
		// The dislike ledger is advisory, a failed insert must not fail the
		// swipe itself.
		middleware.Logger.WarnContext(ctx, "dislike record failed",
			slog.Any("from", fromUserID), slog.Any("to", toUserID), slog.String("error", err.Error()))
	}

	observability.SwipesTotal.WithLabelValues("dislike", "recorded").Inc()
	return nil
}

// SuperLike records a superlike edge and notifies the target. It never
// creates a match by itself.
func (s *SwipeService) SuperLike(ctx context.Context, fromUserID, toUserID uint) error {
	if fromUserID == toUserID {
		return models.NewValidationError("You cannot superlike yourself")
	}

	if _, err := s.users.GetByID(ctx, toUserID); err != nil {
		return err
	}

	if err := s.swipes.RecordSuperLike(ctx, fromUserID, toUserID); err != nil {
		observability.SwipesTotal.WithLabelValues("superlike", "rejected").Inc()
		return err
	}
	observability.SwipesTotal.WithLabelValues("superlike", "recorded").Inc()

	from, err := s.users.GetByID(ctx, fromUserID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "superlike notification skipped, sender lookup failed",
			slog.Any("user_id", fromUserID), slog.String("error", err.Error()))
		return nil
	}

	s.persistNotification(ctx, &models.Notification{
		UserID: toUserID,
		Kind:   models.NotificationKindSuperLike,
		Title:  "Someone superliked you!",
		Body:   fmt.Sprintf("%s superliked your profile", from.FirstName),
		Data:   mustJSON(map[string]interface{}{"from_user_id": fromUserID}),
	})
	return nil
}

// LikesReceived returns public profiles of users that liked userID and are
// not yet matched with them.
func (s *SwipeService) LikesReceived(ctx context.Context, userID uint) ([]models.PublicProfile, error) {
	likes, err := s.swipes.LikesReceived(ctx, userID)
	if err != nil {
		return nil, err
	}
	matched, err := s.matchedSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	profiles := make([]models.PublicProfile, 0, len(likes))
	for i := range likes {
		if _, ok := matched[likes[i].FromUserID]; ok {
			continue
		}
		profiles = append(profiles, likes[i].FromUser.Public(now))
	}
	return profiles, nil
}

// SuperLikesReceived returns public profiles of users that superliked userID
// and are not yet matched with them.
func (s *SwipeService) SuperLikesReceived(ctx context.Context, userID uint) ([]models.PublicProfile, error) {
	supers, err := s.swipes.SuperLikesReceived(ctx, userID)
	if err != nil {
		return nil, err
	}
	matched, err := s.matchedSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	profiles := make([]models.PublicProfile, 0, len(supers))
	for i := range supers {
		if _, ok := matched[supers[i].FromUserID]; ok {
			continue
		}
		profiles = append(profiles, supers[i].FromUser.Public(now))
	}
	return profiles, nil
}

func (s *SwipeService) matchedSet(ctx context.Context, userID uint) (map[uint]struct{}, error) {
	ids, err := s.matches.MatchedUserIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (s *SwipeService) persistMatchNotifications(ctx context.Context, match *models.Match, liker, target *models.User) {
	payload := mustJSON(map[string]interface{}{"match_id": match.ID})

	s.persistNotification(ctx, &models.Notification{
		UserID: target.ID,
		Kind:   models.NotificationKindMatch,
		Title:  "It's a match!",
		Body:   fmt.Sprintf("You and %s liked each other", liker.FirstName),
		Data:   payload,
	})
	s.persistNotification(ctx, &models.Notification{
		UserID: liker.ID,
		Kind:   models.NotificationKindMatch,
		Title:  "It's a match!",
		Body:   fmt.Sprintf("You and %s liked each other", target.FirstName),
		Data:   payload,
	})
}

func (s *SwipeService) persistNotification(ctx context.Context, n *models.Notification) {
	if err := s.notifications.Create(ctx, n); err != nil {
		middleware.Logger.WarnContext(ctx, "notification persist failed",
			slog.Any("user_id", n.UserID), slog.String("kind", n.Kind), slog.String("error", err.Error()))
	}
}

func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
