package service

import (
	"context"
	"time"

	"pwani/internal/models"
	"pwani/internal/repository"
)

// MatchService exposes match listing and unmatch operations.
type MatchService struct {
	matches repository.MatchRepository
}

// NewMatchService returns a new MatchService.
func NewMatchService(matches repository.MatchRepository) *MatchService {
	return &MatchService{matches: matches}
}

// MatchSummary is one row of the caller's match list: the other participant's
// public profile plus the conversation summary seen from the caller's side.
type MatchSummary struct {
	MatchID             uint                 `json:"match_id"`
	User                models.PublicProfile `json:"user"`
	LastMessageText     string               `json:"last_message_text"`
	LastMessageSenderID *uint                `json:"last_message_sender_id,omitempty"`
	LastMessageAt       *time.Time           `json:"last_message_at,omitempty"`
	UnreadCount         int                  `json:"unread_count"`
	MatchedAt           time.Time            `json:"matched_at"`
}

// List returns the caller's matches, most recently active first.
func (s *MatchService) List(ctx context.Context, userID uint) ([]MatchSummary, error) {
	matches, err := s.matches.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	summaries := make([]MatchSummary, 0, len(matches))
	for i := range matches {
		m := &matches[i]
		other := m.UserA
		if m.UserAID == userID {
			other = m.UserB
		}
		summaries = append(summaries, MatchSummary{
			MatchID:             m.ID,
			User:                other.Public(now),
			LastMessageText:     m.LastMessageText,
			LastMessageSenderID: m.LastMessageSenderID,
			LastMessageAt:       m.LastMessageAt,
			UnreadCount:         m.UnreadFor(userID),
			MatchedAt:           m.CreatedAt,
		})
	}
	return summaries, nil
}

// Get returns a match the user participates in.
func (s *MatchService) Get(ctx context.Context, userID, matchID uint) (*models.Match, error) {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.Involves(userID) {
		return nil, models.NewUnauthorizedError("You are not part of this match")
	}
	return match, nil
}

// Unmatch removes a match the user participates in, along with its messages
// and both like edges so either side can resurface in discovery.
func (s *MatchService) Unmatch(ctx context.Context, userID, matchID uint) (*models.Match, error) {
	match, err := s.Get(ctx, userID, matchID)
	if err != nil {
		return nil, err
	}
	if err := s.matches.Delete(ctx, matchID); err != nil {
		return nil, err
	}
	return match, nil
}
