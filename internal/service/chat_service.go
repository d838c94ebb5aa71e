package service

import (
	"context"
	"strings"

	"pwani/internal/models"
	"pwani/internal/observability"
	"pwani/internal/repository"
)

const maxMessageLen = 2000

// ChatService implements messaging within matches.
type ChatService struct {
	matches  repository.MatchRepository
	messages repository.MessageRepository
}

// NewChatService returns a new ChatService.
func NewChatService(matches repository.MatchRepository, messages repository.MessageRepository) *ChatService {
	return &ChatService{matches: matches, messages: messages}
}

func (s *ChatService) authorize(ctx context.Context, userID, matchID uint) (*models.Match, error) {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.Involves(userID) {
		return nil, models.NewUnauthorizedError("You are not part of this match")
	}
	return match, nil
}

// SendMessage stores a message in a match conversation the sender belongs to.
func (s *ChatService) SendMessage(ctx context.Context, senderID, matchID uint, body, kind string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, models.NewValidationError("Message body is required")
	}
	if len(body) > maxMessageLen {
		return nil, models.NewValidationError("Message too long (max 2000 characters)")
	}
	if kind == "" {
		kind = "text"
	}

	if _, err := s.authorize(ctx, senderID, matchID); err != nil {
		return nil, err
	}

	message := &models.Message{
		MatchID:  matchID,
		SenderID: senderID,
		Body:     body,
		Kind:     kind,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, err
	}

	observability.MessagesTotal.WithLabelValues(kind).Inc()
	return message, nil
}

// ListMessages returns a page of a conversation and marks the peer's messages
// as read for the caller.
func (s *ChatService) ListMessages(ctx context.Context, userID, matchID uint, limit, offset int) ([]models.Message, error) {
	if _, err := s.authorize(ctx, userID, matchID); err != nil {
		return nil, err
	}

	messages, err := s.messages.ListByMatch(ctx, matchID, limit, offset)
	if err != nil {
		return nil, err
	}

	if err := s.messages.MarkRead(ctx, matchID, userID); err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkRead zeroes the caller's unread counter for a conversation.
func (s *ChatService) MarkRead(ctx context.Context, userID, matchID uint) error {
	if _, err := s.authorize(ctx, userID, matchID); err != nil {
		return err
	}
	return s.messages.MarkRead(ctx, matchID, userID)
}

// DeleteMessage removes a message the caller sent.
func (s *ChatService) DeleteMessage(ctx context.Context, userID, matchID, messageID uint) error {
	if _, err := s.authorize(ctx, userID, matchID); err != nil {
		return err
	}

	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if message.MatchID != matchID {
		return models.NewNotFoundError("Message", messageID)
	}
	if message.SenderID != userID {
		return models.NewUnauthorizedError("You can only delete your own messages")
	}
	return s.messages.Delete(ctx, messageID)
}

// UnreadTotal sums the caller's unread counters across all matches.
func (s *ChatService) UnreadTotal(ctx context.Context, userID uint) (int64, error) {
	return s.messages.UnreadTotal(ctx, userID)
}

// AuthorizeTyping verifies the caller may emit a typing event in a match.
func (s *ChatService) AuthorizeTyping(ctx context.Context, userID, matchID uint) (*models.Match, error) {
	return s.authorize(ctx, userID, matchID)
}
