package server

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"pwani/internal/models"
)

// Event type constants prevent typos in event names.
const (
	EventMatchCreated      = "match_created"
	EventMatchRemoved      = "match_removed"
	EventLikeReceived      = "like_received"
	EventSuperLikeReceived = "superlike_received"
	EventMessageReceived   = "message_received"
	EventPresenceChanged   = "presence_changed"
)

func (s *Server) publishUserEvent(userID uint, eventType string, payload map[string]interface{}) {
	event := map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to marshal %s event: %v", eventType, err)
		return
	}
	message := string(eventJSON)
	if s.hub != nil {
		s.hub.Broadcast(userID, message)
	}
	if s.notifier != nil {
		if err := s.notifier.PublishUser(context.Background(), userID, message); err != nil {
			log.Printf("failed to publish %s event to user %d: %v", eventType, userID, err)
		}
	}
}

// emitMatchCreated notifies both participants that a mutual like closed into
// a match. Each side receives the other's public profile.
func (s *Server) emitMatchCreated(ctx context.Context, match *models.Match) {
	userA, errA := s.userRepo.GetByID(ctx, match.UserAID)
	userB, errB := s.userRepo.GetByID(ctx, match.UserBID)
	if errA != nil || errB != nil {
		log.Printf("failed to load participants for match %d event: %v %v", match.ID, errA, errB)
		return
	}

	now := nowUTC()
	createdAt := now.Format(time.RFC3339Nano)
	s.publishUserEvent(match.UserAID, EventMatchCreated, map[string]interface{}{
		"match_id":   match.ID,
		"user":       userB.Public(now),
		"created_at": createdAt,
	})
	s.publishUserEvent(match.UserBID, EventMatchCreated, map[string]interface{}{
		"match_id":   match.ID,
		"user":       userA.Public(now),
		"created_at": createdAt,
	})
}
