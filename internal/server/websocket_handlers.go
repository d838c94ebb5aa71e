// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"pwani/internal/middleware"
	"pwani/internal/notifications"
	"pwani/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler returns a websocket handler that registers connections with
// the notification Hub. Authentication is handled by route middleware and
// userID is read from connection locals.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		observability.WebSocketConnectionsTotal.Inc()
		defer observability.WebSocketConnectionsTotal.Dec()

		ctx := context.Background()

		userIDVal := conn.Locals("userID")
		uid, ok := userIDVal.(uint)
		if !ok {
			_ = conn.Close()
			return
		}

		if s.hub == nil {
			_ = conn.Close()
			return
		}

		// Register connection with scaling guardrails
		client, err := s.hub.Register(uid, conn)
		if err != nil {
			log.Printf("WebSocket Notification: Failed to register user %d: %v", uid, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		defer s.hub.UnregisterClient(client)
		s.consumeWSTicket(ctx, conn.Locals("wsTicket"))

		// Presence logic
		s.sendMatchesOnlineSnapshot(conn, uid)

		// Start pumps
		go client.WritePump()
		client.ReadPump()
	})
}

// notifyMatchesPresence tells everyone the user is matched with that their
// presence changed. Wired as the Hub's presence callbacks so the offline
// grace period is honored before an offline event goes out.
func (s *Server) notifyMatchesPresence(userID uint, status string) {
	ctx := context.Background()
	matchedIDs, err := s.matchRepo.MatchedUserIDs(ctx, userID)
	if err != nil {
		log.Printf("failed to load matches for presence event: %v", err)
		return
	}
	for _, peerID := range matchedIDs {
		s.publishUserEvent(peerID, EventPresenceChanged, map[string]interface{}{
			"user_id":    userID,
			"status":     status,
			"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// sendMatchesOnlineSnapshot sends the connecting user the set of their
// matches that are currently online.
func (s *Server) sendMatchesOnlineSnapshot(conn *websocket.Conn, userID uint) {
	if s.hub == nil {
		return
	}
	matchedIDs, err := s.matchRepo.MatchedUserIDs(context.Background(), userID)
	if err != nil {
		log.Printf("failed to load matches for online snapshot: %v", err)
		return
	}
	onlineIDs := make([]uint, 0, len(matchedIDs))
	for _, peerID := range matchedIDs {
		if s.hub.IsOnline(peerID) {
			onlineIDs = append(onlineIDs, peerID)
		}
	}
	msg, err := json.Marshal(map[string]interface{}{
		"type": "matches_online_snapshot",
		"payload": map[string]interface{}{
			"user_ids": onlineIDs,
		},
	})
	if err != nil {
		log.Printf("failed to marshal matches online snapshot: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		log.Printf("failed to write matches online snapshot: %v", err)
	}
}

// WebSocketChatHandler handles WebSocket connections for real-time chat
func (s *Server) WebSocketChatHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		observability.WebSocketConnectionsTotal.Inc()
		defer observability.WebSocketConnectionsTotal.Dec()

		ctx := context.Background()

		// Get userID from context locals (set by AuthRequired middleware)
		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			log.Printf("WebSocket Chat: Unauthenticated connection attempt")
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		userID := userIDVal.(uint)

		// Get user info for display name
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			log.Printf("WebSocket Chat: Failed to get user %d: %v", userID, err)
			_ = conn.Close()
			return
		}
		name := user.FirstName

		// Register user with ChatHub
		if s.chatHub == nil {
			_ = conn.Close()
			return
		}

		client, err := s.chatHub.Register(userID, conn)
		if err != nil {
			log.Printf("WebSocket Chat: Failed to register user %d: %v", userID, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		s.consumeWSTicket(ctx, conn.Locals("wsTicket"))

		// Define Incoming Message Handler
		client.IncomingHandler = func(c *notifications.Client, message []byte) {
			var incoming map[string]interface{}
			if err := json.Unmarshal(message, &incoming); err != nil {
				log.Printf("WebSocket: Invalid message format from user %d", userID)
				return
			}

			msgType, ok := incoming["type"].(string)
			if !ok {
				return
			}
			observability.WebSocketEventsTotal.WithLabelValues(msgType).Inc()

			matchIDFloat, hasMatchID := incoming["match_id"].(float64)
			if !hasMatchID {
				return
			}
			matchID := uint(matchIDFloat)

			switch msgType {
			case "join":
				// Join a match conversation after verifying membership
				if s.isMatchParticipant(ctx, userID, matchID) {
					s.chatHub.JoinMatch(userID, matchID)

					response := notifications.ChatEvent{
						Type:    "joined",
						MatchID: matchID,
						Payload: map[string]interface{}{"match_id": matchID},
					}
					responseJSON, _ := json.Marshal(response)
					c.TrySend(responseJSON)
				}

			case "leave":
				s.chatHub.LeaveMatch(userID, matchID)

			case "typing":
				// Typing indicator - limit to 10 per 10 seconds to prevent spam
				isTyping, _ := incoming["is_typing"].(bool)

				if s.notifier != nil && s.isMatchParticipant(ctx, userID, matchID) {
					id := fmt.Sprintf("user:%d", userID)
					allowed, _ := middleware.CheckRateLimit(ctx, s.redis, "typing", id, 10, 10*time.Second)
					if !allowed {
						return // Silently drop spammy typing indicators
					}

					if perr := s.notifier.PublishTypingIndicator(ctx, matchID, userID, name, isTyping); perr != nil {
						log.Printf("publish typing indicator error: %v", perr)
					}
				}

			case "message":
				// Send a message (alternative to the HTTP endpoint)
				body, _ := incoming["body"].(string)
				if body == "" {
					return
				}

				// Rate limit messages - same as HTTP (15 per minute)
				id := fmt.Sprintf("user:%d", userID)
				allowed, _ := middleware.CheckRateLimit(ctx, s.redis, "send_chat", id, 15, time.Minute)
				if !allowed {
					response := notifications.ChatEvent{
						Type: "error",
						Payload: map[string]string{
							"message": "Rate limit exceeded. Please wait a moment.",
						},
					}
					if respJSON, err := json.Marshal(response); err == nil {
						c.TrySend(respJSON)
					}
					return
				}

				msg, serr := s.chatService.SendMessage(ctx, userID, matchID, body, "text")
				if serr != nil {
					response := notifications.ChatEvent{
						Type:    "error",
						Payload: map[string]string{"message": serr.Error()},
					}
					if respJSON, err := json.Marshal(response); err == nil {
						c.TrySend(respJSON)
					}
					return
				}

				s.broadcastMessage(ctx, msg)

			case "read":
				// Mark the conversation as read and broadcast the receipt
				if rerr := s.chatService.MarkRead(ctx, userID, matchID); rerr != nil {
					return
				}
				if s.notifier != nil {
					if perr := s.notifier.PublishReadReceipt(ctx, matchID, userID); perr != nil {
						log.Printf("publish read receipt error: %v", perr)
					}
				}
			}
		}

		// Send welcome message
		welcome := notifications.ChatEvent{
			Type:    "connected",
			Payload: map[string]interface{}{"user_id": userID, "name": name},
		}
		if welcomeJSON, err := json.Marshal(welcome); err == nil {
			client.TrySend(welcomeJSON)
		}

		// Start write pump in a goroutine
		go client.WritePump()

		// Read pump runs in the main handler goroutine (blocking)
		client.ReadPump()

		s.chatHub.UnregisterClient(client)
	})
}

// isMatchParticipant checks if a user belongs to a match conversation
func (s *Server) isMatchParticipant(ctx context.Context, userID, matchID uint) bool {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return false
	}
	return match.Involves(userID)
}
