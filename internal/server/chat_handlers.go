// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"pwani/internal/models"
	"pwani/internal/notifications"

	"github.com/gofiber/fiber/v2"
)

// chatErrorStatus maps chat service errors onto HTTP statuses.
func chatErrorStatus(err error) int {
	status := fiber.StatusInternalServerError
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case "VALIDATION_ERROR":
			status = fiber.StatusBadRequest
		case "NOT_FOUND":
			status = fiber.StatusNotFound
		case "UNAUTHORIZED":
			status = fiber.StatusForbidden
		}
	}
	return status
}

// SendMessage handles POST /api/matches/:matchId/messages
func (s *Server) SendMessage(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Locals("userID").(uint)
	matchID, err := s.parseID(c, "matchId")
	if err != nil {
		return nil
	}

	var req struct {
		Body string `json:"body"`
		Kind string `json:"kind"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	message, err := s.chatService.SendMessage(ctx, userID, matchID, req.Body, req.Kind)
	if err != nil {
		return models.RespondWithError(c, chatErrorStatus(err), err)
	}

	s.broadcastMessage(ctx, message)

	return c.Status(fiber.StatusCreated).JSON(message)
}

// GetMessages handles GET /api/matches/:matchId/messages
func (s *Server) GetMessages(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	matchID, err := s.parseID(c, "matchId")
	if err != nil {
		return nil
	}

	pg := parsePagination(c, 50)
	messages, err := s.chatService.ListMessages(c.Context(), userID, matchID, pg.Limit, pg.Offset)
	if err != nil {
		return models.RespondWithError(c, chatErrorStatus(err), err)
	}

	return c.JSON(messages)
}

// MarkConversationRead handles POST /api/matches/:matchId/read
func (s *Server) MarkConversationRead(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Locals("userID").(uint)
	matchID, err := s.parseID(c, "matchId")
	if err != nil {
		return nil
	}

	if err := s.chatService.MarkRead(ctx, userID, matchID); err != nil {
		return models.RespondWithError(c, chatErrorStatus(err), err)
	}

	if s.notifier != nil {
		if perr := s.notifier.PublishReadReceipt(ctx, matchID, userID); perr != nil {
			log.Printf("publish read receipt error: %v", perr)
		}
	}

	return c.JSON(fiber.Map{"message": "Conversation marked as read"})
}

// DeleteMessage handles DELETE /api/matches/:matchId/messages/:messageId
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Locals("userID").(uint)
	matchID, err := s.parseID(c, "matchId")
	if err != nil {
		return nil
	}
	messageID, err := s.parseID(c, "messageId")
	if err != nil {
		return nil
	}

	if err := s.chatService.DeleteMessage(ctx, userID, matchID, messageID); err != nil {
		return models.RespondWithError(c, chatErrorStatus(err), err)
	}

	if s.notifier != nil {
		event, merr := json.Marshal(notifications.ChatEvent{
			Type:    "message_deleted",
			MatchID: matchID,
			UserID:  userID,
			Payload: map[string]interface{}{"message_id": messageID},
		})
		if merr == nil {
			if perr := s.notifier.PublishChatMessage(ctx, matchID, string(event)); perr != nil {
				log.Printf("publish message deleted event error: %v", perr)
			}
		}
	}

	return c.JSON(fiber.Map{"message": "Message deleted"})
}

// GetUnreadCount handles GET /api/matches/unread/count
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	total, err := s.chatService.UnreadTotal(c.Context(), userID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(fiber.Map{"unread": total})
}

// Typing handles POST /api/matches/:matchId/typing
func (s *Server) Typing(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Locals("userID").(uint)
	matchID, err := s.parseID(c, "matchId")
	if err != nil {
		return nil
	}

	var req struct {
		IsTyping bool `json:"is_typing"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if _, err := s.chatService.AuthorizeTyping(ctx, userID, matchID); err != nil {
		return models.RespondWithError(c, chatErrorStatus(err), err)
	}

	if s.notifier != nil {
		name := ""
		if user, uerr := s.userRepo.GetByID(ctx, userID); uerr == nil {
			name = user.FirstName
		}
		if perr := s.notifier.PublishTypingIndicator(ctx, matchID, userID, name, req.IsTyping); perr != nil {
			log.Printf("publish typing indicator error: %v", perr)
		}
	}

	return c.JSON(fiber.Map{"message": "Typing indicator sent"})
}

// broadcastMessage fans a persisted message out to the match's chat channel
// and nudges the recipient's notification stream.
func (s *Server) broadcastMessage(ctx context.Context, message *models.Message) {
	name := ""
	if sender, err := s.userRepo.GetByID(ctx, message.SenderID); err == nil {
		name = sender.FirstName
	}

	if s.notifier != nil {
		event, err := json.Marshal(notifications.ChatEvent{
			Type:    "message",
			MatchID: message.MatchID,
			UserID:  message.SenderID,
			Name:    name,
			Payload: message,
		})
		if err != nil {
			log.Printf("marshal chat message event error: %v", err)
		} else if perr := s.notifier.PublishChatMessage(ctx, message.MatchID, string(event)); perr != nil {
			log.Printf("publish chat message error: %v", perr)
		}
	}

	// Badge-count nudge for the recipient even when they are not in the chat.
	if match, err := s.matchService.Get(ctx, message.SenderID, message.MatchID); err == nil {
		s.publishUserEvent(match.OtherUserID(message.SenderID), EventMessageReceived, map[string]interface{}{
			"match_id":   message.MatchID,
			"message_id": message.ID,
			"sent_at":    time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}
