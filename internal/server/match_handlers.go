// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"errors"
	"time"

	"pwani/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMatches handles GET /api/matches
func (s *Server) GetMatches(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	matches, err := s.matchService.List(c.Context(), userID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(matches)
}

// Unmatch handles DELETE /api/matches/:matchId.
// Removes the match, its messages and both like edges so neither side can
// immediately re-match without a fresh mutual like.
func (s *Server) Unmatch(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Locals("userID").(uint)
	matchID, err := s.parseID(c, "matchId")
	if err != nil {
		return nil
	}

	match, err := s.matchService.Unmatch(ctx, userID, matchID)
	if err != nil {
		status := fiber.StatusInternalServerError
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			switch appErr.Code {
			case "NOT_FOUND":
				status = fiber.StatusNotFound
			case "UNAUTHORIZED":
				status = fiber.StatusForbidden
			}
		}
		return models.RespondWithError(c, status, err)
	}

	// Tell the other side their conversation is gone.
	s.publishUserEvent(match.OtherUserID(userID), EventMatchRemoved, map[string]interface{}{
		"match_id":   matchID,
		"removed_at": time.Now().UTC().Format(time.RFC3339Nano),
	})

	return c.JSON(fiber.Map{"message": "Unmatched"})
}
