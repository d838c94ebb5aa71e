// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"errors"
	"time"

	"pwani/internal/models"

	"github.com/gofiber/fiber/v2"
)

// swipeErrorStatus maps swipe service errors onto HTTP statuses.
func swipeErrorStatus(err error) int {
	status := fiber.StatusInternalServerError
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case "VALIDATION_ERROR":
			status = fiber.StatusBadRequest
		case "NOT_FOUND":
			status = fiber.StatusNotFound
		case "CONFLICT":
			status = fiber.StatusConflict
		}
	}
	return status
}

// LikeUser handles POST /api/matches/like/:userId
func (s *Server) LikeUser(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Locals("userID").(uint)
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	result, err := s.swipeService.Like(ctx, userID, targetID)
	if err != nil {
		return models.RespondWithError(c, swipeErrorStatus(err), err)
	}

	if result.Matched && result.Match != nil {
		s.emitMatchCreated(ctx, result.Match)
	} else {
		// Target sees the like in their "likes you" inbox next refresh;
		// the realtime nudge carries no identity on purpose.
		s.publishUserEvent(targetID, EventLikeReceived, map[string]interface{}{
			"created_at": time.Now().UTC().Format(time.RFC3339Nano),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"matched": result.Matched,
		"match":   result.Match,
	})
}

// DislikeUser handles POST /api/matches/dislike/:userId
func (s *Server) DislikeUser(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	if err := s.swipeService.Dislike(c.Context(), userID, targetID); err != nil {
		return models.RespondWithError(c, swipeErrorStatus(err), err)
	}

	return c.JSON(fiber.Map{"message": "Disliked"})
}

// SuperLikeUser handles POST /api/matches/superlike/:userId.
// Superlikes are a premium feature controlled by the "superlikes" flag,
// which defaults to enabled when not configured.
func (s *Server) SuperLikeUser(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Locals("userID").(uint)
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	if !s.featureFlags.EnabledOrDefault("superlikes", userID, true) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("Superlikes are not available on your account"))
	}

	if err := s.swipeService.SuperLike(ctx, userID, targetID); err != nil {
		return models.RespondWithError(c, swipeErrorStatus(err), err)
	}

	s.publishUserEvent(targetID, EventSuperLikeReceived, map[string]interface{}{
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Superliked"})
}

// GetLikesReceived handles GET /api/matches/likes
func (s *Server) GetLikesReceived(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	profiles, err := s.swipeService.LikesReceived(c.Context(), userID)
	if err != nil {
		return models.RespondWithError(c, swipeErrorStatus(err), err)
	}

	return c.JSON(profiles)
}

// GetSuperLikesReceived handles GET /api/matches/superlikes
func (s *Server) GetSuperLikesReceived(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	profiles, err := s.swipeService.SuperLikesReceived(c.Context(), userID)
	if err != nil {
		return models.RespondWithError(c, swipeErrorStatus(err), err)
	}

	return c.JSON(profiles)
}
