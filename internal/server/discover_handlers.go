// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"errors"
	"strconv"

	"pwani/internal/models"
	"pwani/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Discover handles GET /api/discover.
// Query parameters: lat, lng, max_distance (km), page, limit. Coordinates
// override the requester's stored location for this request only.
func (s *Server) Discover(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	opts := service.DiscoverOptions{
		Page:  c.QueryInt("page", 1),
		Limit: c.QueryInt("limit", 20),
	}

	lat, latErr := queryFloat(c, "lat")
	lng, lngErr := queryFloat(c, "lng")
	if latErr != nil || lngErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("lat and lng must be numeric"))
	}
	if (lat == nil) != (lng == nil) {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("lat and lng must be provided together"))
	}
	opts.Lat = lat
	opts.Lng = lng

	maxDistance, err := queryFloat(c, "max_distance")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("max_distance must be numeric"))
	}
	if maxDistance != nil && *maxDistance <= 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("max_distance must be positive"))
	}
	opts.MaxDistanceKm = maxDistance

	profiles, pagination, err := s.discoveryService.Feed(c.Context(), userID, opts)
	if err != nil {
		status := fiber.StatusInternalServerError
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			switch appErr.Code {
			case "VALIDATION_ERROR":
				status = fiber.StatusBadRequest
			case "NOT_FOUND":
				status = fiber.StatusNotFound
			}
		}
		return models.RespondWithError(c, status, err)
	}

	return c.JSON(fiber.Map{
		"users":      profiles,
		"pagination": pagination,
	})
}

// queryFloat parses an optional float query parameter. Returns nil when absent.
func queryFloat(c *fiber.Ctx, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
