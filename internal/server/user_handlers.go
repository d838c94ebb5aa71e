// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"errors"

	"pwani/internal/models"
	"pwani/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/auth/profile
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	user, err := s.userService.GetUserByID(c.Context(), userID)
	if err != nil {
		status := fiber.StatusInternalServerError
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == "NOT_FOUND" {
			status = fiber.StatusNotFound
		}
		return models.RespondWithError(c, status, err)
	}

	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/auth/profile
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		FirstName         string             `json:"first_name"`
		LastName          string             `json:"last_name"`
		Gender            string             `json:"gender"`
		Bio               *string            `json:"bio"`
		Photos            *models.StringList `json:"photos"`
		Interests         *models.StringList `json:"interests"`
		PrefGenders       *models.StringList `json:"pref_genders"`
		PrefAgeMin        *int               `json:"pref_age_min"`
		PrefAgeMax        *int               `json:"pref_age_max"`
		PrefMaxDistanceKm *int               `json:"pref_max_distance_km"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(c.Context(), service.UpdateProfileInput{
		UserID:            userID,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Gender:            req.Gender,
		Bio:               req.Bio,
		Photos:            req.Photos,
		Interests:         req.Interests,
		PrefGenders:       req.PrefGenders,
		PrefAgeMin:        req.PrefAgeMin,
		PrefAgeMax:        req.PrefAgeMax,
		PrefMaxDistanceKm: req.PrefMaxDistanceKm,
	})
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

	return c.JSON(user)
}

// UpdateLocation handles PUT /api/users/location
func (s *Server) UpdateLocation(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Latitude == nil || req.Longitude == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Latitude and longitude are required"))
	}

	if err := s.userService.UpdateLocation(c.Context(), userID, *req.Latitude, *req.Longitude); err != nil {
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

	return c.JSON(fiber.Map{"message": "Location updated"})
}

// SearchUsers handles GET /api/users/search/:query
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	query := c.Params("query")

	pg := parsePagination(c, 20)
	profiles, err := s.userService.Search(c.Context(), userID, query, pg.Limit)
	if err != nil {
		status := fiber.StatusInternalServerError
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == "VALIDATION_ERROR" {
			status = fiber.StatusBadRequest
		}
		return models.RespondWithError(c, status, err)
	}

	return c.JSON(profiles)
}

// GetUserProfile handles GET /api/users/:userId
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	profile, err := s.userService.GetPublicProfile(c.Context(), userID, targetID)
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

	return c.JSON(profile)
}
