package service

import (
	"context"
	"time"

	"pwani/internal/models"
	"pwani/internal/repository"
	"pwani/internal/validation"
)

// UserService exposes profile reads and updates.
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// UpdateProfileInput carries the mutable profile fields. Nil/empty fields are
// left untouched.
type UpdateProfileInput struct {
	UserID            uint
	FirstName         string
	LastName          string
	Bio               *string
	Gender            string
	Photos            *models.StringList
	Interests         *models.StringList
	PrefAgeMin        *int
	PrefAgeMax        *int
	PrefMaxDistanceKm *int
	PrefGenders       *models.StringList
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetPublicProfile returns another user's public view.
func (s *UserService) GetPublicProfile(ctx context.Context, viewerID, targetID uint) (*models.PublicProfile, error) {
	if viewerID == targetID {
		return nil, models.NewValidationError("Use the profile endpoint for your own profile")
	}
	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	profile := user.Public(time.Now())
	return &profile, nil
}

// UpdateProfile applies the input and marks the profile complete.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.FirstName != "" {
		if err := validation.ValidateName(in.FirstName); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.FirstName = in.FirstName
	}
	if in.LastName != "" {
		if err := validation.ValidateName(in.LastName); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.LastName = in.LastName
	}
	if in.Bio != nil {
		if err := validation.ValidateBio(*in.Bio); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Bio = *in.Bio
	}
	if in.Gender != "" {
		if err := validation.ValidateGender(in.Gender); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Gender = in.Gender
	}
	if in.Photos != nil {
		if len(*in.Photos) > 9 {
			return nil, models.NewValidationError("Too many photos (max 9)")
		}
		user.Photos = *in.Photos
	}
	if in.Interests != nil {
		if len(*in.Interests) > 20 {
			return nil, models.NewValidationError("Too many interests (max 20)")
		}
		user.Interests = *in.Interests
	}
	if in.PrefAgeMin != nil {
		if *in.PrefAgeMin < 18 {
			return nil, models.NewValidationError("Minimum preferred age is 18")
		}
		user.PrefAgeMin = *in.PrefAgeMin
	}
	if in.PrefAgeMax != nil {
		if *in.PrefAgeMax < 18 {
			return nil, models.NewValidationError("Maximum preferred age is 18 or above")
		}
		user.PrefAgeMax = *in.PrefAgeMax
	}
	if user.PrefAgeMax < user.PrefAgeMin {
		return nil, models.NewValidationError("Preferred age range is inverted")
	}
	if in.PrefMaxDistanceKm != nil {
		if *in.PrefMaxDistanceKm <= 0 || *in.PrefMaxDistanceKm > 20000 {
			return nil, models.NewValidationError("Preferred distance must be between 1 and 20000 km")
		}
		user.PrefMaxDistanceKm = *in.PrefMaxDistanceKm
	}
	if in.PrefGenders != nil {
		for _, g := range *in.PrefGenders {
			if err := validation.ValidateGender(g); err != nil {
				return nil, models.NewValidationError(err.Error())
			}
		}
		user.PrefGenders = *in.PrefGenders
	}

	// A saved profile counts as complete: registration already required the
	// identity fields.
	user.IsProfileComplete = true

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateLocation stores the user's last reported coordinate.
func (s *UserService) UpdateLocation(ctx context.Context, userID uint, lat, lng float64) error {
	if err := validation.ValidateCoordinates(lat, lng); err != nil {
		return models.NewValidationError(err.Error())
	}
	return s.userRepo.UpdateLocation(ctx, userID, lat, lng)
}

// Search finds complete profiles by name, bio or interest substring.
func (s *UserService) Search(ctx context.Context, viewerID uint, query string, limit int) ([]models.PublicProfile, error) {
	if len(query) < 2 {
		return nil, models.NewValidationError("Search query must be at least 2 characters")
	}
	users, err := s.userRepo.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	profiles := make([]models.PublicProfile, 0, len(users))
	for i := range users {
		if users[i].ID == viewerID {
			continue
		}
		profiles = append(profiles, users[i].Public(now))
	}
	return profiles, nil
}
