// Package validation contains input validation helpers shared by services.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

const (
	minPasswordLen = 12
	maxPasswordLen = 128
	maxNameLen     = 50
	maxBioLen      = 500
	minAdultAge    = 18
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var allowedGenders = map[string]struct{}{
	"male":   {},
	"female": {},
	"other":  {},
}

// ValidateEmail checks basic email shape and length.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > 254 {
		return fmt.Errorf("email too long")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidatePassword enforces length and character class requirements.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("password must be at most %d characters", maxPasswordLen)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return fmt.Errorf("password must contain upper and lower case letters, a digit and a special character")
	}
	return nil
}

// ValidateName checks a first or last name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("name too long (max %d characters)", maxNameLen)
	}
	return nil
}

// ValidateBio checks profile bio length.
func ValidateBio(bio string) error {
	if len(bio) > maxBioLen {
		return fmt.Errorf("bio too long (max %d characters)", maxBioLen)
	}
	return nil
}

// ValidateGender checks a profile gender value.
func ValidateGender(gender string) error {
	if _, ok := allowedGenders[gender]; !ok {
		return fmt.Errorf("gender must be one of male, female or other")
	}
	return nil
}

// ValidateBirthDate requires a plausible date of birth for an adult.
func ValidateBirthDate(dob, now time.Time) error {
	if dob.IsZero() {
		return fmt.Errorf("date of birth is required")
	}
	if dob.After(now) {
		return fmt.Errorf("date of birth is in the future")
	}
	if now.Year()-dob.Year() < minAdultAge {
		return fmt.Errorf("you must be at least %d years old", minAdultAge)
	}
	if now.Year()-dob.Year() > 120 {
		return fmt.Errorf("invalid date of birth")
	}
	return nil
}

// ValidateCoordinates checks latitude/longitude bounds.
func ValidateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	return nil
}
