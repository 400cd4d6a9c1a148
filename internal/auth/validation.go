package auth

import (
	"regexp"

	"github.com/MediSynth-io/casetracker/internal/models"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,50}$`)
)

// ValidateEmail checks if an email is valid
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email) && len(email) < 255
}

// ValidateUsername checks that a username is 3-50 letters, digits, '_', '.' or '-'.
func ValidateUsername(username string) bool {
	return usernameRegex.MatchString(username)
}

// ValidatePassword checks that a password is non-empty and fits bcrypt's input limit.
func ValidatePassword(password string) bool {
	return len(password) > 0 && len(password) <= MaxPasswordLength
}

// ValidateRegistration reports every invalid field of a registration request.
func ValidateRegistration(reg models.Registration) error {
	var verr models.ValidationError
	if !ValidateUsername(reg.Username) {
		verr.Add("username", "must be 3-50 characters of letters, digits, '_', '.' or '-'")
	}
	if !ValidateEmail(reg.Email) {
		verr.Add("email", "must be a valid email address")
	}
	if !ValidatePassword(reg.Password) {
		verr.Add("password", "must be between 1 and 72 bytes")
	}
	return verr.OrNil()
}
