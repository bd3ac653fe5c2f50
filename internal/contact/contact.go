// Package contact validates the demo contact form. Nothing is stored or delivered.
package contact

import (
	"errors"
	"regexp"
	"strings"

	"recipe-finder/internal/domain"
)

// Validation failures.
var (
	ErrIncomplete   = errors.New("contact: missing field")
	ErrInvalidEmail = errors.New("contact: invalid email")
)

// Form copy.
const (
	IncompleteMessage   = "Please fill in all fields."
	InvalidEmailMessage = "Please enter a valid email address."
	SuccessMessage      = "Message sent successfully! (Demo mode)"
)

// Message returns the copy shown to the user for a Validate error.
func Message(err error) string {
	switch {
	case err == nil:
		return SuccessMessage
	case errors.Is(err, ErrIncomplete):
		return IncompleteMessage
	case errors.Is(err, ErrInvalidEmail):
		return InvalidEmailMessage
	default:
		return err.Error()
	}
}

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// Normalize trims every field.
func Normalize(m domain.ContactMessage) domain.ContactMessage {
	return domain.ContactMessage{
		Name:    strings.TrimSpace(m.Name),
		Email:   strings.TrimSpace(m.Email),
		Message: strings.TrimSpace(m.Message),
	}
}

// Complete reports whether all three fields are present, as the endpoint checks them.
func Complete(m domain.ContactMessage) bool {
	return m.Name != "" && m.Email != "" && m.Message != ""
}

// Validate applies the form rules to an already normalized message.
func Validate(m domain.ContactMessage) error {
	if !Complete(m) {
		return ErrIncomplete
	}
	if !emailPattern.MatchString(m.Email) {
		return ErrInvalidEmail
	}
	return nil
}
