package validation

import (
	"regexp"
	"unicode"

	"github.com/dmitrijs2005/gophsignin/internal/models"
)

var (
	EmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	PhonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
)

// StrongPassword requires at least one upper-case letter, one lower-case
// letter and one digit.
func StrongPassword(s string) bool {
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// LoginRules is the rule set of the sign-in form.
func LoginRules() Rules {
	return Rules{
		models.FieldEmail: {
			Required: true,
			Pattern:  EmailPattern,
			Message:  "Please enter a valid email address",
		},
		models.FieldPassword: {
			Required: true,
			Message:  "Password is required",
		},
	}
}

// RegisterRules is the rule set of the account-setup form.
func RegisterRules() Rules {
	return Rules{
		models.FieldEmail: {
			Required: true,
			Pattern:  EmailPattern,
			Message:  "Please enter a valid email address",
		},
		models.FieldPassword: {
			Required:  true,
			MinLength: 8,
			MaxLength: 128,
			Custom:    StrongPassword,
			Message:   "Password must be at least 8 characters with upper-case, lower-case and a number",
		},
		models.FieldConfirmPassword: {
			Required: true,
			Match:    models.FieldPassword,
			Message:  "Passwords do not match",
		},
		models.FieldFirstName: {
			Required:  true,
			MaxLength: 50,
			Message:   "First name is required",
		},
		models.FieldLastName: {
			Required:  true,
			MaxLength: 50,
			Message:   "Last name is required",
		},
		models.FieldPhoneNumber: {
			Required: true,
			Pattern:  PhonePattern,
			Message:  "Please enter a valid phone number",
		},
	}
}
