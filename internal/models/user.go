// Package models defines the records shared by the sign-in core.
package models

import (
	"strings"
	"time"
)

// User is an account created by registration. It is immutable after creation.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	PhoneNumber string    `json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserRecord is the stored form of a User. PasswordHash never leaves the
// session store and the auth machine.
type UserRecord struct {
	User
	PasswordHash string `json:"password_hash"`
}

// Credentials is the email/password pair typed at login and kept in the vault.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterData is the registration form payload.
type RegisterData struct {
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
	PhoneNumber     string
}

// Field names shared by the form rule sets and the CLI.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldFirstName       = "firstName"
	FieldLastName        = "lastName"
	FieldPhoneNumber     = "phoneNumber"
)

// Values returns the payload keyed by form field name.
func (d RegisterData) Values() map[string]string {
	return map[string]string{
		FieldEmail:           d.Email,
		FieldPassword:        d.Password,
		FieldConfirmPassword: d.ConfirmPassword,
		FieldFirstName:       d.FirstName,
		FieldLastName:        d.LastName,
		FieldPhoneNumber:     d.PhoneNumber,
	}
}

// RegisterDataFromValues is the inverse of Values.
func RegisterDataFromValues(v map[string]string) RegisterData {
	return RegisterData{
		Email:           v[FieldEmail],
		Password:        v[FieldPassword],
		ConfirmPassword: v[FieldConfirmPassword],
		FirstName:       v[FieldFirstName],
		LastName:        v[FieldLastName],
		PhoneNumber:     v[FieldPhoneNumber],
	}
}

// Values returns the credentials keyed by form field name.
func (c Credentials) Values() map[string]string {
	return map[string]string{
		FieldEmail:    c.Email,
		FieldPassword: c.Password,
	}
}

// NormalizeEmail is the case-insensitive key users are matched on.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
