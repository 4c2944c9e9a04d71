// Package session persists the user table, the current-session record and
// the failed-login bookkeeping of the sign-in core.
package session

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophsignin/internal/models"
)

// Store is the durable state the auth machine depends on.
//
// Getters return a nil value and a nil error when nothing is stored.
// Callers decide whether a read error is fatal; the auth machine treats
// every read error as "not found".
type Store interface {
	GetUser(ctx context.Context, id string) (*models.UserRecord, error)
	PutUser(ctx context.Context, rec *models.UserRecord) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]*models.UserRecord, error)

	GetCurrentSession(ctx context.Context) (*models.User, error)
	SetCurrentSession(ctx context.Context, user *models.User) error
	ClearCurrentSession(ctx context.Context) error

	GetFailureCount(ctx context.Context) (int, error)
	SetFailureCount(ctx context.Context, n int) error
	GetLockoutDeadline(ctx context.Context) (*time.Time, error)
	SetLockoutDeadline(ctx context.Context, until *time.Time) error
}
