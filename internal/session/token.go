package session

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/gophsignin/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidSession = errors.New("invalid session record")

// Claims is the payload of the current-session record.
type Claims struct {
	jwt.RegisteredClaims
	User models.User `json:"user"`
}

// encodeSession signs user into an HS256 token. A zero lifetime produces a
// token without expiry.
func encodeSession(user *models.User, key []byte, now time.Time, lifetime time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  user.ID,
			IssuedAt: jwt.NewNumericDate(now),
		},
		User: *user,
	}
	if lifetime > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(lifetime))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// decodeSession verifies the signature and expiry of token against now.
func decodeSession(token string, key []byte, now time.Time) (*models.User, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidSession, err)
	}
	if !parsed.Valid || claims.Subject != claims.User.ID {
		return nil, ErrInvalidSession
	}

	return &claims.User, nil
}
