package store

import (
	"context"
	"errors"
	"time"

	"sealroom/models"
)

var (
	ErrBadCredentials  = errors.New("invalid credentials")
	ErrUnauthenticated = errors.New("unauthenticated")
)

type AuthStore interface {
	// NewSession verifies the credentials and issues a session token.
	// The user is marked online.
	NewSession(ctx context.Context, username, password string) (token string, exp time.Time, user *models.UserWithoutSecrets, err error)

	// DestroySession invalidates the session token and marks the user offline.
	DestroySession(ctx context.Context, session models.Session) error

	// Session verifies a token and returns the session it represents.
	// Invalid, expired, or revoked tokens return ErrUnauthenticated.
	Session(ctx context.Context, token string) (*models.Session, error)
}
