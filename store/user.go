package store

import (
	"context"
	"errors"
	"fmt"

	"sealroom/models"
)

var (
	// ErrConflictedUser is returned when a user with the username already exists.
	ErrConflictedUser = errors.New("user already exists")
)

// UserUpdateInput represents the profile fields a user may change.
type UserUpdateInput struct {
	Name   string `json:"name" validate:"required,max=50"`
	Avatar string `json:"avatar" validate:"omitempty,max=500"`
}

func (i *UserUpdateInput) Validate() error {
	if err := validate.Struct(i); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

type UserStore interface {
	CreateUser(ctx context.Context, user models.User) error

	// GetUserByUsername returns the user without secret fields.
	// If the user is not found, it returns nil.
	GetUserByUsername(ctx context.Context, username string) (*models.UserWithoutSecrets, error)

	GetUsersByUsernames(ctx context.Context, usernames ...string) ([]models.UserWithoutSecrets, error)

	// UpdateUser replaces the user's profile fields and returns the updated
	// user. If the user is not found, it returns nil.
	UpdateUser(ctx context.Context, username string, input UserUpdateInput) (*models.UserWithoutSecrets, error)

	// ListUsers returns every registered user, ordered by username.
	ListUsers(ctx context.Context) ([]models.UserWithoutSecrets, error)

	ComparePassword(ctx context.Context, username, password string) (bool, error)

	// SetOnline flips the user's online flag and touches last-seen.
	SetOnline(ctx context.Context, username string, online bool) error
}
