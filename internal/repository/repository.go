// Package repository declares the storage contracts the service layer
// depends on. Implementations live in the sqlite and postgres subpackages.
package repository

import (
	"context"

	"github.com/sakif/auth-gateway/internal/model"
)

// UserRepository is the credential store.
//
// FindByEmail and FindByID return an error wrapping apperror.ErrNotFound when
// no row matches. Create fills in ID and CreatedAt and returns an error
// wrapping apperror.ErrDuplicateEmail when the email is taken; the check is
// enforced by the storage engine, so two racing inserts cannot both succeed.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
}

// Pinger is implemented by stores that can report whether their backend is
// reachable. Used by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}
