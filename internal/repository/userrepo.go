// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/whereabouts-app/whereabouts/internal/model"
)

// UserRepository provides account storage.
type UserRepository interface {
	// Create inserts a new user. Duplicate email yields ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by lowercased email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// SetPublicKey stores the user's share-encryption key, overwriting any
	// previous value (single latest key, rotation allowed).
	SetPublicKey(ctx context.Context, id uuid.UUID, publicKey []byte) error
}
