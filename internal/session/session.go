// Package session tracks revoked access tokens between logout and natural expiry.
package session

import (
	"context"
	"time"
)

// Revoker marks issued tokens invalid ahead of their expiry.
type Revoker interface {
	// Revoke blocks a token id for the given duration.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	// Revoked reports whether the token id has been revoked.
	Revoked(ctx context.Context, jti string) (bool, error)
}
