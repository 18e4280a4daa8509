package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/whereabouts-app/whereabouts/internal/model"
)

// DeviceRepository tracks registered client installations.
type DeviceRepository interface {
	// Register inserts a device row.
	Register(ctx context.Context, d *model.Device) error
	// List returns the user's devices, most recently seen first.
	List(ctx context.Context, userID uuid.UUID) ([]model.Device, error)
	// Revoke removes a device; ErrNotFound when it does not exist.
	Revoke(ctx context.Context, userID, deviceID uuid.UUID) error
	// Touch updates last_seen; unknown devices are ignored.
	Touch(ctx context.Context, userID, deviceID uuid.UUID) error
}
