package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/whereabouts-app/whereabouts/internal/errs"
	"github.com/whereabouts-app/whereabouts/internal/model"
	"github.com/whereabouts-app/whereabouts/internal/repository"
)

// DeviceService tracks where a user's identity key lives.
type DeviceService interface {
	// Register records a new client installation.
	Register(ctx context.Context, userID uuid.UUID, name, platform string) (*model.Device, error)
	// List returns the user's devices, most recently seen first.
	List(ctx context.Context, userID uuid.UUID) ([]model.Device, error)
	// Revoke removes a device registration.
	Revoke(ctx context.Context, userID, deviceID uuid.UUID) error
	// Touch bumps last_seen; unknown devices are ignored.
	Touch(ctx context.Context, userID, deviceID uuid.UUID) error
}

type DeviceServiceImpl struct {
	devices repository.DeviceRepository
}

// NewDeviceService constructs DeviceService.
func NewDeviceService(devices repository.DeviceRepository) *DeviceServiceImpl {
	return &DeviceServiceImpl{devices: devices}
}

// Register validates and inserts a device row.
func (s *DeviceServiceImpl) Register(ctx context.Context, userID uuid.UUID, name, platform string) (*model.Device, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("empty userID: %w", errs.ErrValidation)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty device name: %w", errs.ErrValidation)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	d := &model.Device{
		ID:       id,
		UserID:   userID,
		Name:     name,
		Platform: strings.TrimSpace(platform),
	}
	if err := s.devices.Register(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// List returns the user's devices.
func (s *DeviceServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]model.Device, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("empty userID: %w", errs.ErrValidation)
	}
	return s.devices.List(ctx, userID)
}

// Revoke removes the registration; unknown ids yield ErrNotFound. Lookups are
// always user-scoped, so one user can never touch another's rows.
func (s *DeviceServiceImpl) Revoke(ctx context.Context, userID, deviceID uuid.UUID) error {
	if userID == uuid.Nil || deviceID == uuid.Nil {
		return fmt.Errorf("empty id: %w", errs.ErrValidation)
	}
	return s.devices.Revoke(ctx, userID, deviceID)
}

// Touch bumps last_seen best-effort.
func (s *DeviceServiceImpl) Touch(ctx context.Context, userID, deviceID uuid.UUID) error {
	if userID == uuid.Nil || deviceID == uuid.Nil {
		return nil
	}
	return s.devices.Touch(ctx, userID, deviceID)
}
