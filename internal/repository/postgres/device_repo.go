package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/whereabouts-app/whereabouts/internal/errs"
	"github.com/whereabouts-app/whereabouts/internal/model"
)

// DeviceRepo implements DeviceRepository using PostgreSQL.
type DeviceRepo struct{ db *DB }

// NewDeviceRepo constructs a device repository.
func NewDeviceRepo(db *DB) *DeviceRepo { return &DeviceRepo{db: db} }

// Register inserts a device row.
func (r *DeviceRepo) Register(ctx context.Context, d *model.Device) error {
	const q = `
INSERT INTO devices (id, user_id, name, platform)
VALUES ($1, $2, $3, $4)`
	_, err := r.db.Pool.Exec(ctx, q, d.ID, d.UserID, d.Name, d.Platform)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	if isForeignKeyViolation(err) {
		return errs.ErrNotFound
	}
	return err
}

// List returns the user's devices, most recently seen first.
func (r *DeviceRepo) List(ctx context.Context, userID uuid.UUID) ([]model.Device, error) {
	const q = `
SELECT id, user_id, name, platform, created_at, last_seen
FROM devices WHERE user_id=$1
ORDER BY last_seen DESC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Device
	for rows.Next() {
		var d model.Device
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Platform, &d.CreatedAt, &d.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Revoke removes a device.
func (r *DeviceRepo) Revoke(ctx context.Context, userID, deviceID uuid.UUID) error {
	const q = `DELETE FROM devices WHERE id=$1 AND user_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, deviceID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Touch updates last_seen. Unknown devices are ignored.
func (r *DeviceRepo) Touch(ctx context.Context, userID, deviceID uuid.UUID) error {
	const q = `UPDATE devices SET last_seen=now() WHERE id=$1 AND user_id=$2`
	_, err := r.db.Pool.Exec(ctx, q, deviceID, userID)
	return err
}
