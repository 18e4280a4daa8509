package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/whereabouts-app/whereabouts/internal/model"
)

// ShareRepo implements ShareRepository using PostgreSQL.
type ShareRepo struct{ db *DB }

// NewShareRepo constructs a share repository.
func NewShareRepo(db *DB) *ShareRepo { return &ShareRepo{db: db} }

// Upsert stores one ciphertext per recipient. The edge check is part of the
// insert statement, so a recipient removed mid-publish is silently skipped
// rather than racing the removal's purge.
func (r *ShareRepo) Upsert(ctx context.Context, fromID uuid.UUID, shares []model.ShareUpload) (stored int, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const q = `
INSERT INTO location_shares (from_id, to_id, payload)
SELECT $1, $2, $3
WHERE EXISTS (SELECT 1 FROM contacts WHERE owner_id=$1 AND peer_id=$2)
ON CONFLICT (from_id, to_id) DO UPDATE SET payload=EXCLUDED.payload, updated_at=now()`

	for _, s := range shares {
		tag, execErr := tx.Exec(ctx, q, fromID, s.ToID, s.Payload)
		if execErr != nil {
			err = execErr
			return 0, err
		}
		stored += int(tag.RowsAffected())
	}
	return stored, nil
}

// SharesFor returns the latest ciphertext from every current sender.
func (r *ShareRepo) SharesFor(ctx context.Context, userID uuid.UUID) ([]model.EncryptedShare, error) {
	const q = `
SELECT from_id, to_id, payload, updated_at
FROM location_shares
WHERE to_id = $1
ORDER BY updated_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EncryptedShare
	for rows.Next() {
		var s model.EncryptedShare
		if err := rows.Scan(&s.FromID, &s.ToID, &s.Payload, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteBetween purges both directions for a pair.
func (r *ShareRepo) DeleteBetween(ctx context.Context, a, b uuid.UUID) error {
	const q = `
DELETE FROM location_shares
WHERE (from_id=$1 AND to_id=$2) OR (from_id=$2 AND to_id=$1)`
	_, err := r.db.Pool.Exec(ctx, q, a, b)
	return err
}
