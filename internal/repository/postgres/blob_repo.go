package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/whereabouts-app/whereabouts/internal/errs"
	"github.com/whereabouts-app/whereabouts/internal/model"
)

// BlobRepo implements BlobRepository using PostgreSQL.
type BlobRepo struct{ db *DB }

// NewBlobRepo constructs a versioned blob repository.
func NewBlobRepo(db *DB) *BlobRepo { return &BlobRepo{db: db} }

// Get returns the current blob for (user, kind).
func (r *BlobRepo) Get(ctx context.Context, userID uuid.UUID, kind model.BlobKind) (*model.VersionedBlob, error) {
	const q = `
SELECT user_id, kind, payload, ver, updated_at
FROM versioned_blobs WHERE user_id=$1 AND kind=$2`
	var b model.VersionedBlob
	err := r.db.Pool.QueryRow(ctx, q, userID, kind).
		Scan(&b.UserID, &b.Kind, &b.Payload, &b.Ver, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Set writes the blob under compare-and-set on version. expectedVer 0 means
// create; two racing creates collide on the primary key and the loser gets
// ErrVersionConflict like any stale writer.
func (r *BlobRepo) Set(
	ctx context.Context, userID uuid.UUID, kind model.BlobKind, payload []byte, expectedVer int64,
) (newVer int64, err error) {
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

	const sel = `SELECT ver FROM versioned_blobs WHERE user_id=$1 AND kind=$2 FOR UPDATE`
	const ins = `INSERT INTO versioned_blobs (user_id, kind, payload, ver) VALUES ($1, $2, $3, $4)`
	const upd = `UPDATE versioned_blobs SET payload=$3, ver=$4, updated_at=now() WHERE user_id=$1 AND kind=$2`

	var curVer int64
	scanErr := tx.QueryRow(ctx, sel, userID, kind).Scan(&curVer)
	switch {
	case scanErr == nil:
		if curVer != expectedVer {
			return 0, errs.ErrVersionConflict
		}
		newVer = curVer + 1
		if _, err = tx.Exec(ctx, upd, userID, kind, payload, newVer); err != nil {
			return 0, err
		}
	case errors.Is(scanErr, pgx.ErrNoRows):
		if expectedVer != 0 {
			return 0, errs.ErrVersionConflict
		}
		newVer = 1
		if _, err = tx.Exec(ctx, ins, userID, kind, payload, newVer); err != nil {
			if isUniqueViolation(err) {
				err = errs.ErrVersionConflict
			}
			return 0, err
		}
	default:
		return 0, scanErr
	}
	return newVer, nil
}
