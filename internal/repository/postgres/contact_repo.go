package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/whereabouts-app/whereabouts/internal/errs"
	"github.com/whereabouts-app/whereabouts/internal/model"
)

// ContactRepo implements ContactRepository using PostgreSQL.
type ContactRepo struct{ db *DB }

// NewContactRepo constructs a contact repository.
func NewContactRepo(db *DB) *ContactRepo { return &ContactRepo{db: db} }

// CreateRequest inserts a pending request. The insert itself carries the
// already-connected guard; the pending_pair unique index rejects a duplicate
// pending request in either direction.
func (r *ContactRepo) CreateRequest(ctx context.Context, req *model.ContactRequest) error {
	const q = `
INSERT INTO contact_requests (id, requester_id, recipient_id, status)
SELECT $1, $2, $3, 'pending'
WHERE NOT EXISTS (
    SELECT 1 FROM contacts WHERE owner_id = $2 AND peer_id = $3
)`
	tag, err := r.db.Pool.Exec(ctx, q, req.ID, req.RequesterID, req.RecipientID)
	switch {
	case isUniqueViolation(err):
		return errs.ErrConflict
	case isForeignKeyViolation(err):
		return errs.ErrNotFound
	case err != nil:
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrConflict
	}
	return nil
}

// ListIncoming returns pending requests addressed to userID, newest first.
func (r *ContactRepo) ListIncoming(ctx context.Context, userID uuid.UUID) ([]model.RequestView, error) {
	const q = `
SELECT cr.id, u.id, u.email, u.name, cr.created_at
FROM contact_requests cr
JOIN users u ON u.id = cr.requester_id
WHERE cr.recipient_id = $1 AND cr.status = 'pending'
ORDER BY cr.created_at DESC`
	return r.queryRequests(ctx, q, userID)
}

// ListOutgoing returns pending requests sent by userID, newest first.
func (r *ContactRepo) ListOutgoing(ctx context.Context, userID uuid.UUID) ([]model.RequestView, error) {
	const q = `
SELECT cr.id, u.id, u.email, u.name, cr.created_at
FROM contact_requests cr
JOIN users u ON u.id = cr.recipient_id
WHERE cr.requester_id = $1 AND cr.status = 'pending'
ORDER BY cr.created_at DESC`
	return r.queryRequests(ctx, q, userID)
}

func (r *ContactRepo) queryRequests(ctx context.Context, q string, userID uuid.UUID) ([]model.RequestView, error) {
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RequestView
	for rows.Next() {
		var v model.RequestView
		if err := rows.Scan(&v.ID, &v.PeerID, &v.Email, &v.Name, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Accept deletes the request and inserts both directed edges in one
// transaction. The row lock serializes racing resolutions: the loser finds
// no row and reports ErrNotFound.
func (r *ContactRepo) Accept(ctx context.Context, requestID, actingUser uuid.UUID) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
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

	const sel = `SELECT requester_id, recipient_id FROM contact_requests WHERE id=$1 AND status='pending' FOR UPDATE`
	const del = `DELETE FROM contact_requests WHERE id=$1`
	const ins = `INSERT INTO contacts (owner_id, peer_id, level) VALUES ($1, $2, $3), ($2, $1, $3)`

	var requester, recipient uuid.UUID
	if err = tx.QueryRow(ctx, sel, requestID).Scan(&requester, &recipient); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}
	if actingUser != recipient {
		return errs.ErrForbidden
	}
	if _, err = tx.Exec(ctx, del, requestID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, ins, requester, recipient, model.DefaultPrecision); err != nil {
		return err
	}
	return nil
}

// Decline removes the request on behalf of its recipient.
func (r *ContactRepo) Decline(ctx context.Context, requestID, actingUser uuid.UUID) error {
	return r.resolveRequest(ctx, requestID, actingUser, false)
}

// Cancel removes the request on behalf of its requester.
func (r *ContactRepo) Cancel(ctx context.Context, requestID, actingUser uuid.UUID) error {
	return r.resolveRequest(ctx, requestID, actingUser, true)
}

func (r *ContactRepo) resolveRequest(ctx context.Context, requestID, actingUser uuid.UUID, byRequester bool) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
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

	const sel = `SELECT requester_id, recipient_id FROM contact_requests WHERE id=$1 AND status='pending' FOR UPDATE`
	const del = `DELETE FROM contact_requests WHERE id=$1`

	var requester, recipient uuid.UUID
	if err = tx.QueryRow(ctx, sel, requestID).Scan(&requester, &recipient); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}
	owner := recipient
	if byRequester {
		owner = requester
	}
	if actingUser != owner {
		return errs.ErrForbidden
	}
	if _, err = tx.Exec(ctx, del, requestID); err != nil {
		return err
	}
	return nil
}

// ListContacts returns owner's edges joined with peer profiles.
func (r *ContactRepo) ListContacts(ctx context.Context, ownerID uuid.UUID) ([]model.ContactView, error) {
	const q = `
SELECT c.peer_id, u.email, u.name, u.public_key, c.level, c.created_at
FROM contacts c
JOIN users u ON u.id = c.peer_id
WHERE c.owner_id = $1
ORDER BY u.name, u.email`
	rows, err := r.db.Pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ContactView
	for rows.Next() {
		var v model.ContactView
		if err := rows.Scan(&v.PeerID, &v.Email, &v.Name, &v.PublicKey, &v.Precision, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetEdge returns the owner→peer edge.
func (r *ContactRepo) GetEdge(ctx context.Context, ownerID, peerID uuid.UUID) (*model.Contact, error) {
	const q = `
SELECT owner_id, peer_id, level, created_at, updated_at
FROM contacts WHERE owner_id=$1 AND peer_id=$2`
	var c model.Contact
	err := r.db.Pool.QueryRow(ctx, q, ownerID, peerID).
		Scan(&c.OwnerID, &c.PeerID, &c.Precision, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// SetPrecision updates the owner→peer granted level.
func (r *ContactRepo) SetPrecision(ctx context.Context, ownerID, peerID uuid.UUID, precision string) error {
	const q = `UPDATE contacts SET level=$3, updated_at=now() WHERE owner_id=$1 AND peer_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, ownerID, peerID, precision)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Remove deletes both directed edges and purges stored shares between the
// pair in one transaction.
func (r *ContactRepo) Remove(ctx context.Context, a, b uuid.UUID) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
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

	const delEdges = `
DELETE FROM contacts
WHERE (owner_id=$1 AND peer_id=$2) OR (owner_id=$2 AND peer_id=$1)`
	const delShares = `
DELETE FROM location_shares
WHERE (from_id=$1 AND to_id=$2) OR (from_id=$2 AND to_id=$1)`

	tag, err := tx.Exec(ctx, delEdges, a, b)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	if _, err = tx.Exec(ctx, delShares, a, b); err != nil {
		return err
	}
	return nil
}

// AreContacts reports whether the pair is connected. Edges exist only in
// symmetric pairs, so one direction is checked.
func (r *ContactRepo) AreContacts(ctx context.Context, a, b uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM contacts WHERE owner_id=$1 AND peer_id=$2)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, a, b).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
