package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/whereabouts-app/whereabouts/internal/model"
)

// ContactRepository persists the request/contact state machine. Transitions
// rely on database-native atomicity: a partial unique index forbids duplicate
// pending requests, and accept/decline/cancel run under a row lock so a
// racing resolution observes ErrNotFound.
type ContactRepository interface {
	// CreateRequest inserts a pending request unless the pair already has a
	// pending request in either direction (ErrConflict) or is already
	// connected (ErrConflict).
	CreateRequest(ctx context.Context, req *model.ContactRequest) error

	// ListIncoming returns pending requests addressed to userID, newest first.
	ListIncoming(ctx context.Context, userID uuid.UUID) ([]model.RequestView, error)
	// ListOutgoing returns pending requests sent by userID, newest first.
	ListOutgoing(ctx context.Context, userID uuid.UUID) ([]model.RequestView, error)

	// Accept atomically deletes the request and inserts both directed edges
	// with the coarsest default precision. actingUser must be the recipient
	// (ErrForbidden); an already-resolved request yields ErrNotFound.
	Accept(ctx context.Context, requestID, actingUser uuid.UUID) error
	// Decline removes the request; actingUser must be the recipient.
	Decline(ctx context.Context, requestID, actingUser uuid.UUID) error
	// Cancel removes the request; actingUser must be the requester.
	Cancel(ctx context.Context, requestID, actingUser uuid.UUID) error

	// ListContacts returns owner's edges joined with peer profiles.
	ListContacts(ctx context.Context, ownerID uuid.UUID) ([]model.ContactView, error)
	// GetEdge returns the owner→peer edge, ErrNotFound when absent.
	GetEdge(ctx context.Context, ownerID, peerID uuid.UUID) (*model.Contact, error)
	// SetPrecision updates the owner→peer granted level.
	SetPrecision(ctx context.Context, ownerID, peerID uuid.UUID, precision string) error
	// Remove atomically deletes both directed edges and purges stored shares
	// between the pair. ErrNotFound when the pair is not connected.
	Remove(ctx context.Context, a, b uuid.UUID) error
	// AreContacts reports whether both directed edges exist.
	AreContacts(ctx context.Context, a, b uuid.UUID) (bool, error)
}
