package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/whereabouts-app/whereabouts/internal/errs"
	"github.com/whereabouts-app/whereabouts/internal/model"
	"github.com/whereabouts-app/whereabouts/internal/repository"
	"github.com/whereabouts-app/whereabouts/internal/visibility"
)

// ContactService drives the request/contact state machine.
type ContactService interface {
	// Request sends a contact request and returns its id.
	Request(ctx context.Context, requesterID, recipientID uuid.UUID) (uuid.UUID, error)
	// Incoming lists pending requests addressed to the user.
	Incoming(ctx context.Context, userID uuid.UUID) ([]model.RequestView, error)
	// Outgoing lists pending requests the user has sent.
	Outgoing(ctx context.Context, userID uuid.UUID) ([]model.RequestView, error)
	// Accept resolves a request into a symmetric contact pair.
	Accept(ctx context.Context, requestID, actingUser uuid.UUID) error
	// Decline removes a request; only the recipient may decline.
	Decline(ctx context.Context, requestID, actingUser uuid.UUID) error
	// Cancel removes a request; only the requester may cancel.
	Cancel(ctx context.Context, requestID, actingUser uuid.UUID) error
	// List returns the user's contacts with peer profiles.
	List(ctx context.Context, ownerID uuid.UUID) ([]model.ContactView, error)
	// SetPrecision updates the owner's granted level for a peer.
	SetPrecision(ctx context.Context, ownerID, peerID uuid.UUID, level string) error
	// Remove disconnects a pair and purges their stored shares.
	Remove(ctx context.Context, ownerID, peerID uuid.UUID) error
}

type ContactServiceImpl struct {
	contacts repository.ContactRepository
}

// NewContactService constructs ContactService.
func NewContactService(contacts repository.ContactRepository) *ContactServiceImpl {
	return &ContactServiceImpl{contacts: contacts}
}

// Request validates the pair and inserts a pending request. Duplicate pending
// requests and already-connected pairs surface as ErrConflict from the
// repository; an unknown recipient surfaces as ErrNotFound.
func (s *ContactServiceImpl) Request(ctx context.Context, requesterID, recipientID uuid.UUID) (uuid.UUID, error) {
	if requesterID == uuid.Nil || recipientID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("empty user id: %w", errs.ErrValidation)
	}
	if requesterID == recipientID {
		return uuid.Nil, fmt.Errorf("cannot request yourself: %w", errs.ErrValidation)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}
	req := &model.ContactRequest{
		ID:          id,
		RequesterID: requesterID,
		RecipientID: recipientID,
		Status:      model.RequestPending,
	}
	if err := s.contacts.CreateRequest(ctx, req); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Incoming lists pending requests addressed to the user.
func (s *ContactServiceImpl) Incoming(ctx context.Context, userID uuid.UUID) ([]model.RequestView, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("empty userID: %w", errs.ErrValidation)
	}
	return s.contacts.ListIncoming(ctx, userID)
}

// Outgoing lists pending requests the user has sent.
func (s *ContactServiceImpl) Outgoing(ctx context.Context, userID uuid.UUID) ([]model.RequestView, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("empty userID: %w", errs.ErrValidation)
	}
	return s.contacts.ListOutgoing(ctx, userID)
}

// Accept delegates the atomic resolve-and-connect to the repository. A racing
// resolution on the same id loses with ErrNotFound.
func (s *ContactServiceImpl) Accept(ctx context.Context, requestID, actingUser uuid.UUID) error {
	if requestID == uuid.Nil || actingUser == uuid.Nil {
		return fmt.Errorf("empty id: %w", errs.ErrValidation)
	}
	return s.contacts.Accept(ctx, requestID, actingUser)
}

// Decline removes a pending request on behalf of the recipient.
func (s *ContactServiceImpl) Decline(ctx context.Context, requestID, actingUser uuid.UUID) error {
	if requestID == uuid.Nil || actingUser == uuid.Nil {
		return fmt.Errorf("empty id: %w", errs.ErrValidation)
	}
	return s.contacts.Decline(ctx, requestID, actingUser)
}

// Cancel removes a pending request on behalf of the requester.
func (s *ContactServiceImpl) Cancel(ctx context.Context, requestID, actingUser uuid.UUID) error {
	if requestID == uuid.Nil || actingUser == uuid.Nil {
		return fmt.Errorf("empty id: %w", errs.ErrValidation)
	}
	return s.contacts.Cancel(ctx, requestID, actingUser)
}

// List returns the user's contacts with peer profiles.
func (s *ContactServiceImpl) List(ctx context.Context, ownerID uuid.UUID) ([]model.ContactView, error) {
	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("empty ownerID: %w", errs.ErrValidation)
	}
	return s.contacts.ListContacts(ctx, ownerID)
}

// SetPrecision parses and canonicalizes the level before any mutation, so an
// unknown name never reaches storage.
func (s *ContactServiceImpl) SetPrecision(ctx context.Context, ownerID, peerID uuid.UUID, level string) error {
	if ownerID == uuid.Nil || peerID == uuid.Nil {
		return fmt.Errorf("empty id: %w", errs.ErrValidation)
	}
	lvl, err := visibility.ParseLevel(level)
	if err != nil {
		return err
	}
	return s.contacts.SetPrecision(ctx, ownerID, peerID, lvl.String())
}

// Remove disconnects the pair in both directions and purges stored shares.
func (s *ContactServiceImpl) Remove(ctx context.Context, ownerID, peerID uuid.UUID) error {
	if ownerID == uuid.Nil || peerID == uuid.Nil {
		return fmt.Errorf("empty id: %w", errs.ErrValidation)
	}
	if ownerID == peerID {
		return fmt.Errorf("cannot remove yourself: %w", errs.ErrValidation)
	}
	return s.contacts.Remove(ctx, ownerID, peerID)
}
