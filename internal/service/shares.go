package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/whereabouts-app/whereabouts/internal/errs"
	"github.com/whereabouts-app/whereabouts/internal/model"
	"github.com/whereabouts-app/whereabouts/internal/repository"
)

// ShareService accepts encrypted location fan-out and serves the inbox.
// Payloads are opaque ciphertext; the server never inspects them.
type ShareService interface {
	// Upload stores one ciphertext per recipient and returns how many were
	// actually stored (recipients removed concurrently are skipped).
	Upload(ctx context.Context, fromID uuid.UUID, shares []model.ShareUpload) (int, error)
	// Inbox returns the latest ciphertext from every sender sharing with the user.
	Inbox(ctx context.Context, userID uuid.UUID) ([]model.EncryptedShare, error)
}

type ShareServiceImpl struct {
	shares   repository.ShareRepository
	maxBatch int
}

// NewShareService constructs ShareService with a batch limit.
func NewShareService(shares repository.ShareRepository, maxBatch int) *ShareServiceImpl {
	if maxBatch <= 0 {
		maxBatch = 500
	}
	return &ShareServiceImpl{shares: shares, maxBatch: maxBatch}
}

// Upload validates the batch and delegates the per-recipient upsert.
// Validation rules:
// - each ToID != uuid.Nil and != fromID
// - each Payload not empty
// - len(shares) <= maxBatch
func (s *ShareServiceImpl) Upload(ctx context.Context, fromID uuid.UUID, shares []model.ShareUpload) (int, error) {
	if fromID == uuid.Nil {
		return 0, fmt.Errorf("empty fromID: %w", errs.ErrValidation)
	}
	if len(shares) == 0 {
		return 0, nil
	}
	if len(shares) > s.maxBatch {
		return 0, fmt.Errorf("batch too large (%d > %d): %w", len(shares), s.maxBatch, errs.ErrValidation)
	}
	for i := range shares {
		if shares[i].ToID == uuid.Nil {
			return 0, fmt.Errorf("share[%d] empty recipient: %w", i, errs.ErrValidation)
		}
		if shares[i].ToID == fromID {
			return 0, fmt.Errorf("share[%d] addressed to sender: %w", i, errs.ErrValidation)
		}
		if len(shares[i].Payload) == 0 {
			return 0, fmt.Errorf("share[%d] empty payload: %w", i, errs.ErrValidation)
		}
	}
	return s.shares.Upsert(ctx, fromID, shares)
}

// Inbox returns the latest ciphertext per sender, newest first.
func (s *ShareServiceImpl) Inbox(ctx context.Context, userID uuid.UUID) ([]model.EncryptedShare, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("empty userID: %w", errs.ErrValidation)
	}
	return s.shares.SharesFor(ctx, userID)
}
