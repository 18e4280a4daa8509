package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/whereabouts-app/whereabouts/internal/errs"
	"github.com/whereabouts-app/whereabouts/internal/model"
	"github.com/whereabouts-app/whereabouts/internal/repository"
)

// BlobService stores per-user opaque documents with optimistic concurrency.
// The same CAS path serves both the user-data document and the identity backup.
type BlobService interface {
	// Get returns the current blob and version, ErrNotFound when empty.
	Get(ctx context.Context, userID uuid.UUID, kind model.BlobKind) (*model.VersionedBlob, error)
	// Set writes iff expectedVer matches (0 = create) and returns the new version.
	Set(ctx context.Context, userID uuid.UUID, kind model.BlobKind, payload []byte, expectedVer int64) (int64, error)
}

type BlobServiceImpl struct {
	blobs repository.BlobRepository
}

// NewBlobService constructs BlobService.
func NewBlobService(blobs repository.BlobRepository) *BlobServiceImpl {
	return &BlobServiceImpl{blobs: blobs}
}

func validBlobKind(kind model.BlobKind) bool {
	switch kind {
	case model.BlobUserData, model.BlobIdentityBackup:
		return true
	}
	return false
}

// Get returns the current blob for (user, kind).
func (s *BlobServiceImpl) Get(ctx context.Context, userID uuid.UUID, kind model.BlobKind) (*model.VersionedBlob, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("empty userID: %w", errs.ErrValidation)
	}
	if !validBlobKind(kind) {
		return nil, fmt.Errorf("unknown blob kind %q: %w", kind, errs.ErrValidation)
	}
	return s.blobs.Get(ctx, userID, kind)
}

// Set applies the compare-and-set write. A stale expectedVer surfaces as
// ErrVersionConflict with storage unchanged.
func (s *BlobServiceImpl) Set(ctx context.Context, userID uuid.UUID, kind model.BlobKind, payload []byte, expectedVer int64) (int64, error) {
	if userID == uuid.Nil {
		return 0, fmt.Errorf("empty userID: %w", errs.ErrValidation)
	}
	if !validBlobKind(kind) {
		return 0, fmt.Errorf("unknown blob kind %q: %w", kind, errs.ErrValidation)
	}
	if len(payload) == 0 {
		return 0, fmt.Errorf("empty payload: %w", errs.ErrValidation)
	}
	if expectedVer < 0 {
		return 0, fmt.Errorf("negative expected version: %w", errs.ErrValidation)
	}
	return s.blobs.Set(ctx, userID, kind, payload, expectedVer)
}
