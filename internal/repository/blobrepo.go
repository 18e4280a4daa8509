package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/whereabouts-app/whereabouts/internal/model"
)

// BlobRepository stores per-user opaque documents with optimistic
// concurrency. One row per (user, kind).
type BlobRepository interface {
	// Get returns the current blob, ErrNotFound when the slot is empty.
	Get(ctx context.Context, userID uuid.UUID, kind model.BlobKind) (*model.VersionedBlob, error)

	// Set writes the blob iff expectedVer matches the stored version
	// (0 = create). On mismatch it returns ErrVersionConflict and leaves
	// storage unchanged; on success the new version is returned and is
	// exactly expectedVer+1.
	Set(ctx context.Context, userID uuid.UUID, kind model.BlobKind, payload []byte, expectedVer int64) (int64, error)
}
