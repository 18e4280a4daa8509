package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/whereabouts-app/whereabouts/internal/model"
)

// ShareRepository stores the latest encrypted location per (from, to) pair.
// No history is retained: every publish overwrites the previous ciphertext.
type ShareRepository interface {
	// Upsert writes one ciphertext per recipient, skipping recipients the
	// sender no longer has an edge to (the edge check and the write are one
	// statement, so a concurrent contact removal cannot interleave). Returns
	// the number of shares actually stored.
	Upsert(ctx context.Context, fromID uuid.UUID, shares []model.ShareUpload) (int, error)

	// SharesFor returns the latest ciphertext from every sender currently
	// sharing with userID.
	SharesFor(ctx context.Context, userID uuid.UUID) ([]model.EncryptedShare, error)

	// DeleteBetween purges both directions for a pair.
	DeleteBetween(ctx context.Context, a, b uuid.UUID) error
}
