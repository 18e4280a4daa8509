// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrValidation indicates malformed input rejected before any mutation.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates the requested entity does not exist (or was
	// already resolved by a concurrent winner).
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the current state forbids the operation
	// (duplicate pending request, pair already connected).
	ErrConflict = errors.New("conflict")

	// ErrVersionConflict indicates optimistic concurrency failure (expected version mismatch).
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnauthorized indicates failed authentication (bad credentials, missing/expired token).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the acting user is not allowed to perform the
	// operation (not the request's recipient, not a contact).
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrCrypto indicates an authenticated decryption failure. The cause
	// (wrong key, wrong PIN, tampered or corrupted ciphertext) is deliberately
	// not distinguishable.
	ErrCrypto = errors.New("decryption failed")
)
