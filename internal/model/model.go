// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects issued access/refresh tokens (refresh optional).
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // access token expiry (for diagnostics)
}

// User represents an account stored on the server. The public key is the
// user's share-encryption key; the server never sees a private key.
type User struct {
	ID        uuid.UUID // PK
	Email     string    // unique, lowercased
	Name      string    // display name, shown to contacts
	PwdHash   []byte    // Argon2id(password, SaltAuth)
	SaltAuth  []byte    // per-user auth salt
	PublicKey []byte    // 32-byte Curve25519 public key, set after first device registers
	CreatedAt time.Time
}

// RequestStatus is the lifecycle state of a contact request. Only pending
// requests are persisted; resolution removes the row.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
	RequestCanceled RequestStatus = "canceled"
)

// ContactRequest is a pending invitation from Requester to Recipient.
type ContactRequest struct {
	ID          uuid.UUID
	RequesterID uuid.UUID
	RecipientID uuid.UUID
	Status      RequestStatus
	CreatedAt   time.Time
}

// DefaultPrecision is the coarsest visibility level, granted to both
// directions of a fresh connection.
const DefaultPrecision = "planet"

// Contact is one directed edge of an established relationship. Every
// connection is stored as two rows, one per direction, each carrying the
// owner's granted precision for the peer.
type Contact struct {
	OwnerID   uuid.UUID // whose grant this is
	PeerID    uuid.UUID // who receives location at Precision
	Precision string    // visibility level name, e.g. "planet", "city"
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContactView is a contact edge joined with the peer's public profile,
// as returned by list operations.
type ContactView struct {
	PeerID    uuid.UUID
	Email     string
	Name      string
	PublicKey []byte
	Precision string
	CreatedAt time.Time
}

// RequestView is a pending request joined with the counterparty's profile.
type RequestView struct {
	ID        uuid.UUID
	PeerID    uuid.UUID
	Email     string
	Name      string
	CreatedAt time.Time
}

// EncryptedShare is one recipient's copy of a sender's location, sealed to
// the recipient's public key. (FromID, ToID) is the primary key; each
// publish overwrites the previous ciphertext.
type EncryptedShare struct {
	FromID    uuid.UUID
	ToID      uuid.UUID
	Payload   []byte // versioned envelope, opaque to the server
	UpdatedAt time.Time
}

// ShareUpload is a single recipient's ciphertext within a publish batch.
type ShareUpload struct {
	ToID    uuid.UUID
	Payload []byte
}

// BlobKind names a per-user versioned blob slot.
type BlobKind string

const (
	// BlobUserData holds the encrypted settings/contact-annotation document.
	BlobUserData BlobKind = "user_data"
	// BlobIdentityBackup holds the PIN-encrypted identity backup.
	BlobIdentityBackup BlobKind = "identity_backup"
)

// VersionedBlob is an opaque per-user document with optimistic concurrency.
// (UserID, Kind) is the primary key.
type VersionedBlob struct {
	UserID    uuid.UUID
	Kind      BlobKind
	Payload   []byte
	Ver       int64 // monotonically increasing, first write is 1
	UpdatedAt time.Time
}

// Device is a registered client installation, listed so users can audit
// where their identity key lives.
type Device struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string // e.g. "Pixel 8", "work laptop"
	Platform  string // freeform: "android", "ios", "cli"
	CreatedAt time.Time
	LastSeen  time.Time
}
