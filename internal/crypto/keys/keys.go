// Package keys manages the client-side identity keypair: generation, local
// persistence, typed export/import files, and PIN-encrypted backups.
//
// The private key never leaves the device in plaintext; the only escrowed
// form is the PIN-encrypted backup produced by EncryptBackup.
package keys

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/nacl/box"

	"github.com/whereabouts-app/whereabouts/internal/errs"
)

// KeySize is the length of each half of the Curve25519 keypair.
const KeySize = 32

// Identity is a user's asymmetric keypair.
type Identity struct {
	PublicKey  [KeySize]byte
	PrivateKey [KeySize]byte
}

// Generate creates a fresh random keypair. No network I/O.
func Generate() (*Identity, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Identity{PublicKey: *pub, PrivateKey: *priv}, nil
}

// PublicKeyB64 returns the public half in standard base64, the form sent to
// the server at registration.
func (id *Identity) PublicKeyB64() string {
	return base64.StdEncoding.EncodeToString(id.PublicKey[:])
}

// ParseKey decodes a base64 key half and checks its length.
func ParseKey(s string) (*[KeySize]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: key is not base64", errs.ErrValidation)
	}
	return KeyFromBytes(raw)
}

// KeyFromBytes copies a raw 32-byte key half into its fixed-size form.
func KeyFromBytes(raw []byte) (*[KeySize]byte, error) {
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", errs.ErrValidation, KeySize, len(raw))
	}
	var k [KeySize]byte
	copy(k[:], raw)
	return &k, nil
}
