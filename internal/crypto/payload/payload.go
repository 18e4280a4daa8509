// Package payload implements public-key authenticated encryption for
// location shares: Curve25519 key agreement with an authenticated stream
// cipher (NaCl box). The server relays the resulting envelopes without the
// ability to read them.
package payload

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/nacl/box"

	"github.com/whereabouts-app/whereabouts/internal/errs"
)

const (
	// Version is the current envelope format version.
	Version = 1

	// NonceSize is the NaCl box nonce length in bytes.
	NonceSize = 24

	// KeySize is the length of each Curve25519 key half.
	KeySize = 32
)

// Envelope is the wire form of one encrypted share.
type Envelope struct {
	V int    `json:"v"`
	N string `json:"n"` // base64 24-byte nonce, fresh per call
	C string `json:"c"` // base64 ciphertext incl. auth tag
}

// Seal serializes data to JSON and encrypts it from the sender to the
// recipient with a fresh random nonce. Identical data sealed twice never
// yields identical envelopes.
func Seal(data any, recipientPub, senderPriv *[KeySize]byte) (Envelope, error) {
	plain, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal payload: %w", err)
	}
	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return Envelope{}, err
	}
	ct := box.Seal(nil, plain, &nonce, recipientPub, senderPriv)
	return Envelope{
		V: Version,
		N: base64.StdEncoding.EncodeToString(nonce[:]),
		C: base64.StdEncoding.EncodeToString(ct),
	}, nil
}

// Open authenticates and decrypts an envelope, unmarshaling the plaintext
// into out. Any authentication failure (wrong keys, tampering) returns
// ErrCrypto with no partial plaintext.
func Open(e Envelope, senderPub, recipientPriv *[KeySize]byte, out any) error {
	if e.V != Version {
		return fmt.Errorf("%w: unsupported envelope version %d", errs.ErrValidation, e.V)
	}
	rawNonce, err := base64.StdEncoding.DecodeString(e.N)
	if err != nil || len(rawNonce) != NonceSize {
		return fmt.Errorf("%w: bad envelope nonce", errs.ErrValidation)
	}
	ct, err := base64.StdEncoding.DecodeString(e.C)
	if err != nil {
		return fmt.Errorf("%w: envelope ciphertext is not base64", errs.ErrValidation)
	}
	var nonce [NonceSize]byte
	copy(nonce[:], rawNonce)
	plain, ok := box.Open(nil, ct, &nonce, senderPub, recipientPriv)
	if !ok {
		return errs.ErrCrypto
	}
	if err := json.Unmarshal(plain, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// Encode renders the envelope as compact JSON for upload.
func (e Envelope) Encode() ([]byte, error) { return json.Marshal(e) }

// Decode parses an uploaded envelope, rejecting unknown versions before any
// cryptographic work.
func Decode(raw []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: not an envelope", errs.ErrValidation)
	}
	if e.V != Version {
		return Envelope{}, fmt.Errorf("%w: unsupported envelope version %d", errs.ErrValidation, e.V)
	}
	return e, nil
}
