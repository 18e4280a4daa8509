package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"

	"github.com/whereabouts-app/whereabouts/internal/errs"
)

// Identity file format tags. Import dispatches on explicit version+type,
// never on object shape; anything unrecognized is a hard error.
const (
	TypePrivateIdentity   = "private-identity"
	TypePublicIdentity    = "public-identity"
	TypeEncryptedIdentity = "encrypted-identity"

	versionPlain     = 1
	versionEncrypted = 2

	backupAlgorithm = "xchacha20poly1305"
	backupKDF       = "pbkdf2-sha256"

	// DefaultIterations is the PBKDF2 iteration count for fresh backups.
	DefaultIterations = 600_000

	maxIterations = 10_000_000
	saltLen       = 16
)

// ExportWarning is embedded in every unencrypted private export.
const ExportWarning = "Keep this file secret. It contains your private key; " +
	"anyone who obtains it can decrypt every location shared with you."

// AccountMeta is the account info bundled with a private export so a restored
// device knows which account the keypair belongs to.
type AccountMeta struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// exportedKeys carries both keypair halves in base64.
type exportedKeys struct {
	PrivateKey string `json:"privateKey"`
	PublicKey  string `json:"publicKey"`
}

// PrivateExport is the v1 unencrypted identity file.
type PrivateExport struct {
	Version  int          `json:"version"`
	Type     string       `json:"type"`
	Created  time.Time    `json:"created"`
	Identity exportedKeys `json:"identity"`
	Account  AccountMeta  `json:"account"`
	Warning  string       `json:"warning"`
}

// PublicExport is the shareable contact card. It never contains the private
// key.
type PublicExport struct {
	Version   int       `json:"version"`
	Type      string    `json:"type"`
	PublicKey string    `json:"publicKey"`
	Name      string    `json:"name"`
	Created   time.Time `json:"created"`
}

// Backup is the v2 PIN-encrypted identity file. Payload is a sealed v1
// PrivateExport document.
type Backup struct {
	Version    int    `json:"version"`
	Type       string `json:"type"`
	Algorithm  string `json:"algorithm"`
	KDF        string `json:"kdf"`
	Iterations int    `json:"iterations"`
	Salt       string `json:"salt"`
	IV         string `json:"iv"`
	Payload    string `json:"payload"`
}

// ExportPrivate renders the identity as a v1 unencrypted file.
func ExportPrivate(id *Identity, account AccountMeta) ([]byte, error) {
	doc := PrivateExport{
		Version: versionPlain,
		Type:    TypePrivateIdentity,
		Created: time.Now().UTC(),
		Identity: exportedKeys{
			PrivateKey: base64.StdEncoding.EncodeToString(id.PrivateKey[:]),
			PublicKey:  base64.StdEncoding.EncodeToString(id.PublicKey[:]),
		},
		Account: account,
		Warning: ExportWarning,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ExportPublic renders the shareable contact card.
func ExportPublic(id *Identity, name string) ([]byte, error) {
	doc := PublicExport{
		Version:   versionPlain,
		Type:      TypePublicIdentity,
		PublicKey: base64.StdEncoding.EncodeToString(id.PublicKey[:]),
		Name:      name,
		Created:   time.Now().UTC(),
	}
	return json.MarshalIndent(doc, "", "  ")
}

// EncryptBackup seals the identity and account metadata under a key derived
// from pin, producing a v2 file with fresh random salt and nonce.
func EncryptBackup(id *Identity, account AccountMeta, pin string) ([]byte, error) {
	plain, err := ExportPrivate(id, account)
	if err != nil {
		return nil, err
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := pbkdf2.Key([]byte(pin), salt, DefaultIterations, chacha20poly1305.KeySize, sha256.New)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ct := aead.Seal(nil, nonce, plain, nil)
	doc := Backup{
		Version:    versionEncrypted,
		Type:       TypeEncryptedIdentity,
		Algorithm:  backupAlgorithm,
		KDF:        backupKDF,
		Iterations: DefaultIterations,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		IV:         base64.StdEncoding.EncodeToString(nonce),
		Payload:    base64.StdEncoding.EncodeToString(ct),
	}
	return json.MarshalIndent(doc, "", "  ")
}

// DecryptBackup re-derives the key and opens a v2 file. A wrong PIN and a
// tampered or corrupted payload are indistinguishable: both return ErrCrypto.
func DecryptBackup(raw []byte, pin string) (*Identity, AccountMeta, error) {
	var doc Backup
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, AccountMeta{}, fmt.Errorf("%w: not a backup file", errs.ErrValidation)
	}
	return decryptBackup(doc, pin)
}

func decryptBackup(doc Backup, pin string) (*Identity, AccountMeta, error) {
	if doc.Version != versionEncrypted || doc.Type != TypeEncryptedIdentity {
		return nil, AccountMeta{}, fmt.Errorf("%w: unknown backup version/type", errs.ErrValidation)
	}
	if doc.Algorithm != backupAlgorithm || doc.KDF != backupKDF {
		return nil, AccountMeta{}, fmt.Errorf("%w: unsupported backup algorithm %q/%q", errs.ErrValidation, doc.Algorithm, doc.KDF)
	}
	if doc.Iterations <= 0 || doc.Iterations > maxIterations {
		return nil, AccountMeta{}, fmt.Errorf("%w: iteration count out of range", errs.ErrValidation)
	}
	salt, err := base64.StdEncoding.DecodeString(doc.Salt)
	if err != nil {
		return nil, AccountMeta{}, fmt.Errorf("%w: salt is not base64", errs.ErrValidation)
	}
	nonce, err := base64.StdEncoding.DecodeString(doc.IV)
	if err != nil || len(nonce) != chacha20poly1305.NonceSizeX {
		return nil, AccountMeta{}, fmt.Errorf("%w: bad nonce", errs.ErrValidation)
	}
	ct, err := base64.StdEncoding.DecodeString(doc.Payload)
	if err != nil {
		return nil, AccountMeta{}, fmt.Errorf("%w: payload is not base64", errs.ErrValidation)
	}
	key := pbkdf2.Key([]byte(pin), salt, doc.Iterations, chacha20poly1305.KeySize, sha256.New)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, AccountMeta{}, err
	}
	plain, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, AccountMeta{}, errs.ErrCrypto
	}
	var inner PrivateExport
	if err := json.Unmarshal(plain, &inner); err != nil {
		return nil, AccountMeta{}, fmt.Errorf("%w: backup payload is not an identity file", errs.ErrValidation)
	}
	return parsePrivate(inner)
}

func parsePrivate(doc PrivateExport) (*Identity, AccountMeta, error) {
	if doc.Version != versionPlain || doc.Type != TypePrivateIdentity {
		return nil, AccountMeta{}, fmt.Errorf("%w: unknown identity version/type", errs.ErrValidation)
	}
	priv, err := ParseKey(doc.Identity.PrivateKey)
	if err != nil {
		return nil, AccountMeta{}, err
	}
	pub, err := ParseKey(doc.Identity.PublicKey)
	if err != nil {
		return nil, AccountMeta{}, err
	}
	return &Identity{PublicKey: *pub, PrivateKey: *priv}, doc.Account, nil
}

// importHeader is the discriminator every identity file must carry.
type importHeader struct {
	Version int    `json:"version"`
	Type    string `json:"type"`
}

// IsEncrypted reports whether raw carries the PIN-encrypted backup header,
// so callers know to collect a PIN before ImportAny.
func IsEncrypted(raw []byte) bool {
	var head importHeader
	if err := json.Unmarshal(raw, &head); err != nil {
		return false
	}
	return head.Version == versionEncrypted && head.Type == TypeEncryptedIdentity
}

// ImportAny restores an identity from any supported file format. Dispatch is
// by the explicit version+type header; pin is required only for encrypted
// files. Public-identity files carry no private key and are rejected.
func ImportAny(raw []byte, pin string) (*Identity, AccountMeta, error) {
	var head importHeader
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, AccountMeta{}, fmt.Errorf("%w: not an identity file", errs.ErrValidation)
	}
	switch {
	case head.Version == versionPlain && head.Type == TypePrivateIdentity:
		var doc PrivateExport
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, AccountMeta{}, fmt.Errorf("%w: malformed identity file", errs.ErrValidation)
		}
		return parsePrivate(doc)
	case head.Version == versionEncrypted && head.Type == TypeEncryptedIdentity:
		if pin == "" {
			return nil, AccountMeta{}, fmt.Errorf("%w: file is PIN-encrypted, pin required", errs.ErrValidation)
		}
		var doc Backup
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, AccountMeta{}, fmt.Errorf("%w: malformed backup file", errs.ErrValidation)
		}
		return decryptBackup(doc, pin)
	case head.Version == versionPlain && head.Type == TypePublicIdentity:
		return nil, AccountMeta{}, fmt.Errorf("%w: public-identity file contains no private key", errs.ErrValidation)
	default:
		return nil, AccountMeta{}, fmt.Errorf("%w: unknown identity format (version=%d type=%q)", errs.ErrValidation, head.Version, head.Type)
	}
}
