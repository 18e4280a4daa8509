package keys

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const identityFile = "identity.json"

// Keystore persists the identity in a local directory. Files are written
// 0600; the directory is created 0700 on first save.
type Keystore struct {
	dir string
	mu  sync.Mutex
}

func NewKeystore(dir string) *Keystore { return &Keystore{dir: dir} }

// Save writes the identity as a v1 private-identity file.
func (s *Keystore) Save(id *Identity, account AccountMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := ExportPrivate(id, account)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create keystore dir: %w", err)
	}
	return os.WriteFile(filepath.Join(s.dir, identityFile), raw, 0o600)
}

// Load reads the stored identity. Returns (nil, zero, nil) when no identity
// has been saved yet.
func (s *Keystore) Load() (*Identity, AccountMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(filepath.Join(s.dir, identityFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, AccountMeta{}, nil
		}
		return nil, AccountMeta{}, err
	}
	var doc PrivateExport
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, AccountMeta{}, fmt.Errorf("keystore corrupted: %w", err)
	}
	return parsePrivate(doc)
}

// Clear removes the stored identity. Missing file is not an error.
func (s *Keystore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.dir, identityFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
