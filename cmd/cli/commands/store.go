package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/whereabouts-app/whereabouts/internal/client"
	"github.com/whereabouts-app/whereabouts/internal/crypto/keys"
	"github.com/whereabouts-app/whereabouts/internal/visibility"
)

const (
	sessionFile = "session.json"
	deviceFile  = "device_id"
	placesFile  = "places.json"
)

func defaultCfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "whereabouts")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "whereabouts")
}

// store keeps the CLI's local state: session, device id and named places.
// Everything lives in one directory; files are 0600, the directory 0700.
type store struct{ dir string }

func newStore(dir string) *store { return &store{dir: dir} }

func (s *store) Keystore() *keys.Keystore { return keys.NewKeystore(s.dir) }

func (s *store) path(name string) string { return filepath.Join(s.dir, name) }

func (s *store) writeJSON(name string, v any) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(name), append(b, '\n'), 0o600)
}

func (s *store) SaveSession(sess client.Session) error {
	return s.writeJSON(sessionFile, sess)
}

// LoadSession returns the saved session, or an error telling the user to log
// in when it is missing or expired.
func (s *store) LoadSession() (client.Session, error) {
	b, err := os.ReadFile(s.path(sessionFile))
	if err != nil {
		return client.Session{}, errors.New("not logged in (run `wa login`)")
	}
	var sess client.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return client.Session{}, fmt.Errorf("session file corrupted: %w", err)
	}
	if !sess.Valid() {
		return client.Session{}, errors.New("session expired (run `wa login`)")
	}
	return sess, nil
}

func (s *store) ClearSession() error {
	err := os.Remove(s.path(sessionFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *store) SaveDeviceID(id uuid.UUID) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path(deviceFile), []byte(id.String()+"\n"), 0o600)
}

func (s *store) LoadDeviceID() (string, bool) {
	b, err := os.ReadFile(s.path(deviceFile))
	if err != nil {
		return "", false
	}
	id := strings.TrimSpace(string(b))
	return id, id != ""
}

func (s *store) ClearDeviceID() error {
	err := os.Remove(s.path(deviceFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *store) SavePlaces(locs []visibility.NamedLocation) error {
	return s.writeJSON(placesFile, locs)
}

// LoadPlaces returns the device's named places. A missing file is an empty
// list.
func (s *store) LoadPlaces() ([]visibility.NamedLocation, error) {
	b, err := os.ReadFile(s.path(placesFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var locs []visibility.NamedLocation
	if err := json.Unmarshal(b, &locs); err != nil {
		return nil, fmt.Errorf("places file corrupted: %w", err)
	}
	return locs, nil
}

// readAll reads a file, with "-" meaning stdin.
func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}
