// Package session owns the authenticated platform session: cookie
// persistence and the lifecycle of the one logged-in browser.
package session

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

// CookieJar is the persisted session state for the platform account.
type CookieJar struct {
	Cookies []*proto.NetworkCookie `json:"cookies"`
	SavedAt time.Time              `json:"savedAt"`
}

// Store persists the cookie jar between runs. Load returns (nil, nil)
// when no usable session is stored; a missing or corrupt payload is
// treated as absent, never as an error.
type Store interface {
	Load() (*CookieJar, error)
	Save(jar *CookieJar) error
	Clear() error
	Close() error
}

// FileStore keeps the cookie jar in a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the jar. It also accepts a bare cookie array, the format
// older deployments wrote.
func (s *FileStore) Load() (*CookieJar, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, nil
	}

	var jar CookieJar
	if err := json.Unmarshal(data, &jar); err == nil && len(jar.Cookies) > 0 {
		return &jar, nil
	}

	var cookies []*proto.NetworkCookie
	if err := json.Unmarshal(data, &cookies); err == nil && len(cookies) > 0 {
		return &CookieJar{Cookies: cookies}, nil
	}

	return nil, nil
}

// Save writes the jar atomically via a temp file rename.
func (s *FileStore) Save(jar *CookieJar) error {
	data, err := json.MarshalIndent(jar, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Clear removes the stored jar.
func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error { return nil }
