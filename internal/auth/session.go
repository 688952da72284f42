// Package auth stores login sessions for the crawl. Sessions live in
// the OS keyring where one is available and fall back to JSON files
// under ~/.cultcrawl/sessions otherwise (containers, CI boxes). A
// session is a named cookie bundle plus optional extra headers; the
// fetchers install it verbatim, nothing here talks to the site.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "cultcrawl"
	manifestKey    = "_manifest"
	sessionDirName = ".cultcrawl/sessions"
)

// userHomeDir is swapped out in tests.
var userHomeDir = os.UserHomeDir

// fileStorage caches the storage probe. Tests pin it to force the file
// backend.
var fileStorage *bool

// useFileStorage reports whether sessions go to files instead of the
// keyring. Headless environments rarely have a working keyring daemon,
// so the first call probes with a throwaway entry.
func useFileStorage() bool {
	if fileStorage != nil {
		return *fileStorage
	}

	if os.Getenv("CODESPACES") != "" || os.Getenv("CI") != "" {
		result := true
		fileStorage = &result
		return true
	}

	probe := "_probe_"
	err := keyring.Set(keyringService, probe, "ok")
	result := err != nil
	if !result {
		keyring.Delete(keyringService, probe)
	}
	fileStorage = &result
	return result
}

func sessionDir() (string, error) {
	home, err := userHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, filepath.FromSlash(sessionDirName))
	return dir, os.MkdirAll(dir, 0o700)
}

func sessionPath(name string) (string, error) {
	dir, err := sessionDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".json"), nil
}

// SessionData is a stored authentication session.
type SessionData struct {
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Cookies   []Cookie          `json:"cookies"`
	Headers   map[string]string `json:"headers,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at,omitempty"`
}

// Cookie is one browser cookie. Expires carries the CDP float epoch so
// captured cookies round-trip unchanged.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Expired reports whether the session's expiry has passed. Sessions
// without an expiry never expire.
func (s *SessionData) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// SaveSession stores a session under its name, replacing any previous
// one.
func SaveSession(session *SessionData) error {
	if session.Name == "" {
		return fmt.Errorf("session name cannot be empty")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("serializing session: %w", err)
	}

	if useFileStorage() {
		path, err := sessionPath(session.Name)
		if err != nil {
			return fmt.Errorf("resolving session path: %w", err)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("writing session file: %w", err)
		}
		return nil
	}

	if err := keyring.Set(keyringService, session.Name, string(data)); err != nil {
		return fmt.Errorf("saving to keyring: %w", err)
	}
	return updateManifest(session.Name, true)
}

// LoadSession retrieves a stored session by name. Expired sessions are
// an error.
func LoadSession(name string) (*SessionData, error) {
	if name == "" {
		return nil, fmt.Errorf("session name cannot be empty")
	}

	var data []byte
	if useFileStorage() {
		path, err := sessionPath(name)
		if err != nil {
			return nil, fmt.Errorf("resolving session path: %w", err)
		}
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading session file: %w", err)
		}
	} else {
		raw, err := keyring.Get(keyringService, name)
		if err != nil {
			return nil, fmt.Errorf("loading from keyring: %w", err)
		}
		data = []byte(raw)
	}

	var session SessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}
	if session.Expired() {
		return nil, fmt.Errorf("session %q expired at %s", name, session.ExpiresAt.Format(time.RFC3339))
	}
	return &session, nil
}

// DeleteSession removes a stored session. Deleting a session that does
// not exist is not an error in file mode.
func DeleteSession(name string) error {
	if name == "" {
		return fmt.Errorf("session name cannot be empty")
	}

	if useFileStorage() {
		path, err := sessionPath(name)
		if err != nil {
			return fmt.Errorf("resolving session path: %w", err)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("deleting session file: %w", err)
		}
		return nil
	}

	if err := keyring.Delete(keyringService, name); err != nil {
		return fmt.Errorf("deleting from keyring: %w", err)
	}
	return updateManifest(name, false)
}

// ListSessions returns the names of all stored sessions. File storage
// lists the session directory; keyring storage keeps its own manifest
// entry because the keyring API cannot enumerate.
func ListSessions() ([]string, error) {
	if useFileStorage() {
		dir, err := sessionDir()
		if err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return []string{}, nil
			}
			return nil, err
		}

		var names []string
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
				continue
			}
			names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
		}
		return names, nil
	}

	raw, err := keyring.Get(keyringService, manifestKey)
	if err != nil {
		return []string{}, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("parsing session manifest: %w", err)
	}
	return names, nil
}

func updateManifest(name string, add bool) error {
	names, _ := ListSessions()

	var updated []string
	for _, n := range names {
		if n != name {
			updated = append(updated, n)
		}
	}
	if add {
		updated = append(updated, name)
	}

	data, err := json.Marshal(updated)
	if err != nil {
		return err
	}
	return keyring.Set(keyringService, manifestKey, string(data))
}
