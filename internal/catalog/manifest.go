// internal/catalog/manifest.go
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// ManifestFile records download outcomes keyed by source URL.
const ManifestFile = "download_manifest.json"

// StatusSuccess marks a completed download. Failures carry either an
// "http_<code>" status or the error text, so a later run can decide
// what to retry.
const StatusSuccess = "success"

// HTTPStatus formats the manifest status for a non-2xx response.
func HTTPStatus(code int) string {
	return fmt.Sprintf("http_%d", code)
}

// Entry is one manifest record.
type Entry struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// Succeeded reports whether this entry records a finished download.
func (e Entry) Succeeded() bool {
	return e.Status == StatusSuccess
}

// Manifest tracks per-URL download state across runs. Safe for
// concurrent use by download workers.
type Manifest struct {
	mu      sync.Mutex
	path    string
	entries map[string]Entry
}

// LoadManifest reads the manifest under dir. A missing file yields an
// empty manifest bound to the same location.
func LoadManifest(dir string) (*Manifest, error) {
	m := &Manifest{
		path:    filepath.Join(dir, ManifestFile),
		entries: make(map[string]Entry),
	}

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &m.entries); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// Get returns the entry for url, if any.
func (m *Manifest) Get(url string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[url]
	return e, ok
}

// Done reports whether url already downloaded successfully.
func (m *Manifest) Done(url string) bool {
	e, ok := m.Get(url)
	return ok && e.Succeeded()
}

// MarkSuccess records a completed download and where it landed.
func (m *Manifest) MarkSuccess(url, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[url] = Entry{Status: StatusSuccess, Path: path}
}

// MarkFailure records a failed download with a diagnostic status and
// the path the file would have landed at.
func (m *Manifest) MarkFailure(url, status, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[url] = Entry{Status: status, Path: path}
}

// Len is the number of recorded URLs.
func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// PruneStale drops success entries whose file no longer exists under
// root, so the next run downloads them again. Returns how many were
// dropped.
func (m *Manifest) PruneStale(root string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := 0
	for url, e := range m.entries {
		if !e.Succeeded() || e.Path == "" {
			continue
		}
		full := filepath.Join(root, filepath.FromSlash(e.Path))
		if _, err := os.Stat(full); os.IsNotExist(err) {
			delete(m.entries, url)
			dropped++
		}
	}
	if dropped > 0 {
		log.Debug().Int("count", dropped).Msg("Pruned stale manifest entries")
	}
	return dropped
}

// Save writes the manifest atomically to its load location.
func (m *Manifest) Save() error {
	m.mu.Lock()
	entries := make(map[string]Entry, len(m.entries))
	for url, e := range m.entries {
		entries[url] = e
	}
	path := m.path
	m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return writeJSONAtomic(path, entries)
}
