// Package catalog persists crawl results: the media catalog the crawl
// stage produces and the download manifest the download stage keeps.
// All writes go through a temp file and rename, so readers never see a
// half-written document.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/cultcrawl/cultcrawl/pkg/models"
)

const (
	// AllMediaFile is the flat list of every reference, in discovery order.
	AllMediaFile = "all_media.json"
	// BySectionFile groups references by section name.
	BySectionFile = "media_by_section.json"
)

// Catalog accumulates media references during a crawl and serializes
// them for the render and download stages. Safe for concurrent Add.
type Catalog struct {
	mu        sync.Mutex
	flat      []models.MediaReference
	bySection map[string][]models.MediaReference
}

func New() *Catalog {
	return &Catalog{bySection: make(map[string][]models.MediaReference)}
}

// Add appends refs under the given section, preserving call order.
func (c *Catalog) Add(section string, refs ...models.MediaReference) {
	if len(refs) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flat = append(c.flat, refs...)
	c.bySection[section] = append(c.bySection[section], refs...)
}

// All returns a copy of the flat reference list in discovery order.
func (c *Catalog) All() []models.MediaReference {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.MediaReference, len(c.flat))
	copy(out, c.flat)
	return out
}

// BySection returns a copy of the per-section grouping.
func (c *Catalog) BySection() map[string][]models.MediaReference {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]models.MediaReference, len(c.bySection))
	for section, refs := range c.bySection {
		cp := make([]models.MediaReference, len(refs))
		copy(cp, refs)
		out[section] = cp
	}
	return out
}

// Sections returns the section names in sorted order.
func (c *Catalog) Sections() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.bySection))
	for name := range c.bySection {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len is the total number of references, duplicates included.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.flat)
}

// UniqueCount counts distinct source URLs across all sections.
func (c *Catalog) UniqueCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[string]struct{}, len(c.flat))
	for _, ref := range c.flat {
		seen[ref.SourceURL] = struct{}{}
	}
	return len(seen)
}

// Save writes both catalog documents under dir, creating it if needed.
func (c *Catalog) Save(dir string) error {
	c.mu.Lock()
	flat := make([]models.MediaReference, len(c.flat))
	copy(flat, c.flat)
	bySection := make(map[string][]models.MediaReference, len(c.bySection))
	for section, refs := range c.bySection {
		bySection[section] = refs
	}
	c.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := writeJSONAtomic(filepath.Join(dir, AllMediaFile), flat); err != nil {
		return err
	}
	if err := writeJSONAtomic(filepath.Join(dir, BySectionFile), bySection); err != nil {
		return err
	}

	log.Debug().
		Str("dir", dir).
		Int("references", len(flat)).
		Msg("Catalog saved")
	return nil
}

// Load reads a previously saved catalog from dir. The flat list is
// authoritative; the by-section document is rebuilt from it when
// absent.
func Load(dir string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Join(dir, AllMediaFile))
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var flat []models.MediaReference
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := New()
	grouped, err := os.ReadFile(filepath.Join(dir, BySectionFile))
	switch {
	case err == nil:
		if err := json.Unmarshal(grouped, &c.bySection); err != nil {
			return nil, fmt.Errorf("parse section catalog: %w", err)
		}
		c.flat = flat
	case os.IsNotExist(err):
		for _, ref := range flat {
			c.Add(ref.Section, ref)
		}
	default:
		return nil, fmt.Errorf("read section catalog: %w", err)
	}

	return c, nil
}

// writeJSONAtomic marshals v with two-space indentation and renames a
// temp file over path.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
