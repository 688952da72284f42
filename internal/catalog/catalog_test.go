// internal/catalog/catalog_test.go
package catalog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/cultcrawl/cultcrawl/pkg/models"
)

func ref(section, title, url string) models.MediaReference {
	return models.MediaReference{
		Section:      section,
		Pack:         "Pack",
		SessionTitle: title,
		MediaType:    models.TypeForURL(url),
		SourceURL:    url,
	}
}

func TestCatalogAddAndCounts(t *testing.T) {
	c := New()
	c.Add("Yoga", ref("Yoga", "One", "https://cdn.cure.fit/1.mp4"))
	c.Add("Yoga", ref("Yoga", "Two", "https://cdn.cure.fit/2.mp4"))
	c.Add("Sleep", ref("Sleep", "Story", "https://cdn.cure.fit/1.mp4"))

	if got := c.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
	if got := c.UniqueCount(); got != 2 {
		t.Errorf("UniqueCount() = %d, want 2", got)
	}
	if got := c.Sections(); !reflect.DeepEqual(got, []string{"Sleep", "Yoga"}) {
		t.Errorf("Sections() = %v", got)
	}
}

func TestCatalogCopies(t *testing.T) {
	c := New()
	c.Add("Yoga", ref("Yoga", "One", "https://cdn.cure.fit/1.mp4"))

	all := c.All()
	all[0].SessionTitle = "mutated"
	if c.All()[0].SessionTitle != "One" {
		t.Error("All() exposed internal slice")
	}

	by := c.BySection()
	by["Yoga"][0].SessionTitle = "mutated"
	if c.BySection()["Yoga"][0].SessionTitle != "One" {
		t.Error("BySection() exposed internal slice")
	}
}

func TestCatalogConcurrentAdd(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Add("Yoga", ref("Yoga", "t", "https://cdn.cure.fit/x.mp4"))
			}
		}()
	}
	wg.Wait()

	if got := c.Len(); got != 400 {
		t.Errorf("Len() = %d, want 400", got)
	}
}

func TestCatalogSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	c := New()
	c.Add("Yoga", ref("Yoga", "One", "https://cdn.cure.fit/1.mp4"))
	c.Add("Sleep", ref("Sleep", "Story", "https://cdn.cure.fit/2.mp3"))
	if err := c.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	for _, name := range []string{AllMediaFile, BySectionFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	if leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp")); len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(loaded.All(), c.All()) {
		t.Errorf("flat list changed across round trip:\n%+v\n%+v", loaded.All(), c.All())
	}
	if !reflect.DeepEqual(loaded.BySection(), c.BySection()) {
		t.Errorf("grouping changed across round trip")
	}
}

func TestCatalogSaveDeterministic(t *testing.T) {
	dir := t.TempDir()

	c := New()
	c.Add("Yoga", ref("Yoga", "One", "https://cdn.cure.fit/1.mp4"))
	c.Add("Dance", ref("Dance", "Two", "https://cdn.cure.fit/2.mp4"))

	if err := c.Save(dir); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(filepath.Join(dir, BySectionFile))
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Save(dir); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(filepath.Join(dir, BySectionFile))
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Error("repeated saves produced different bytes")
	}
}

func TestCatalogLoadRebuildsGrouping(t *testing.T) {
	dir := t.TempDir()

	refs := []models.MediaReference{
		ref("Yoga", "One", "https://cdn.cure.fit/1.mp4"),
		ref("Sleep", "Story", "https://cdn.cure.fit/2.mp3"),
		ref("Yoga", "Two", "https://cdn.cure.fit/3.mp4"),
	}
	data, err := json.MarshalIndent(refs, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, AllMediaFile), data, 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := len(c.BySection()["Yoga"]); got != 2 {
		t.Errorf("Yoga group has %d refs, want 2", got)
	}
	if got := c.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
}

func TestCatalogLoadMissing(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load of empty dir succeeded, want error")
	}
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()

	m, err := LoadManifest(dir)
	if err != nil {
		t.Fatalf("LoadManifest on empty dir: %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("fresh manifest has %d entries", m.Len())
	}

	m.MarkSuccess("https://cdn.cure.fit/1.mp4", "media/Yoga/Pack/One.mp4")
	m.MarkFailure("https://cdn.cure.fit/2.mp4", HTTPStatus(403), "media/Yoga/Pack/Two.mp4")
	m.MarkFailure("https://cdn.cure.fit/3.mp3", "connection reset", "media/Yoga/Pack/Three.mp3")
	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	again, err := LoadManifest(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !again.Done("https://cdn.cure.fit/1.mp4") {
		t.Error("success entry lost")
	}
	if again.Done("https://cdn.cure.fit/2.mp4") {
		t.Error("http failure counted as done")
	}
	if e, ok := again.Get("https://cdn.cure.fit/2.mp4"); !ok || e.Status != "http_403" {
		t.Errorf("entry = %+v, want http_403", e)
	}
	if e, ok := again.Get("https://cdn.cure.fit/3.mp3"); !ok || e.Status != "connection reset" {
		t.Errorf("entry = %+v, want error text preserved", e)
	}
}

func TestManifestPruneStale(t *testing.T) {
	dir := t.TempDir()
	root := t.TempDir()

	kept := filepath.Join("media", "kept.mp4")
	if err := os.MkdirAll(filepath.Join(root, "media"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, kept), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadManifest(dir)
	if err != nil {
		t.Fatal(err)
	}
	m.MarkSuccess("https://cdn.cure.fit/kept.mp4", "media/kept.mp4")
	m.MarkSuccess("https://cdn.cure.fit/gone.mp4", "media/gone.mp4")
	m.MarkFailure("https://cdn.cure.fit/fail.mp4", HTTPStatus(500), "media/fail.mp4")

	if dropped := m.PruneStale(root); dropped != 1 {
		t.Errorf("PruneStale dropped %d, want 1", dropped)
	}
	if !m.Done("https://cdn.cure.fit/kept.mp4") {
		t.Error("entry with existing file was dropped")
	}
	if m.Done("https://cdn.cure.fit/gone.mp4") {
		t.Error("entry with missing file survived")
	}
	if _, ok := m.Get("https://cdn.cure.fit/fail.mp4"); !ok {
		t.Error("failure entry should never be pruned")
	}
}
