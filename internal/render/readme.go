// Package render turns a media catalog into the human-facing artifacts:
// a Markdown README and a static streaming page under docs/. Both are
// regenerated wholesale from the catalog; when no catalog data is
// available the existing files are left untouched so a failed crawl
// never wipes the output of an earlier run.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cultcrawl/cultcrawl/internal/catalog"
	"github.com/cultcrawl/cultcrawl/pkg/models"
)

// ReadmeFile is the name of the generated Markdown index.
const ReadmeFile = "README.md"

// now is swapped out in tests for a fixed clock.
var now = time.Now

// pack is one pack's sessions in catalog order.
type pack struct {
	name        string
	description string
	sessions    []models.MediaReference
}

// SaveReadme renders the catalog as ReadmeFile under dir. An empty
// catalog is a no-op, keeping whatever README is already there.
func SaveReadme(cat *catalog.Catalog, dir string) error {
	if cat == nil || cat.Len() == 0 {
		log.Warn().Msg("No media data available, README left untouched")
		return nil
	}

	sections := cat.Sections()
	bySection := cat.BySection()

	var b strings.Builder
	b.WriteString("# CultFit MindLive Media Collection\n\n")
	fmt.Fprintf(&b, "**Last update:** %s\n\n", now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Sections:** %d\n\n", len(sections))
	fmt.Fprintf(&b, "**Total sessions:** %d\n\n", cat.UniqueCount())
	b.WriteString("---\n\n")

	b.WriteString("## Contents\n\n")
	for _, sec := range sections {
		fmt.Fprintf(&b, "- [%s](#%s)\n", sec, anchorFor(sec))
	}
	b.WriteString("\n")

	for _, sec := range sections {
		refs := bySection[sec]
		b.WriteString("<details>\n")
		fmt.Fprintf(&b, "<summary><strong>%s</strong> - %d sessions</summary>\n\n", sec, len(refs))

		for _, p := range groupPacks(refs) {
			fmt.Fprintf(&b, "#### %s (%d sessions)\n\n", p.name, len(p.sessions))
			if desc := descriptionMarkdown(p.description); desc != "" {
				b.WriteString(desc)
				b.WriteString("\n\n")
			}
			b.WriteString("| # | Session | Type | Link |\n")
			b.WriteString("|:-:|:--|:-:|:-:|\n")
			for i, ref := range p.sessions {
				fmt.Fprintf(&b, "| %d | %s | %s | [play](%s) |\n",
					i+1, cellText(ref.SessionTitle), ref.MediaType, ref.SourceURL)
			}
			b.WriteString("\n")
		}

		b.WriteString("</details>\n\n")
	}

	path := filepath.Join(dir, ReadmeFile)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing README: %w", err)
	}

	log.Info().
		Str("file", path).
		Int("sections", len(sections)).
		Int("sessions", cat.UniqueCount()).
		Msg("README regenerated")
	return nil
}

// anchorFor builds the in-page anchor GitHub derives from a heading.
func anchorFor(section string) string {
	return strings.ReplaceAll(strings.ToLower(section), " ", "-")
}

// groupPacks splits a section's references into packs sorted by name,
// keeping catalog order within each pack.
func groupPacks(refs []models.MediaReference) []pack {
	index := make(map[string]int)
	var packs []pack
	for _, ref := range refs {
		pos, ok := index[ref.Pack]
		if !ok {
			pos = len(packs)
			index[ref.Pack] = pos
			packs = append(packs, pack{name: ref.Pack, description: ref.PackDescription})
		}
		packs[pos].sessions = append(packs[pos].sessions, ref)
	}
	sort.Slice(packs, func(i, j int) bool { return packs[i].name < packs[j].name })
	return packs
}
