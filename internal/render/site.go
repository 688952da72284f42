package render

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/cultcrawl/cultcrawl/internal/catalog"
	"github.com/cultcrawl/cultcrawl/pkg/models"
)

// SiteDir is the directory the static streaming page is written to,
// relative to the output root.
const SiteDir = "docs"

type siteView struct {
	Sections []siteSection
}

type siteSection struct {
	Name   string
	Anchor string
	Packs  []sitePack
}

type sitePack struct {
	Name     string
	Sessions []models.MediaReference
}

// SaveSite writes docs/index.html plus its stylesheet and player script
// under dir. Media streams from the source URLs; nothing is embedded.
// An empty catalog is a no-op.
func SaveSite(cat *catalog.Catalog, dir string) error {
	if cat == nil || cat.Len() == 0 {
		log.Warn().Msg("No media data available, site not generated")
		return nil
	}

	siteDir := filepath.Join(dir, SiteDir)
	if err := os.MkdirAll(siteDir, 0o755); err != nil {
		return fmt.Errorf("creating site dir: %w", err)
	}

	var buf bytes.Buffer
	if err := siteTemplate.Execute(&buf, buildSiteView(cat)); err != nil {
		return fmt.Errorf("rendering site: %w", err)
	}

	files := map[string][]byte{
		"index.html": buf.Bytes(),
		"styles.css": []byte(stylesCSS),
		"app.js":     []byte(appJS),
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(siteDir, name), data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}

	log.Info().Str("dir", siteDir).Msg("Site generated")
	return nil
}

func buildSiteView(cat *catalog.Catalog) siteView {
	bySection := cat.BySection()
	var view siteView
	for _, sec := range cat.Sections() {
		section := siteSection{Name: sec, Anchor: anchorFor(sec)}
		for _, p := range groupPacks(bySection[sec]) {
			section.Packs = append(section.Packs, sitePack{Name: p.name, Sessions: p.sessions})
		}
		view.Sections = append(view.Sections, section)
	}
	return view
}

var siteTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width,initial-scale=1"/>
  <title>CultFit MindLive Sessions</title>
  <link rel="stylesheet" href="styles.css"/>
</head>
<body>
<h1>CultFit MindLive Sessions</h1>
<p>All content streams directly from the cult.fit CDN; no media is stored here.</p>
<nav><ul>
{{- range .Sections}}
  <li><a href="#{{.Anchor}}">{{.Name}}</a></li>
{{- end}}
</ul></nav>
<hr/>
{{- range .Sections}}
<section id="{{.Anchor}}">
<h2>{{.Name}}</h2>
<details open><summary>Show/Hide Packs</summary>
{{- range .Packs}}
<h3>{{.Name}}</h3>
{{- range .Sessions}}
<p><button class="play-btn" data-url="{{.SourceURL}}" data-type="{{.MediaType}}">{{.SessionTitle}}</button></p>
{{- end}}
{{- end}}
</details>
</section>
{{- end}}
<script src="app.js"></script>
</body>
</html>
`))

const stylesCSS = `body {
  font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif;
  max-width: 52rem;
  margin: 2rem auto;
  padding: 0 1rem 6rem;
  color: #24292f;
}
nav ul {
  list-style: none;
  padding: 0;
  display: flex;
  flex-wrap: wrap;
  gap: 0.75rem;
}
nav a {
  color: #0969da;
  text-decoration: none;
}
nav a:hover {
  text-decoration: underline;
}
section {
  margin-bottom: 2rem;
}
summary {
  cursor: pointer;
  font-weight: 600;
  margin-bottom: 0.5rem;
}
.play-btn {
  border: 1px solid #d0d7de;
  border-radius: 6px;
  background: #f6f8fa;
  padding: 0.4rem 0.8rem;
  cursor: pointer;
  font-size: 0.95rem;
}
.play-btn:hover {
  background: #eaeef2;
}
#player {
  position: fixed;
  bottom: 0;
  left: 0;
  width: 100%;
  background: #ffffff;
  border-top: 1px solid #d0d7de;
}
video#player {
  max-height: 40vh;
  background: #000000;
}
`

// appJS keeps a single shared player at the bottom of the page;
// starting one session stops whatever else was playing.
const appJS = `document.addEventListener('click', function (ev) {
  const btn = ev.target.closest('.play-btn');
  if (!btn) {
    return;
  }
  const wantTag = btn.dataset.type === 'video' ? 'video' : 'audio';
  let player = document.getElementById('player');
  if (player && player.tagName.toLowerCase() !== wantTag) {
    player.pause();
    player.remove();
    player = null;
  }
  if (!player) {
    player = document.createElement(wantTag);
    player.id = 'player';
    player.controls = true;
    document.body.appendChild(player);
  }
  if (player.src === btn.dataset.url && !player.paused) {
    player.pause();
    return;
  }
  player.src = btn.dataset.url;
  player.play();
});
`
