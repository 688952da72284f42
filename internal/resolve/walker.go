// internal/resolve/walker.go
package resolve

import (
	"net/url"
	"path"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cultcrawl/cultcrawl/internal/state"
	"github.com/cultcrawl/cultcrawl/internal/utils/slug"
	"github.com/cultcrawl/cultcrawl/pkg/models"
)

// directURLKeys are the mapping keys that may carry a playable URL,
// consulted in this order; the first non-empty string wins.
var directURLKeys = []string{"downloadUrl", "absoluteUrl", "URL"}

// DefaultMaxDepth bounds the tree walk. State trees are shallow in
// practice; anything deeper is either malformed or adversarial, and the
// walk truncates instead of recursing further.
const DefaultMaxDepth = 50

// DefaultGenericTitle is the placeholder for sessions whose tree node
// carries no usable title.
const DefaultGenericTitle = "Session"

// Walker collects media references from an untyped state subtree.
//
// The walk is depth-first in document order. Mapping nodes emit a
// reference when they carry a direct URL; a node's own title becomes
// the inherited title for its subtree, so deeper, more specific titles
// override shallower ones.
type Walker struct {
	MaxDepth     int
	GenericTitle string
}

func (w *Walker) maxDepth() int {
	if w.MaxDepth > 0 {
		return w.MaxDepth
	}
	return DefaultMaxDepth
}

func (w *Walker) generic() string {
	if w.GenericTitle != "" {
		return w.GenericTitle
	}
	return DefaultGenericTitle
}

// Collect walks the subtree and returns every media reference found,
// in document order.
func (w *Walker) Collect(node *state.Node, section, pack, desc, inherited string) []models.MediaReference {
	var out []models.MediaReference
	w.walk(node, section, pack, desc, inherited, 0, &out)
	return out
}

func (w *Walker) walk(node *state.Node, section, pack, desc, inherited string, depth int, out *[]models.MediaReference) {
	if node == nil {
		return
	}
	if depth > w.maxDepth() {
		log.Debug().Int("depth", depth).Msg("Walk truncated at depth limit")
		return
	}

	switch node.Kind() {
	case state.KindMapping:
		if mediaURL := node.FirstString(directURLKeys...); mediaURL != "" {
			title := node.StringField("title")
			if title == "" {
				title = node.StringField("subTitle")
			}
			if title == "" {
				title = inherited
			}
			if title == "" {
				title = w.generic()
			}
			*out = append(*out, newRef(section, pack, desc, title, mediaURL))
		}

		next := inherited
		if t := node.StringField("title"); t != "" {
			next = t
		}
		for _, m := range node.Members() {
			w.walk(m.Value, section, pack, desc, next, depth+1, out)
		}

	case state.KindSequence:
		for _, item := range node.Items() {
			w.walk(item, section, pack, desc, inherited, depth+1, out)
		}
	}
}

// newRef builds a MediaReference, deriving the media type and the
// suggested local path from the URL.
func newRef(section, pack, desc, title, mediaURL string) models.MediaReference {
	return typedRef(section, pack, desc, title, mediaURL, models.TypeForURL(mediaURL))
}

// typedRef is newRef with the media type already known, as when a
// deeplink names the rendition explicitly.
func typedRef(section, pack, desc, title, mediaURL string, mediaType models.MediaType) models.MediaReference {
	return models.MediaReference{
		Section:         section,
		Pack:            pack,
		PackDescription: desc,
		SessionTitle:    title,
		MediaType:       mediaType,
		SourceURL:       mediaURL,
		SuggestedPath:   localPath(section, pack, title, mediaURL),
	}
}

// localPath is where the download stage will put this asset, relative
// to the working directory and slash-separated regardless of OS.
func localPath(section, pack, title, mediaURL string) string {
	ext := extensionFor(mediaURL)

	name := title
	if name == "" {
		name = "session"
	}

	return path.Join(
		"media",
		slug.Sanitize(section),
		slug.Sanitize(pack),
		slug.Sanitize(name)+ext,
	)
}

func extensionFor(mediaURL string) string {
	urlPath := mediaURL
	if u, err := url.Parse(mediaURL); err == nil && u.Path != "" {
		urlPath = u.Path
	}
	if ext := path.Ext(urlPath); ext != "" {
		return ext
	}
	// Extension-less CDN URLs hint the kind in their final segment.
	if strings.HasSuffix(mediaURL, "audio") {
		return ".mp3"
	}
	return ".mp4"
}
