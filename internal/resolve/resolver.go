// internal/resolve/resolver.go
package resolve

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/cultcrawl/cultcrawl/internal/deeplink"
	"github.com/cultcrawl/cultcrawl/internal/state"
	urlutil "github.com/cultcrawl/cultcrawl/internal/utils/url"
	"github.com/cultcrawl/cultcrawl/pkg/models"
)

// detailLinkKeys name the places a pack item may store a link to its
// own detail page, consulted in order.
var detailLinkKeys = []string{"link", "action", "deeplink", "slug"}

// PackContext carries the section and pack identity every reference
// resolved from one item shares.
type PackContext struct {
	Section     string
	Pack        string
	Description string
}

// DetailFetcher loads a site page and returns its embedded state tree.
// ok is false when the page has no recognizable state; a non-nil error
// means the page could not be fetched at all.
type DetailFetcher interface {
	PageState(ctx context.Context, pageURL string) (*state.Node, bool, error)
}

// Config configures a Resolver. The zero value resolves items without
// detail-page enrichment.
type Config struct {
	// Fetcher loads pack detail pages. Nil disables step five.
	Fetcher DetailFetcher
	// BaseURL resolves site-relative detail links.
	BaseURL string
	// GenericTitle overrides the placeholder session title.
	GenericTitle string
	// MaxDepth overrides the tree walk depth limit.
	MaxDepth int
}

// Resolver turns one pack item from a section listing into its media
// references. Resolution tries, in order: the item's intro and play
// actions, its content list, its content mapping, a full tree walk,
// and finally the pack's own detail page. Duplicate URLs collapse to
// one reference, preferring descriptive titles over placeholders.
type Resolver struct {
	fetcher DetailFetcher
	baseURL string
	generic string
	walker  *Walker

	loginWarn sync.Once
}

func New(cfg Config) *Resolver {
	generic := cfg.GenericTitle
	if generic == "" {
		generic = DefaultGenericTitle
	}
	return &Resolver{
		fetcher: cfg.Fetcher,
		baseURL: cfg.BaseURL,
		generic: generic,
		walker: &Walker{
			MaxDepth:     cfg.MaxDepth,
			GenericTitle: generic,
		},
	}
}

// Resolve collects every media reference reachable from item. The
// result is deduplicated by source URL and safe to call concurrently
// for distinct items.
func (r *Resolver) Resolve(ctx context.Context, item *state.Node, pc PackContext) []models.MediaReference {
	var found []models.MediaReference

	found = append(found, r.fromActions(item, pc)...)
	found = append(found, r.fromContent(item, pc)...)
	found = append(found, r.walker.Collect(item.Field("content"), pc.Section, pc.Pack, pc.Description, "")...)
	found = append(found, r.fromDetailPage(ctx, item, pc)...)

	return dedupe(found, r.generic)
}

// fromActions decodes the item's packIntroAction and playAction URIs.
// The URI's own title wins; otherwise the action gets a fixed name.
func (r *Resolver) fromActions(item *state.Node, pc PackContext) []models.MediaReference {
	var out []models.MediaReference
	for _, src := range []struct{ key, fallback string }{
		{"packIntroAction", "Intro"},
		{"playAction", "Main"},
	} {
		action := item.Field(src.key)
		if action == nil {
			continue
		}
		if deeplink.IsLoginGate(action) {
			r.warnLoginGated()
			continue
		}
		ref, ok := deeplink.Decode(action)
		if !ok || ref.MediaURL == "" {
			continue
		}
		title := ref.Title
		if title == "" {
			title = src.fallback
		}
		out = append(out, typedRef(pc.Section, pc.Pack, pc.Description, title, ref.MediaURL, ref.MediaType))
	}
	return out
}

// fromContent handles the two typed shapes of the content field: a
// list of session entries, or a single mapping with a direct URL.
func (r *Resolver) fromContent(item *state.Node, pc PackContext) []models.MediaReference {
	content := item.Field("content")
	var out []models.MediaReference

	switch content.Kind() {
	case state.KindSequence:
		for i, el := range content.Items() {
			fallback := el.StringField("title")
			if fallback == "" {
				fallback = fmt.Sprintf("%s %d", r.generic, i+1)
			}

			// A present playAction claims the element; direct URL keys
			// are only consulted without one. The tree walk still sweeps
			// up anything this skips.
			if play := el.Field("playAction"); play != nil {
				if deeplink.IsLoginGate(play) {
					r.warnLoginGated()
				} else if ref, ok := deeplink.Decode(play); ok && ref.MediaURL != "" {
					title := ref.Title
					if title == "" {
						title = fallback
					}
					out = append(out, typedRef(pc.Section, pc.Pack, pc.Description, title, ref.MediaURL, ref.MediaType))
				}
				continue
			}
			if mediaURL := el.FirstString(directURLKeys...); mediaURL != "" {
				out = append(out, newRef(pc.Section, pc.Pack, pc.Description, fallback, mediaURL))
			}
		}

	case state.KindMapping:
		if mediaURL := content.FirstString(directURLKeys...); mediaURL != "" {
			title := content.FirstString("title", "subTitle")
			if title == "" {
				title = r.generic
			}
			out = append(out, newRef(pc.Section, pc.Pack, pc.Description, title, mediaURL))
		}
	}

	return out
}

// fromDetailPage follows the item's detail link, extracts the detail
// page's state, and mines its product widgets and pack content. Any
// failure along the way only costs the enrichment, never the crawl.
func (r *Resolver) fromDetailPage(ctx context.Context, item *state.Node, pc PackContext) []models.MediaReference {
	if r.fetcher == nil {
		return nil
	}
	link := detailLink(item)
	if link == "" {
		return nil
	}

	pageURL := urlutil.ResolveURL(r.baseURL, link)

	root, ok, err := r.fetcher.PageState(ctx, pageURL)
	if err != nil {
		log.Warn().Str("url", pageURL).Err(err).Msg("Pack detail fetch failed")
		return nil
	}
	if !ok {
		log.Debug().Str("url", pageURL).Msg("Pack detail page carries no state")
		return nil
	}

	pack := firstMappingValue(root.Field("cultDIYPack"))
	if pack == nil {
		return nil
	}

	var out []models.MediaReference
	for _, widget := range pack.Field("productWidgets").Items() {
		for _, itm := range widget.Field("items").Items() {
			out = append(out, r.fromDetailItem(itm, pc)...)
		}
	}

	// The pack-level content tree inherits the pack title, so bare
	// entries still get a meaningful name.
	out = append(out, r.walker.Collect(pack.Field("content"), pc.Section, pc.Pack, pc.Description, pc.Pack)...)

	return out
}

func (r *Resolver) fromDetailItem(itm *state.Node, pc PackContext) []models.MediaReference {
	if play := itm.Field("playAction"); play != nil {
		if deeplink.IsLoginGate(play) {
			r.warnLoginGated()
		} else if ref, ok := deeplink.Decode(play); ok && ref.MediaURL != "" {
			title := ref.Title
			if title == "" {
				title = itm.StringField("title")
			}
			if title == "" {
				title = r.generic
			}
			return []models.MediaReference{typedRef(pc.Section, pc.Pack, pc.Description, title, ref.MediaURL, ref.MediaType)}
		}
	}

	if mediaURL := itm.FirstString(directURLKeys...); mediaURL != "" {
		title := itm.FirstString("title", "subTitle")
		if title == "" {
			title = r.generic
		}
		return []models.MediaReference{newRef(pc.Section, pc.Pack, pc.Description, title, mediaURL)}
	}

	return r.walker.Collect(itm.Field("content"), pc.Section, pc.Pack, pc.Description, itm.StringField("title"))
}

func (r *Resolver) warnLoginGated() {
	r.loginWarn.Do(func() {
		log.Warn().Msg("Some packs are login-gated; run 'login' or 'sessions import' and crawl with --session to include them")
	})
}

// detailLink returns the item's site-relative detail path, or "" when
// none of the candidate keys holds one. Values that are not strings or
// not site-relative are skipped in favor of the next key.
func detailLink(item *state.Node) string {
	for _, key := range detailLinkKeys {
		if v := item.StringField(key); urlutil.IsSiteRelative(v) {
			return v
		}
		if key == "action" {
			if v := item.Field("moreAction").StringField("url"); urlutil.IsSiteRelative(v) {
				return v
			}
		}
	}
	return ""
}

// firstMappingValue returns the first member value of n that is itself
// a mapping, in document order. Detail state keys packs by an opaque
// id, so position is the only stable handle.
func firstMappingValue(n *state.Node) *state.Node {
	for _, m := range n.Members() {
		if m.Value.Kind() == state.KindMapping {
			return m.Value
		}
	}
	return nil
}

// dedupe collapses references sharing a source URL. The first
// occurrence keeps its position; a later occurrence replaces it only
// when the earlier title is a generic placeholder and the later one is
// not.
func dedupe(refs []models.MediaReference, generic string) []models.MediaReference {
	genericLower := strings.ToLower(generic)
	isGeneric := func(title string) bool {
		return strings.HasPrefix(strings.ToLower(title), genericLower)
	}

	seen := make(map[string]int, len(refs))
	out := make([]models.MediaReference, 0, len(refs))
	for _, ref := range refs {
		pos, dup := seen[ref.SourceURL]
		if !dup {
			seen[ref.SourceURL] = len(out)
			out = append(out, ref)
			continue
		}
		if isGeneric(out[pos].SessionTitle) && !isGeneric(ref.SessionTitle) {
			out[pos] = ref
		}
	}
	return out
}
