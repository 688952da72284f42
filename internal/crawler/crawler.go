// Package crawler orchestrates a crawl: it discovers the content
// sections on the start page, pulls each section's embedded state,
// resolves every pack item into media references, and accumulates the
// result in a catalog.
package crawler

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cultcrawl/cultcrawl/internal/catalog"
	"github.com/cultcrawl/cultcrawl/internal/engine"
	"github.com/cultcrawl/cultcrawl/internal/reqctx"
	"github.com/cultcrawl/cultcrawl/internal/resolve"
	"github.com/cultcrawl/cultcrawl/internal/state"
	"github.com/cultcrawl/cultcrawl/internal/utils/slug"
	urlutil "github.com/cultcrawl/cultcrawl/internal/utils/url"
	"github.com/cultcrawl/cultcrawl/pkg/models"
)

// sectionPathMarker identifies section links on the start page; the
// path segment after it names the section.
const sectionPathMarker = "/live/mindfulness/"

// sectionLinkSelector matches anchors pointing at section pages.
const sectionLinkSelector = "a[href*='/live/mindfulness/']"

// browseStateKey is where a section page's state keeps its pack lists.
const browseStateKey = "cultDIYPackBrowse"

// Config configures a Crawler.
type Config struct {
	// BaseURL is the site root, e.g. https://www.cult.fit.
	BaseURL string
	// StartPath is the listing page holding section links.
	StartPath string
	// Mode picks the fetch engine; auto falls back from static to a
	// browser render when the static markup carries no state.
	Mode models.FetchMode
	// Parallel bounds concurrent section crawls. Zero means one.
	Parallel int
	// FetchOptions is passed through to every page fetch.
	FetchOptions models.FetchOptions
	// GenericTitle overrides the placeholder session title.
	GenericTitle string
}

// Crawler drives the crawl pipeline. Construct with New.
type Crawler struct {
	static    engine.Fetcher
	dynamic   engine.Fetcher
	extractor *state.Extractor
	resolver  *resolve.Resolver
	cfg       Config
}

// New wires a Crawler over the given fetch engines. dynamicFetcher may
// be nil when no browser is available; auto mode then stays static.
func New(staticFetcher, dynamicFetcher engine.Fetcher, cfg Config) *Crawler {
	if cfg.Parallel <= 0 {
		cfg.Parallel = 1
	}
	if cfg.Mode == "" {
		cfg.Mode = models.ModeAuto
	}

	c := &Crawler{
		static:    staticFetcher,
		dynamic:   dynamicFetcher,
		extractor: state.NewExtractor(state.Marker),
		cfg:       cfg,
	}
	c.resolver = resolve.New(resolve.Config{
		Fetcher:      c,
		BaseURL:      cfg.BaseURL,
		GenericTitle: cfg.GenericTitle,
	})
	return c
}

// Run crawls the whole property: discovery, then every section, with
// per-section failures logged and skipped. Section output lands in the
// catalog in discovery order regardless of crawl parallelism.
func (c *Crawler) Run(ctx context.Context) (*catalog.Catalog, error) {
	sections, err := c.DiscoverSections(ctx)
	if err != nil {
		return nil, err
	}

	results := make([][]models.MediaReference, len(sections))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Parallel)
	for i, sec := range sections {
		g.Go(func() error {
			refs, err := c.CrawlSection(gctx, sec)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn().Str("section", sec.Name).Err(err).Msg("Section crawl failed")
				return nil
			}
			results[i] = refs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cat := catalog.New()
	for i, sec := range sections {
		cat.Add(sec.Name, results[i]...)
	}

	log.Info().
		Int("sections", len(sections)).
		Int("media", cat.Len()).
		Int("unique", cat.UniqueCount()).
		Msg("Crawl finished")
	return cat, nil
}

// DiscoverSections fetches the start page and collects every section
// link on it, deduplicated by resolved URL, first occurrence wins.
// Failure here is fatal to the run; without the listing page there is
// nothing to crawl.
func (c *Crawler) DiscoverSections(ctx context.Context) ([]models.Section, error) {
	startURL := urlutil.ResolveURL(c.cfg.BaseURL, c.cfg.StartPath)

	page, err := c.fetchDocument(ctx, startURL)
	if err != nil {
		return nil, fmt.Errorf("fetch start page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse start page: %w", err)
	}

	seen := make(map[string]bool)
	var sections []models.Section
	doc.Find(sectionLinkSelector).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		full := urlutil.ResolveURL(c.cfg.BaseURL, href)
		if seen[full] {
			return
		}
		seen[full] = true
		sections = append(sections, models.Section{
			Name: sectionName(href),
			URL:  full,
		})
	})

	log.Info().Int("count", len(sections)).Msg("Sections discovered")
	return sections, nil
}

// CrawlSection pulls one section page's state and resolves every pack
// item under its browse widgets. A page with no usable state yields an
// empty result, not an error.
func (c *Crawler) CrawlSection(ctx context.Context, sec models.Section) ([]models.MediaReference, error) {
	root, ok, err := c.PageState(ctx, sec.URL)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Warn().Str("section", sec.Name).Msg("Section page carries no state")
		return nil, nil
	}

	browse := root.Field(browseStateKey)
	if browse == nil {
		log.Warn().Str("section", sec.Name).Msg("Section state has no pack browse data")
		return nil, nil
	}

	var refs []models.MediaReference
	packs := 0
	for _, widget := range browse.Field("widgets").Items() {
		for _, item := range widget.Field("items").Items() {
			pc := resolve.PackContext{
				Section:     sec.Name,
				Pack:        item.StringField("title"),
				Description: item.StringField("description"),
			}
			if pc.Pack == "" {
				pc.Pack = "Unknown Pack"
			}

			itemRefs := c.resolver.Resolve(ctx, item, pc)
			if len(itemRefs) > 0 {
				refs = append(refs, itemRefs...)
				packs++
			}
		}
	}

	log.Info().
		Str("section", sec.Name).
		Int("packs", packs).
		Int("media", len(refs)).
		Msg("Section crawled")
	return refs, nil
}

// PageState fetches a page and extracts its embedded state. In auto
// mode a static page without state triggers one browser-render retry;
// both attempts share one request id in the logs.
func (c *Crawler) PageState(ctx context.Context, pageURL string) (*state.Node, bool, error) {
	ctx = reqctx.WithRequestContext(ctx)

	first := c.cfg.Mode
	if first == models.ModeAuto {
		first = models.ModeStatic
	}

	page, err := c.fetchWith(ctx, pageURL, first)
	if err == nil {
		if node, ok := c.extractor.FromHTML(page.HTML); ok {
			return node, true, nil
		}
	}

	if c.cfg.Mode == models.ModeAuto && c.dynamic != nil {
		log.Debug().Str("url", pageURL).Msg("No state in static markup, rendering")
		rendered, rerr := c.fetchWith(ctx, pageURL, models.ModeDynamic)
		if rerr != nil {
			if err != nil {
				return nil, false, reqctx.NewRequestError(ctx, err)
			}
			log.Debug().Str("url", pageURL).Err(rerr).Msg("Render fallback failed")
			return nil, false, nil
		}
		node, ok := c.extractor.FromHTML(rendered.HTML)
		return node, ok, nil
	}

	if err != nil {
		return nil, false, reqctx.NewRequestError(ctx, err)
	}
	return nil, false, nil
}

// fetchDocument fetches a page for its markup rather than its state.
// Auto mode re-renders when the static response is only an app shell.
func (c *Crawler) fetchDocument(ctx context.Context, pageURL string) (*models.Page, error) {
	ctx = reqctx.WithRequestContext(ctx)

	if c.cfg.Mode != models.ModeAuto {
		return c.fetchWith(ctx, pageURL, c.cfg.Mode)
	}

	page, err := c.fetchWith(ctx, pageURL, models.ModeStatic)
	if err == nil && !engine.LooksLikeShell(page.HTML) {
		return page, nil
	}
	if c.dynamic == nil {
		return page, err
	}

	if err != nil {
		log.Debug().Str("url", pageURL).Err(err).Msg("Static fetch failed, rendering")
	} else {
		log.Debug().Str("url", pageURL).Msg("Static markup is an app shell, rendering")
	}
	return c.fetchWith(ctx, pageURL, models.ModeDynamic)
}

func (c *Crawler) fetchWith(ctx context.Context, pageURL string, mode models.FetchMode) (*models.Page, error) {
	opts := c.cfg.FetchOptions
	opts.Mode = mode

	if mode == models.ModeDynamic {
		if c.dynamic == nil {
			return nil, engine.ErrBrowserNotFound
		}
		return c.dynamic.Fetch(ctx, pageURL, opts)
	}
	return c.static.Fetch(ctx, pageURL, opts)
}

// sectionName derives a display name from a section link: the path
// segment after the marker, dashes to spaces, title-cased, slugified.
func sectionName(href string) string {
	seg := urlutil.PathSegmentAfter(href, sectionPathMarker)
	name := strings.ReplaceAll(seg, "-", " ")
	name = cases.Title(language.English).String(name)
	return slug.Sanitize(name)
}
