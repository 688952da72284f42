package engine

import (
	"context"
	"strings"

	"github.com/cultcrawl/cultcrawl/pkg/models"
)

// Fetcher is the interface both page fetch engines implement.
type Fetcher interface {
	// Fetch retrieves the page at pageURL.
	Fetch(ctx context.Context, pageURL string, opts models.FetchOptions) (*models.Page, error)

	// Name returns the name of the fetcher implementation
	Name() string
}

// LooksLikeShell reports whether html appears to be an unrendered
// single-page-app shell: script-heavy markup with an empty mount point
// and almost no content. Auto mode uses this to decide when a static
// fetch needs a browser retry.
func LooksLikeShell(html string) bool {
	lower := strings.ToLower(html)

	scriptCount := strings.Count(lower, "<script")
	if scriptCount == 0 {
		return false
	}

	for _, mount := range []string{
		`<div id="root"></div>`,
		`<div id="app"></div>`,
		`<div id="__next"></div>`,
	} {
		if strings.Contains(lower, mount) {
			return true
		}
	}

	// Script-heavy page with barely any rendered markup.
	if scriptCount > 5 && strings.Count(lower, "<div") < 3 {
		return true
	}

	return false
}
