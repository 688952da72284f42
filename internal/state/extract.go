// internal/state/extract.go
package state

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// Marker is the global the site assigns its server-rendered state to.
const Marker = "window.__PRELOADED_STATE__"

var undefinedToken = regexp.MustCompile(`\bundefined\b`)

// Extractor locates the embedded state object in page HTML.
//
// The zero value uses the site's standard marker. Extraction is a
// best-effort scan: a page without the marker, or whose candidate
// blocks all fail to decode, yields (nil, false) rather than an error.
type Extractor struct {
	// Marker overrides the global identifier to look for.
	Marker string

	assignRe *regexp.Regexp
}

// NewExtractor returns an Extractor for the given marker ("" means the
// site default).
func NewExtractor(marker string) *Extractor {
	if marker == "" {
		marker = Marker
	}
	return &Extractor{
		Marker:   marker,
		assignRe: regexp.MustCompile(regexp.QuoteMeta(marker) + `\s*=\s*`),
	}
}

func (e *Extractor) marker() string {
	if e.Marker == "" {
		return Marker
	}
	return e.Marker
}

func (e *Extractor) assignment() *regexp.Regexp {
	if e.assignRe == nil {
		e.assignRe = regexp.MustCompile(regexp.QuoteMeta(e.marker()) + `\s*=\s*`)
	}
	return e.assignRe
}

// FromHTML scans the page's inline script blocks for the marker
// assignment and decodes the assigned object. The ok result is false
// when no state is present; that is an expected outcome for pages
// without embedded state, not a failure.
func (e *Extractor) FromHTML(html string) (*Node, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Warn().Err(err).Msg("Unparseable HTML, no embedded state")
		return nil, false
	}

	marker := e.marker()
	var candidates []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		text := s.Text()
		if strings.Contains(text, marker) {
			candidates = append(candidates, text)
		}
	})

	for _, script := range candidates {
		if node, ok := e.parseAssignment(script); ok {
			return node, true
		}
	}

	// Strict JSON decoding failed everywhere; the state may be valid
	// JavaScript that is not valid JSON. Let a JS engine have a go.
	for _, script := range candidates {
		if node, ok := evalScript(script, marker); ok {
			log.Debug().Msg("Embedded state recovered by script evaluation")
			return node, true
		}
	}

	return nil, false
}

// parseAssignment carves the assigned object literal out of script text
// by balanced-brace counting and decodes it.
func (e *Extractor) parseAssignment(script string) (*Node, bool) {
	loc := e.assignment().FindStringIndex(script)
	if loc == nil {
		return nil, false
	}

	rest := script[loc[1]:]
	if len(rest) == 0 || rest[0] != '{' {
		return nil, false
	}

	depth := 0
	end := -1
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		// Truncated object, nothing to decode.
		return nil, false
	}

	jsonText := undefinedToken.ReplaceAllString(rest[:end], "null")

	var node Node
	if err := json.Unmarshal([]byte(jsonText), &node); err != nil {
		log.Debug().Err(err).Msg("Candidate state block failed to decode")
		return nil, false
	}
	return &node, true
}

// FromHTML extracts the embedded state using the default marker.
func FromHTML(html string) (*Node, bool) {
	return NewExtractor("").FromHTML(html)
}
