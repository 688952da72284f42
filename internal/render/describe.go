package render

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

var tagPattern = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)

func looksLikeHTML(s string) bool {
	return tagPattern.MatchString(s)
}

// descriptionMarkdown prepares a pack description for the README. Plain
// text passes through untouched; descriptions carrying markup are
// sanitized and converted to Markdown. Conversion failures fall back to
// the raw text rather than dropping the description.
func descriptionMarkdown(desc string) string {
	desc = strings.TrimSpace(desc)
	if desc == "" || !looksLikeHTML(desc) {
		return desc
	}

	cleaned, err := sanitizeDescription(desc)
	if err != nil {
		log.Debug().Err(err).Msg("Description cleanup failed, keeping raw text")
		return desc
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	out, err := converter.ConvertString(cleaned)
	if err != nil {
		log.Debug().Err(err).Msg("Description conversion failed, keeping raw text")
		return desc
	}
	return strings.TrimSpace(out)
}

// sanitizeDescription strips active and structural elements from a
// description fragment, leaving inline formatting and links. Anchors
// keep only their href.
func sanitizeDescription(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, link, meta, noscript, iframe, svg, img, form, input, button").Remove()

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		if len(s.Nodes) == 0 {
			return
		}
		node := s.Nodes[0]
		var kept []html.Attribute
		for _, attr := range node.Attr {
			if node.Data == "a" && attr.Key == "href" {
				kept = append(kept, attr)
			}
		}
		node.Attr = kept
	})

	out, err := doc.Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// cellText flattens a value into a single Markdown table cell: markup is
// reduced to its text, whitespace collapsed, pipes escaped.
func cellText(s string) string {
	if looksLikeHTML(s) {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
