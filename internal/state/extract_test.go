package state

import (
	"fmt"
	"testing"
)

func pageWith(scripts ...string) string {
	body := "<html><head>"
	for _, s := range scripts {
		body += "<script>" + s + "</script>"
	}
	return body + `</head><body><div id="root"></div></body></html>`
}

func TestFromHTMLNestedBraces(t *testing.T) {
	html := pageWith(
		"var analytics = {q: []};",
		`window.__PRELOADED_STATE__ = {"a":{"b":{"c":[1,2,{"d":"e"}]}},"f":"g"}`,
		"!function(){console.log('noise')}();",
	)

	node, ok := FromHTML(html)
	if !ok {
		t.Fatal("expected state to be found")
	}
	if got := node.Field("a").Field("b").Field("c").Len(); got != 3 {
		t.Errorf("nested sequence len = %d", got)
	}
	if got := node.StringField("f"); got != "g" {
		t.Errorf("f = %q", got)
	}
}

func TestFromHTMLUndefinedBecomesNull(t *testing.T) {
	html := pageWith(`window.__PRELOADED_STATE__ = {"user":undefined,"ok":true}`)

	node, ok := FromHTML(html)
	if !ok {
		t.Fatal("expected state to be found")
	}
	if node.Field("user").Kind() != KindNull {
		t.Errorf("undefined should decode as null, got %v", node.Field("user").Kind())
	}
	if b, _ := node.Field("ok").AsBool(); !b {
		t.Errorf("sibling value lost")
	}
}

func TestFromHTMLNoMarker(t *testing.T) {
	html := pageWith(`var other = {"state": 1};`)

	if node, ok := FromHTML(html); ok || node != nil {
		t.Errorf("expected no state, got %v %v", node, ok)
	}
}

func TestFromHTMLSkipsMalformedCandidate(t *testing.T) {
	// The first marker block is truncated; the second parses.
	html := pageWith(
		`window.__PRELOADED_STATE__ = {"broken": {`,
		`window.__PRELOADED_STATE__ = {"whole": 1}`,
	)

	node, ok := FromHTML(html)
	if !ok {
		t.Fatal("expected second candidate to parse")
	}
	if f, _ := node.Field("whole").AsNumber(); f != 1 {
		t.Errorf("whole = %v", f)
	}
}

func TestFromHTMLTrailingStatement(t *testing.T) {
	// Assignment followed by more script on the same line.
	html := pageWith(`window.__PRELOADED_STATE__ = {"x":{"y":1}};window.later=1;`)

	node, ok := FromHTML(html)
	if !ok {
		t.Fatal("expected state to be found")
	}
	if f, _ := node.Field("x").Field("y").AsNumber(); f != 1 {
		t.Errorf("x.y = %v", f)
	}
}

func TestFromHTMLIgnoresExternalScripts(t *testing.T) {
	html := `<html><head>` +
		`<script src="/bundle.js">window.__PRELOADED_STATE__ = {"fake":1}</script>` +
		`</head><body></body></html>`

	if _, ok := FromHTML(html); ok {
		t.Error("external script bodies must be ignored")
	}
}

func TestFromHTMLEvalFallbackUnquotedKeys(t *testing.T) {
	// Valid JavaScript, invalid JSON. The brace scan decode fails and
	// the script evaluator recovers it.
	html := pageWith(`window.__PRELOADED_STATE__ = {packs: [{title: "Sleep"}], count: 1 + 1};`)

	node, ok := FromHTML(html)
	if !ok {
		t.Fatal("expected evaluator to recover the state")
	}
	if got := node.Field("packs").Items()[0].StringField("title"); got != "Sleep" {
		t.Errorf("title = %q", got)
	}
	if f, _ := node.Field("count").AsNumber(); f != 2 {
		t.Errorf("count = %v, expressions should evaluate", f)
	}
}

func TestFromHTMLEvalFallbackJSONParse(t *testing.T) {
	// Assignment is not an object literal at all.
	html := pageWith(`window.__PRELOADED_STATE__ = JSON.parse("{\"a\":5}");`)

	node, ok := FromHTML(html)
	if !ok {
		t.Fatal("expected evaluator to recover the state")
	}
	if f, _ := node.Field("a").AsNumber(); f != 5 {
		t.Errorf("a = %v", f)
	}
}

func TestCustomMarker(t *testing.T) {
	html := pageWith(`window.__APP_STATE__ = {"v":"custom"}`)

	ex := NewExtractor("window.__APP_STATE__")
	node, ok := ex.FromHTML(html)
	if !ok {
		t.Fatal("expected custom marker state")
	}
	if got := node.StringField("v"); got != "custom" {
		t.Errorf("v = %q", got)
	}
}

func TestFromHTMLLargeState(t *testing.T) {
	inner := ""
	for i := 0; i < 200; i++ {
		if i > 0 {
			inner += ","
		}
		inner += fmt.Sprintf(`"k%d":{"items":[{"URL":"https://cdn/%d.mp4"}]}`, i, i)
	}
	html := pageWith(`window.__PRELOADED_STATE__ = {` + inner + `}`)

	node, ok := FromHTML(html)
	if !ok {
		t.Fatal("expected state to be found")
	}
	if node.Len() != 200 {
		t.Errorf("len = %d", node.Len())
	}
}
