// internal/resolve/walker_test.go
package resolve

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/cultcrawl/cultcrawl/internal/state"
	"github.com/cultcrawl/cultcrawl/pkg/models"
)

func parseNode(t *testing.T, src string) *state.Node {
	t.Helper()
	var n state.Node
	if err := json.Unmarshal([]byte(src), &n); err != nil {
		t.Fatalf("parse state: %v", err)
	}
	return &n
}

func TestWalkerTitleInheritance(t *testing.T) {
	node := parseNode(t, `{
		"title": "Outer",
		"content": [
			{"URL": "https://cdn.cure.fit/a.mp4"},
			{"subTitle": "Inner", "URL": "https://cdn.cure.fit/b.mp4"}
		]
	}`)

	w := &Walker{}
	refs := w.Collect(node, "Yoga", "Morning Pack", "", "")

	if len(refs) != 2 {
		t.Fatalf("got %d refs, want 2", len(refs))
	}
	if refs[0].SessionTitle != "Outer" {
		t.Errorf("first title = %q, want inherited %q", refs[0].SessionTitle, "Outer")
	}
	if refs[1].SessionTitle != "Inner" {
		t.Errorf("second title = %q, want node subTitle %q", refs[1].SessionTitle, "Inner")
	}
}

func TestWalkerDeeperTitleOverrides(t *testing.T) {
	node := parseNode(t, `{
		"title": "Pack",
		"weeks": [
			{"title": "Week 1", "sessions": [{"URL": "https://cdn.cure.fit/w1.mp4"}]},
			{"sessions": [{"URL": "https://cdn.cure.fit/w2.mp4"}]}
		]
	}`)

	refs := (&Walker{}).Collect(node, "Yoga", "Pack", "", "")

	if len(refs) != 2 {
		t.Fatalf("got %d refs, want 2", len(refs))
	}
	if refs[0].SessionTitle != "Week 1" {
		t.Errorf("nested title = %q, want %q", refs[0].SessionTitle, "Week 1")
	}
	if refs[1].SessionTitle != "Pack" {
		t.Errorf("fallback title = %q, want outer %q", refs[1].SessionTitle, "Pack")
	}
}

func TestWalkerDirectURLKeyOrder(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "downloadUrl wins",
			src:  `{"downloadUrl": "https://cdn.cure.fit/d.mp4", "absoluteUrl": "https://cdn.cure.fit/a.mp4", "URL": "https://cdn.cure.fit/u.mp4"}`,
			want: "https://cdn.cure.fit/d.mp4",
		},
		{
			name: "absoluteUrl over URL",
			src:  `{"absoluteUrl": "https://cdn.cure.fit/a.mp4", "URL": "https://cdn.cure.fit/u.mp4"}`,
			want: "https://cdn.cure.fit/a.mp4",
		},
		{
			name: "empty downloadUrl skipped",
			src:  `{"downloadUrl": "", "URL": "https://cdn.cure.fit/u.mp4"}`,
			want: "https://cdn.cure.fit/u.mp4",
		},
		{
			name: "non-string downloadUrl skipped",
			src:  `{"downloadUrl": 42, "URL": "https://cdn.cure.fit/u.mp4"}`,
			want: "https://cdn.cure.fit/u.mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs := (&Walker{}).Collect(parseNode(t, tt.src), "s", "p", "", "")
			if len(refs) != 1 {
				t.Fatalf("got %d refs, want 1", len(refs))
			}
			if refs[0].SourceURL != tt.want {
				t.Errorf("source URL = %q, want %q", refs[0].SourceURL, tt.want)
			}
		})
	}
}

func TestWalkerMediaType(t *testing.T) {
	node := parseNode(t, `[
		{"title": "Calm", "URL": "https://cdn.cure.fit/calm.mp3"},
		{"title": "Flow", "URL": "https://cdn.cure.fit/flow.mp4"},
		{"title": "Rest", "URL": "https://cdn.cure.fit/rest"}
	]`)

	refs := (&Walker{}).Collect(node, "s", "p", "", "")
	if len(refs) != 3 {
		t.Fatalf("got %d refs, want 3", len(refs))
	}
	if refs[0].MediaType != models.MediaAudio {
		t.Errorf("mp3 type = %q, want audio", refs[0].MediaType)
	}
	if refs[1].MediaType != models.MediaVideo {
		t.Errorf("mp4 type = %q, want video", refs[1].MediaType)
	}
	if refs[2].MediaType != models.MediaVideo {
		t.Errorf("extension-less type = %q, want video", refs[2].MediaType)
	}
}

func TestWalkerGenericFallback(t *testing.T) {
	node := parseNode(t, `{"URL": "https://cdn.cure.fit/x.mp4"}`)

	refs := (&Walker{}).Collect(node, "s", "p", "", "")
	if len(refs) != 1 || refs[0].SessionTitle != "Session" {
		t.Fatalf("got %+v, want one ref titled Session", refs)
	}

	custom := (&Walker{GenericTitle: "Track"}).Collect(node, "s", "p", "", "")
	if len(custom) != 1 || custom[0].SessionTitle != "Track" {
		t.Fatalf("got %+v, want one ref titled Track", custom)
	}
}

func TestWalkerDepthLimit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString(`{"next":`)
	}
	b.WriteString(`{"URL": "https://cdn.cure.fit/deep.mp4"}`)
	for i := 0; i < 60; i++ {
		b.WriteString(`}`)
	}

	refs := (&Walker{}).Collect(parseNode(t, b.String()), "s", "p", "", "")
	if len(refs) != 0 {
		t.Errorf("got %d refs beyond the depth limit, want 0", len(refs))
	}

	// A raised limit reaches the same node.
	refs = (&Walker{MaxDepth: 100}).Collect(parseNode(t, b.String()), "s", "p", "", "")
	if len(refs) != 1 {
		t.Errorf("got %d refs with raised limit, want 1", len(refs))
	}
}

func TestWalkerNilNode(t *testing.T) {
	if refs := (&Walker{}).Collect(nil, "s", "p", "", ""); len(refs) != 0 {
		t.Errorf("nil node produced %d refs", len(refs))
	}
}

func TestWalkerDocumentOrder(t *testing.T) {
	node := parseNode(t, `{
		"z": {"title": "First", "URL": "https://cdn.cure.fit/1.mp4"},
		"a": {"title": "Second", "URL": "https://cdn.cure.fit/2.mp4"},
		"m": {"title": "Third", "URL": "https://cdn.cure.fit/3.mp4"}
	}`)

	refs := (&Walker{}).Collect(node, "s", "p", "", "")
	if len(refs) != 3 {
		t.Fatalf("got %d refs, want 3", len(refs))
	}
	for i, want := range []string{"First", "Second", "Third"} {
		if refs[i].SessionTitle != want {
			t.Errorf("refs[%d] = %q, want %q", i, refs[i].SessionTitle, want)
		}
	}
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		name     string
		section  string
		pack     string
		title    string
		mediaURL string
		want     string
	}{
		{
			name:     "extension from url path",
			section:  "Yoga", pack: "Morning Pack", title: "Sun Salutation",
			mediaURL: "https://cdn.cure.fit/media/sun.mp4",
			want:     "media/Yoga/Morning_Pack/Sun_Salutation.mp4",
		},
		{
			name:     "query string ignored",
			section:  "Yoga", pack: "Pack", title: "Flow",
			mediaURL: "https://cdn.cure.fit/flow.mp3?token=abc.def",
			want:     "media/Yoga/Pack/Flow.mp3",
		},
		{
			name:     "audio suffix without extension",
			section:  "Sleep", pack: "Stories", title: "Night",
			mediaURL: "https://cdn.cure.fit/assets/night/audio",
			want:     "media/Sleep/Stories/Night.mp3",
		},
		{
			name:     "default video extension",
			section:  "Sleep", pack: "Stories", title: "Night",
			mediaURL: "https://cdn.cure.fit/assets/night/stream",
			want:     "media/Sleep/Stories/Night.mp4",
		},
		{
			name:     "empty title placeholder",
			section:  "s", pack: "p", title: "",
			mediaURL: "https://cdn.cure.fit/x.mp4",
			want:     "media/s/p/session.mp4",
		},
		{
			name:     "unsafe characters sanitized",
			section:  "Dance Fitness", pack: "Bolly/Pop: Hits", title: "Warm <up>",
			mediaURL: "https://cdn.cure.fit/w.mp4",
			want:     "media/Dance_Fitness/Bolly_Pop_Hits/Warm_up.mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := localPath(tt.section, tt.pack, tt.title, tt.mediaURL)
			if got != tt.want {
				t.Errorf("localPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWalkerSuggestedPathsUnique(t *testing.T) {
	var entries []string
	for i := 0; i < 3; i++ {
		entries = append(entries, fmt.Sprintf(`{"title": "Day %d", "URL": "https://cdn.cure.fit/day%d.mp4"}`, i+1, i+1))
	}
	node := parseNode(t, "["+strings.Join(entries, ",")+"]")

	refs := (&Walker{}).Collect(node, "Yoga", "Pack", "", "")
	seen := make(map[string]bool)
	for _, ref := range refs {
		if seen[ref.SuggestedPath] {
			t.Errorf("duplicate suggested path %q", ref.SuggestedPath)
		}
		seen[ref.SuggestedPath] = true
	}
}
