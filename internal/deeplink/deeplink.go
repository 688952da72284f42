// internal/deeplink/deeplink.go
package deeplink

import (
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cultcrawl/cultcrawl/internal/state"
	"github.com/cultcrawl/cultcrawl/pkg/models"
)

// Scheme is the app-internal URI prefix play actions use.
const Scheme = "curefit://"

// loginActionType marks actions that open the login modal instead of
// carrying a playable URL.
const loginActionType = "SHOW_LOGIN_MODAL"

// Ref is the media reference a deeplink URI carries. MediaURL may be
// empty: a URI can name a pack or content id without embedding a
// playable URL, so callers must check MediaURL before using it.
type Ref struct {
	MediaURL  string
	MediaType models.MediaType
	Title     string
	PackID    string
	ContentID string
}

// Decode decodes a deeplink carried by a state node. ok is false when
// the node is not a string or not a deeplink URI; neither case is an
// error.
func Decode(n *state.Node) (Ref, bool) {
	raw, isStr := n.AsString()
	if !isStr {
		return Ref{}, false
	}
	return DecodeString(raw)
}

// DecodeString decodes a raw deeplink URI string.
//
// The audio URL parameter is consulted before the video one on purpose:
// when a session carries both, the audio rendition is the one worth
// keeping.
func DecodeString(raw string) (Ref, bool) {
	if !strings.HasPrefix(raw, Scheme) {
		return Ref{}, false
	}

	var query string
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		query = raw[i+1:]
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		// ParseQuery fills in what it could read before failing.
		log.Debug().Err(err).Str("uri", raw).Msg("Deeplink query only partially parsed")
	}

	ref := Ref{
		Title:     values.Get("title"),
		PackID:    values.Get("packId"),
		ContentID: values.Get("contentId"),
	}

	if audio := values.Get("absoluteAudioUrl"); audio != "" {
		ref.MediaURL = unescapeMediaURL(audio)
		ref.MediaType = models.MediaAudio
	} else if video := values.Get("absoluteVideoUrl"); video != "" {
		ref.MediaURL = unescapeMediaURL(video)
		ref.MediaType = models.MediaVideo
	}

	return ref, true
}

// unescapeMediaURL strips one more level of percent-encoding. The site
// double-encodes media URLs inside deeplinks; titles arrive encoded
// once. PathUnescape keeps literal plus signs intact.
func unescapeMediaURL(s string) string {
	u, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return u
}

// IsLoginGate reports whether a node is a login-modal action: a mapping
// whose actionType says the content is gated behind sign-in.
func IsLoginGate(n *state.Node) bool {
	if n.Kind() != state.KindMapping {
		return false
	}
	return n.StringField("actionType") == loginActionType
}
