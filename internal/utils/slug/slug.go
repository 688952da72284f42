// internal/utils/slug/slug.go
package slug

import (
	"regexp"
	"strings"
)

const (
	// MaxLen caps sanitized names so nested media paths stay well under
	// filesystem limits.
	MaxLen = 80

	// Fallback is used when sanitization leaves nothing usable.
	Fallback = "untitled"
)

var (
	unsafeRuns = regexp.MustCompile(`[<>:"/\\|?*\s]+`)
	underscore = regexp.MustCompile(`_+`)
)

// Sanitize turns free-form titles into filesystem-safe path segments.
// Zero-width joiners are dropped, reserved characters and whitespace runs
// collapse to single underscores, and leading/trailing dots and
// underscores are trimmed.
func Sanitize(text string) string {
	return SanitizeN(text, MaxLen)
}

// SanitizeN is Sanitize with an explicit length cap.
func SanitizeN(text string, maxLen int) string {
	text = strings.ReplaceAll(text, "‍", "")
	text = unsafeRuns.ReplaceAllString(text, "_")
	text = underscore.ReplaceAllString(text, "_")
	text = strings.Trim(text, "._")
	if runes := []rune(text); maxLen > 0 && len(runes) > maxLen {
		text = strings.Trim(string(runes[:maxLen]), "._")
	}
	if text == "" {
		return Fallback
	}
	return text
}
