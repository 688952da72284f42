// Package headers has small helpers for request header maps.
package headers

import (
	"fmt"
	"strings"
)

// Parse turns repeated "Name: value" strings into a header map. A pair
// without a colon or with an empty name is an error, so a mistyped
// --header flag fails loudly instead of being dropped.
func Parse(pairs []string) (map[string]string, error) {
	headers := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (want \"Name: value\")", pair)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// Merge layers header maps left to right; later maps win on conflicts.
// Nil maps are skipped and the result is never nil.
func Merge(maps ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}
