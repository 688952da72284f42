package slug

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain title unchanged",
			input:    "Deep_Relaxation",
			expected: "Deep_Relaxation",
		},
		{
			name:     "whitespace collapses to underscore",
			input:    "Deep  Sleep   Session",
			expected: "Deep_Sleep_Session",
		},
		{
			name:     "reserved characters replaced",
			input:    `calm: day 1 / "intro"`,
			expected: "calm_day_1_intro",
		},
		{
			name:     "mixed runs collapse to one underscore",
			input:    "a ?* b",
			expected: "a_b",
		},
		{
			name:     "leading and trailing dots trimmed",
			input:    "..hidden.",
			expected: "hidden",
		},
		{
			name:     "zero width joiner removed",
			input:    "med‍itation",
			expected: "meditation",
		},
		{
			name:     "empty input falls back",
			input:    "",
			expected: Fallback,
		},
		{
			name:     "only unsafe characters falls back",
			input:    "///***",
			expected: Fallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.input)
			if got != tt.expected {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeNLengthCap(t *testing.T) {
	long := strings.Repeat("a", 200)
	got := SanitizeN(long, 80)
	if len(got) != 80 {
		t.Errorf("expected 80 characters, got %d", len(got))
	}

	// Multi-byte runes must not be split mid-sequence.
	multi := strings.Repeat("é", 100)
	got = SanitizeN(multi, 80)
	if n := len([]rune(got)); n != 80 {
		t.Errorf("expected 80 runes, got %d", n)
	}
	if !strings.HasPrefix(multi, got) {
		t.Errorf("truncation corrupted runes: %q", got)
	}
}
