package engine

import (
	"errors"
	"strings"
	"testing"
)

func TestLooksLikeShell(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{
			name: "empty root mount",
			html: `<html><head><script src="/bundle.js"></script></head><body><div id="root"></div></body></html>`,
			want: true,
		},
		{
			name: "empty app mount",
			html: `<script src="/main.js"></script><div id="app"></div>`,
			want: true,
		},
		{
			name: "empty next mount",
			html: `<script>init()</script><div id="__next"></div>`,
			want: true,
		},
		{
			name: "hydrated root is not a shell",
			html: `<script src="/bundle.js"></script><div id="root"><h1>Catalog</h1><div>a</div><div>b</div></div>`,
			want: false,
		},
		{
			name: "no scripts at all",
			html: `<div id="root"></div>`,
			want: false,
		},
		{
			name: "script heavy with no markup",
			html: strings.Repeat(`<script src="/chunk.js"></script>`, 6) + `<div>loading</div>`,
			want: true,
		},
		{
			name: "script heavy but rendered",
			html: strings.Repeat(`<script src="/chunk.js"></script>`, 6) + strings.Repeat(`<div>content</div>`, 5),
			want: false,
		},
		{
			name: "empty document",
			html: "",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooksLikeShell(tt.html); got != tt.want {
				t.Errorf("LooksLikeShell = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFetchErrorMessage(t *testing.T) {
	underlying := errors.New("connection refused")

	err := NewFetchError(ErrCodeNetworkError, "fetching page", underlying)
	msg := err.Error()
	for _, want := range []string{"NETWORK_ERROR", "fetching page", "connection refused"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}

	bare := NewFetchError(ErrCodeTimeout, "rendering page", nil)
	if !strings.Contains(bare.Error(), "TIMEOUT") {
		t.Errorf("Error() = %q, missing code", bare.Error())
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	underlying := errors.New("boom")
	err := NewFetchError(ErrCodeBrowserCrash, "rendering", underlying)

	if !errors.Is(err, underlying) {
		t.Error("expected errors.Is to reach the underlying error")
	}
}

func TestFetchErrorIsMatchesOnCode(t *testing.T) {
	err := NewFetchError(ErrCodeTimeout, "fetch", nil)

	if !errors.Is(err, &FetchError{Code: ErrCodeTimeout}) {
		t.Error("expected a code match")
	}
	if errors.Is(err, &FetchError{Code: ErrCodeBadStatus}) {
		t.Error("expected no match for a different code")
	}
}

func TestFetchErrorBuilders(t *testing.T) {
	err := NewFetchError(ErrCodeBadStatus, "fetch", nil).WithStatus(503).WithRetry()

	if err.GetStatusCode() != 503 {
		t.Errorf("GetStatusCode = %d, want 503", err.GetStatusCode())
	}
	if !err.Retry {
		t.Error("expected the error to be marked retryable")
	}
}
