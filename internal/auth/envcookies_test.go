// internal/auth/envcookies_test.go
package auth

import (
	"testing"
)

func clearCookieEnv(t *testing.T) {
	t.Helper()
	for env := range cookieEnvMap {
		t.Setenv(env, "")
	}
	t.Setenv("CULTFIT_COOKIE_STRING", "")
}

func TestEnvSession(t *testing.T) {
	clearCookieEnv(t)
	t.Setenv("CULTFIT_AT_COOKIE", "token-a")
	t.Setenv("CULTFIT_ST_COOKIE", "token-b")

	session := EnvSession("https://www.cult.fit")
	if session == nil {
		t.Fatal("EnvSession returned nil with cookies set")
	}
	if session.Name != EnvSessionName {
		t.Errorf("Name = %q, want %q", session.Name, EnvSessionName)
	}
	if session.URL != "https://www.cult.fit" {
		t.Errorf("URL = %q", session.URL)
	}
	if len(session.Cookies) != 2 {
		t.Fatalf("got %d cookies, want 2: %+v", len(session.Cookies), session.Cookies)
	}
	// Env names are processed in sorted order, so "at" comes first.
	if session.Cookies[0].Name != "at" || session.Cookies[0].Value != "token-a" {
		t.Errorf("first cookie = %+v", session.Cookies[0])
	}
	if session.Cookies[1].Name != "st" || session.Cookies[1].Value != "token-b" {
		t.Errorf("second cookie = %+v", session.Cookies[1])
	}
}

func TestEnvSessionNoCookies(t *testing.T) {
	clearCookieEnv(t)
	if session := EnvSession("https://www.cult.fit"); session != nil {
		t.Errorf("EnvSession = %+v, want nil", session)
	}
}

func TestEnvSessionIgnoresPlaceholders(t *testing.T) {
	clearCookieEnv(t)
	t.Setenv("CULTFIT_AT_COOKIE", "your_at_cookie_value_here")
	t.Setenv("CULTFIT_ST_COOKIE", "None")

	if session := EnvSession("https://www.cult.fit"); session != nil {
		t.Errorf("placeholder values produced a session: %+v", session)
	}
}

func TestEnvSessionCookieString(t *testing.T) {
	clearCookieEnv(t)
	t.Setenv("CULTFIT_COOKIE_STRING", "at=abc; st=def")

	session := EnvSession("https://www.cult.fit")
	if session == nil {
		t.Fatal("EnvSession returned nil with a cookie string set")
	}
	if len(session.Cookies) != 2 {
		t.Fatalf("got %d cookies, want 2", len(session.Cookies))
	}
	if session.Cookies[0].Name != "at" || session.Cookies[0].Value != "abc" {
		t.Errorf("first cookie = %+v", session.Cookies[0])
	}
}

func TestParseCookiePairs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Cookie
	}{
		{"empty", "", nil},
		{
			"two pairs",
			"at=abc; st=def",
			[]Cookie{{Name: "at", Value: "abc", Path: "/"}, {Name: "st", Value: "def", Path: "/"}},
		},
		{
			"malformed fragment dropped",
			"loose; deviceId=xyz",
			[]Cookie{{Name: "deviceId", Value: "xyz", Path: "/"}},
		},
		{"empty name dropped", "=orphan", nil},
		{
			"spaces trimmed",
			"  at = abc ;",
			[]Cookie{{Name: "at", Value: "abc", Path: "/"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCookiePairs(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d cookies, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("cookie %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
