// internal/auth/envcookies.go
package auth

import (
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// EnvSessionName names the implicit session assembled from environment
// variables.
const EnvSessionName = "env"

// cookieEnvMap maps environment variables to the cult.fit cookie each
// one carries. "at" and "st" are the authentication pair; the rest are
// tracking cookies the site expects to see alongside them.
var cookieEnvMap = map[string]string{
	"CULTFIT_AT_COOKIE":             "at",
	"CULTFIT_ST_COOKIE":             "st",
	"CULTFIT_S_COOKIE":              "s",
	"CULTFIT_DEVICEID_COOKIE":       "deviceId",
	"CULTFIT_FBP_COOKIE":            "_fbp",
	"CULTFIT_GA_COOKIE":             "_ga",
	"CULTFIT_GA_V0XZM8114H_COOKIE":  "_ga_V0XZM8114H",
	"CULTFIT_GCL_AU_COOKIE":         "_gcl_au",
	"CULTFIT_GID_COOKIE":            "_gid",
	"CULTFIT_G_ENABLED_IDPS_COOKIE": "G_ENABLED_IDPS",
}

// LoadDotenv pulls a .env file from the working directory into the
// environment when one exists. Variables already set are never
// overridden.
func LoadDotenv() {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg(".env loaded")
	}
}

// EnvSession assembles a session from CULTFIT_* cookie variables plus
// an optional prebuilt CULTFIT_COOKIE_STRING. It returns nil when no
// usable cookie is set, which means the crawl runs in public mode.
// Cookies carry no domain; the fetchers register them against the
// session URL's host.
func EnvSession(siteURL string) *SessionData {
	names := make([]string, 0, len(cookieEnvMap))
	for env := range cookieEnvMap {
		names = append(names, env)
	}
	sort.Strings(names)

	var cookies []Cookie
	for _, env := range names {
		val := strings.TrimSpace(os.Getenv(env))
		if !usableCookieValue(val) {
			continue
		}
		cookies = append(cookies, Cookie{Name: cookieEnvMap[env], Value: val, Path: "/"})
	}

	cookies = append(cookies, ParseCookiePairs(os.Getenv("CULTFIT_COOKIE_STRING"))...)

	if len(cookies) == 0 {
		return nil
	}

	log.Debug().Int("cookies", len(cookies)).Msg("Using authentication cookies from environment")
	return &SessionData{
		Name:      EnvSessionName,
		URL:       siteURL,
		Cookies:   cookies,
		CreatedAt: time.Now(),
	}
}

// usableCookieValue filters out empty values and unedited .env.example
// placeholders like "your_at_cookie_value_here".
func usableCookieValue(v string) bool {
	if v == "" || strings.EqualFold(v, "none") {
		return false
	}
	if strings.HasPrefix(v, "your_") && strings.HasSuffix(v, "_here") {
		return false
	}
	return true
}

// ParseCookiePairs splits a raw "name=value; name=value" cookie header
// string into cookies. Malformed pairs are dropped.
func ParseCookiePairs(raw string) []Cookie {
	var cookies []Cookie
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		cookies = append(cookies, Cookie{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
			Path:  "/",
		})
	}
	return cookies
}
