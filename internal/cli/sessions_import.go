// internal/cli/sessions_import.go
package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cultcrawl/cultcrawl/internal/auth"
	"github.com/cultcrawl/cultcrawl/internal/ui"
)

var (
	importFrom string
	importURL  string
)

var sessionsImportCmd = &cobra.Command{
	Use:   "import <session-name>",
	Short: "Create a session from .env cookies or piped browser cookies",
	Long: `Builds a named session without opening a browser, for headless
environments where interactive login is not possible.

By default the cookies come from the environment: the CULTFIT_*_COOKIE
variables and CULTFIT_COOKIE_STRING, with a .env file in the working
directory read first. Alternatively pipe cookies on stdin, either as
JSON ([{"name": ..., "value": ...}, ...]) or in the Netscape
cookies.txt format browser exporters produce.`,
	Example: `  # From .env / exported CULTFIT_* variables
  $ cultcrawl sessions import cultfit

  # From a cookies.txt export
  $ cultcrawl sessions import cultfit --from=netscape < cookies.txt

  # From JSON
  $ cultcrawl sessions import cultfit --from=json < cookies.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionsImport,
}

func init() {
	sessionsCmd.AddCommand(sessionsImportCmd)

	sessionsImportCmd.Flags().StringVar(&importFrom, "from", "env", "Cookie source: env, json, or netscape")
	sessionsImportCmd.Flags().StringVar(&importURL, "url", "", "Site the session belongs to (defaults to the configured base URL)")
}

func runSessionsImport(cmd *cobra.Command, args []string) error {
	cfg := getConfig(cmd)
	name := args[0]

	siteURL := importURL
	if siteURL == "" {
		siteURL = cfg.BaseURL
	}

	var cookies []auth.Cookie
	var err error
	switch importFrom {
	case "env":
		auth.LoadDotenv()
		env := auth.EnvSession(siteURL)
		if env == nil {
			return fmt.Errorf("no cookies in the environment; set CULTFIT_*_COOKIE variables or CULTFIT_COOKIE_STRING (a .env file works too)")
		}
		cookies = env.Cookies
	case "json":
		cookies, err = readJSONCookies(os.Stdin)
	case "netscape":
		cookies, err = readNetscapeCookies(os.Stdin)
	default:
		return fmt.Errorf("unsupported source %q (use env, json, or netscape)", importFrom)
	}
	if err != nil {
		return fmt.Errorf("import cookies: %w", err)
	}
	if len(cookies) == 0 {
		return fmt.Errorf("no cookies imported")
	}

	session := &auth.SessionData{
		Name:      name,
		URL:       siteURL,
		Cookies:   cookies,
		Headers:   make(map[string]string),
		CreatedAt: time.Now(),
	}
	// Session expiry follows the longest-lived imported cookie.
	for _, c := range cookies {
		if c.Expires <= 0 {
			continue
		}
		if expiry := time.Unix(int64(c.Expires), 0); expiry.After(session.ExpiresAt) {
			session.ExpiresAt = expiry
		}
	}

	if err := auth.SaveSession(session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	fmt.Printf("%s\n", ui.Success(fmt.Sprintf("Session %q created (%d cookies)", name, len(cookies))))
	if !session.ExpiresAt.IsZero() {
		fmt.Printf("Expires: %s\n", session.ExpiresAt.Format(time.RFC1123))
	}
	fmt.Printf("\nCrawl with it:\n  %s\n", ui.Bold("cultcrawl crawl --session="+name))
	return nil
}

func readJSONCookies(r io.Reader) ([]auth.Cookie, error) {
	var cookies []auth.Cookie
	if err := json.NewDecoder(r).Decode(&cookies); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return cookies, nil
}

// readNetscapeCookies parses the tab-separated cookies.txt format:
// domain, include-subdomains, path, secure, expires (epoch), name, value.
func readNetscapeCookies(r io.Reader) ([]auth.Cookie, error) {
	var cookies []auth.Cookie
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}

		cookie := auth.Cookie{
			Domain: fields[0],
			Path:   fields[2],
			Secure: strings.EqualFold(fields[3], "TRUE"),
			Name:   fields[5],
			Value:  fields[6],
		}
		if epoch, err := strconv.ParseFloat(fields[4], 64); err == nil && epoch > 0 {
			cookie.Expires = epoch
		}
		cookies = append(cookies, cookie)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cookies, nil
}
