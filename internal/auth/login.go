// internal/auth/login.go
package auth

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// LoginOptions configures the interactive login flow.
type LoginOptions struct {
	// SessionName is the name the captured session is saved under.
	SessionName string
	// URL opened for login, normally the site root where the login
	// modal lives.
	URL string
	// WaitSelector, when set, is the CSS selector whose appearance
	// marks a completed login. Without it the flow waits for Enter on
	// stdin.
	WaitSelector string
	// Timeout bounds the whole flow.
	Timeout time.Duration
	// Headers stored alongside the captured cookies.
	Headers map[string]string
	// RemoteDebuggingPort exposes Chrome DevTools on this port, for
	// driving the browser from another machine.
	RemoteDebuggingPort int
}

// InteractiveLogin opens a visible browser, lets the user complete the
// site's login flow by hand, then captures the resulting cookies as a
// session. The caller decides whether to save it.
func InteractiveLogin(opts LoginOptions) (*SessionData, error) {
	if opts.SessionName == "" {
		return nil, fmt.Errorf("session name is required")
	}
	if opts.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Minute
	}

	if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return nil, fmt.Errorf("interactive login needs a display server\n\n" +
			"In headless environments, put your browser cookies in .env\n" +
			"(CULTFIT_AT_COOKIE, CULTFIT_ST_COOKIE, ...) and run:\n" +
			"   cultcrawl sessions import <name>")
	}

	log.Info().
		Str("session", opts.SessionName).
		Str("url", opts.URL).
		Msg("Starting interactive login")

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", false),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("log-level", "3"),
		chromedp.WindowSize(1280, 720),
	}
	if path := os.Getenv("CHROME_PATH"); path != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(path)}, allocOpts...)
	}
	if opts.RemoteDebuggingPort > 0 {
		allocOpts = append(allocOpts,
			chromedp.Flag("remote-debugging-port", fmt.Sprintf("%d", opts.RemoteDebuggingPort)),
			chromedp.Flag("remote-debugging-address", "0.0.0.0"),
		)
		log.Info().Int("port", opts.RemoteDebuggingPort).Msg("Remote debugging enabled")
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	fmt.Println("\nBrowser opened. Complete the login in the window.")
	if err := chromedp.Run(browserCtx,
		network.Enable(),
		chromedp.Navigate(opts.URL),
	); err != nil {
		return nil, fmt.Errorf("opening login page: %w", err)
	}

	if opts.WaitSelector != "" {
		log.Info().Str("selector", opts.WaitSelector).Msg("Waiting for login to complete")
		if err := chromedp.Run(browserCtx,
			chromedp.WaitVisible(opts.WaitSelector, chromedp.ByQuery),
		); err != nil {
			return nil, fmt.Errorf("login timed out: %w", err)
		}
	} else {
		fmt.Println("Press Enter once you are logged in...")
		fmt.Scanln()
	}

	var cookies []*network.Cookie
	err := chromedp.Run(browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("extracting cookies: %w", err)
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("no cookies captured, login may have failed")
	}

	log.Info().Int("cookies", len(cookies)).Msg("Cookies captured")

	sessionCookies := make([]Cookie, len(cookies))
	for i, c := range cookies {
		sessionCookies[i] = Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		}
	}

	session := &SessionData{
		Name:      opts.SessionName,
		URL:       opts.URL,
		Cookies:   sessionCookies,
		Headers:   opts.Headers,
		CreatedAt: time.Now(),
	}

	// Session expiry follows the longest-lived captured cookie.
	var maxExpires float64
	for _, c := range cookies {
		if c.Expires > maxExpires {
			maxExpires = c.Expires
		}
	}
	if maxExpires > 0 {
		session.ExpiresAt = time.Unix(int64(maxExpires), 0)
	}

	return session, nil
}
