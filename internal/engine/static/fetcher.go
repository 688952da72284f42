// internal/engine/static/fetcher.go
package static

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cultcrawl/cultcrawl/internal/auth"
	"github.com/cultcrawl/cultcrawl/internal/cache"
	"github.com/cultcrawl/cultcrawl/internal/engine"
	"github.com/cultcrawl/cultcrawl/internal/ratelimit"
	"github.com/cultcrawl/cultcrawl/internal/reqctx"
	"github.com/cultcrawl/cultcrawl/internal/retry"
	headersutil "github.com/cultcrawl/cultcrawl/internal/utils/headers"
	"github.com/cultcrawl/cultcrawl/pkg/models"
)

// Fetcher retrieves pages over plain HTTP. It honors the per-host rate
// limit, retries throttle and upstream-failure statuses, and serves
// repeat URLs from the page cache so detail pages shared by several
// pack items cost one request.
type Fetcher struct {
	cache     cache.Cache
	limiter   ratelimit.RateLimiter
	client    *http.Client
	retryCfg  retry.Config
	userAgent string
	headers   map[string]string
	cacheTTL  time.Duration
}

// Options configures a static Fetcher.
type Options struct {
	Cache     cache.Cache
	Limiter   ratelimit.RateLimiter
	Client    *http.Client
	Retry     retry.Config
	UserAgent string
	Headers   map[string]string
	Session   *auth.SessionData
	CacheTTL  time.Duration
}

// New creates a static Fetcher. When a session is supplied its cookies
// are installed on the client's jar once, up front; the crawl never
// mutates the client mid-flight.
func New(opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	if opts.Session != nil {
		if jar := jarFromSession(opts.Session); jar != nil {
			client.Jar = jar
		}
	}

	retryCfg := opts.Retry
	if retryCfg.MaxAttempts == 0 {
		retryCfg = retry.DefaultConfig()
	}

	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 15 * time.Minute
	}

	// Explicit headers win over the ones stored with the session.
	headers := opts.Headers
	if opts.Session != nil && len(opts.Session.Headers) > 0 {
		headers = headersutil.Merge(opts.Session.Headers, opts.Headers)
	}

	return &Fetcher{
		cache:     opts.Cache,
		limiter:   opts.Limiter,
		client:    client,
		retryCfg:  retryCfg,
		userAgent: opts.UserAgent,
		headers:   headers,
		cacheTTL:  cacheTTL,
	}
}

// Name returns the name of this fetcher
func (f *Fetcher) Name() string {
	return "StaticFetcher"
}

// Fetch retrieves a page, following redirects, and returns its HTML.
// Statuses of 400 and above come back as errors carrying the code.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string, opts models.FetchOptions) (*models.Page, error) {
	start := time.Now()

	log.Debug().
		Str("req_id", reqctx.ID(ctx)).
		Str("url", pageURL).
		Str("fetcher", f.Name()).
		Msg("Starting fetch")

	cacheKey := cache.Key(pageURL, models.ModeStatic)
	if f.cache != nil {
		if page, ok := f.cache.Get(cacheKey); ok {
			return page, nil
		}
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var page *models.Page
	attempt := func() error {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx, pageURL); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return engine.NewFetchError(engine.ErrCodeValidation, "building request", err)
		}

		f.setHeaders(req, opts.Headers)

		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", pageURL, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			io.Copy(io.Discard, resp.Body)
			return retry.NewHTTPError(resp.StatusCode, resp.Status, pageURL)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading %s: %w", pageURL, err)
		}

		page = &models.Page{
			URL:          pageURL,
			FinalURL:     resp.Request.URL.String(),
			StatusCode:   resp.StatusCode,
			HTML:         string(body),
			Mode:         models.ModeStatic,
			FetchedAt:    time.Now(),
			ResponseTime: time.Since(start),
		}
		return nil
	}

	if err := retry.WithRetry(ctx, f.retryCfg, attempt); err != nil {
		return nil, err
	}

	if f.cache != nil {
		f.cache.Set(cacheKey, page, f.cacheTTL)
	}

	log.Debug().
		Str("req_id", reqctx.ID(ctx)).
		Str("url", pageURL).
		Int("status", page.StatusCode).
		Dur("response_time", page.ResponseTime).
		Int("bytes", len(page.HTML)).
		Msg("Fetch completed")

	return page, nil
}

func (f *Fetcher) setHeaders(req *http.Request, extra map[string]string) {
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	for key, value := range f.headers {
		req.Header.Set(key, value)
	}
	for key, value := range extra {
		req.Header.Set(key, value)
	}
}

// jarFromSession builds a cookie jar holding the session's cookies,
// registered against each cookie's own domain.
func jarFromSession(session *auth.SessionData) http.CookieJar {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil
	}

	byDomain := make(map[string][]*http.Cookie)
	for _, c := range session.Cookies {
		domain := c.Domain
		if domain == "" {
			if domain = urlHost(session.URL); domain == "" {
				continue
			}
		}
		cookie := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			HttpOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			cookie.Expires = time.Unix(int64(c.Expires), 0)
		}
		byDomain[domain] = append(byDomain[domain], cookie)
	}

	for domain, cookies := range byDomain {
		u := &url.URL{Scheme: "https", Host: trimDot(domain), Path: "/"}
		jar.SetCookies(u, cookies)
	}

	log.Debug().Int("cookies", len(session.Cookies)).Msg("Session cookies installed")
	return jar
}

func urlHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func trimDot(domain string) string {
	if len(domain) > 0 && domain[0] == '.' {
		return domain[1:]
	}
	return domain
}
