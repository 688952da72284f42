// internal/engine/dynamic/fetcher.go
package dynamic

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/cultcrawl/cultcrawl/internal/auth"
	"github.com/cultcrawl/cultcrawl/internal/cache"
	"github.com/cultcrawl/cultcrawl/internal/engine"
	"github.com/cultcrawl/cultcrawl/internal/ratelimit"
	"github.com/cultcrawl/cultcrawl/internal/reqctx"
	"github.com/cultcrawl/cultcrawl/pkg/models"
)

// settleDelay gives page scripts a moment to hydrate the embedded state
// after navigation completes.
const settleDelay = 1500 * time.Millisecond

// Fetcher renders pages in headless Chrome. The crawl uses it as the
// fallback for pages whose static HTML turns out to be a bare app shell.
//
// The browser process is started on the first render and shared by every
// later fetch; each fetch runs in its own tab. Starting Chrome costs
// over a second, a tab costs almost nothing.
type Fetcher struct {
	cache     cache.Cache
	limiter   ratelimit.RateLimiter
	timeout   time.Duration
	userAgent string
	session   *auth.SessionData
	proxy     string
	cacheTTL  time.Duration

	mu            sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

// Options configures a dynamic Fetcher.
type Options struct {
	Cache     cache.Cache
	Limiter   ratelimit.RateLimiter
	Timeout   time.Duration
	UserAgent string
	Session   *auth.SessionData
	Proxy     string
	CacheTTL  time.Duration
}

// New creates a dynamic Fetcher. No browser is started until the first
// Fetch call needs one.
func New(opts Options) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 15 * time.Minute
	}
	return &Fetcher{
		cache:     opts.Cache,
		limiter:   opts.Limiter,
		timeout:   timeout,
		userAgent: opts.UserAgent,
		session:   opts.Session,
		proxy:     opts.Proxy,
		cacheTTL:  cacheTTL,
	}
}

// Name returns the name of this fetcher
func (f *Fetcher) Name() string {
	return "DynamicFetcher"
}

// Close shuts the shared browser down. Safe to call when no fetch ever
// ran, and more than once.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browserCancel != nil {
		f.browserCancel()
		f.browserCancel = nil
	}
	if f.allocCancel != nil {
		f.allocCancel()
		f.allocCancel = nil
	}
	f.browserCtx = nil
}

// browser returns the shared browser context, launching Chrome on the
// first call. The browser is rooted in the background context so it
// outlives individual fetches; Close tears it down.
func (f *Fetcher) browser() (context.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browserCtx != nil && f.browserCtx.Err() == nil {
		return f.browserCtx, nil
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("window-size", "1920,1080"),
		chromedp.Flag("disk-cache-size", "0"),
		chromedp.UserAgent(f.userAgent),
	}
	if chromePath := FindChrome(); chromePath != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(chromePath)}, allocOpts...)
	}
	if f.proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(f.proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, engine.NewFetchError(engine.ErrCodeBrowserCrash, "starting browser", err)
	}

	log.Debug().Msg("Browser started")
	f.browserCtx = browserCtx
	f.browserCancel = browserCancel
	f.allocCancel = allocCancel
	return f.browserCtx, nil
}

// Fetch renders the page in a fresh tab and returns its post-JavaScript
// HTML.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string, opts models.FetchOptions) (*models.Page, error) {
	start := time.Now()

	log.Debug().
		Str("req_id", reqctx.ID(ctx)).
		Str("url", pageURL).
		Str("fetcher", f.Name()).
		Msg("Starting fetch")

	cacheKey := cache.Key(pageURL, models.ModeDynamic)
	if f.cache != nil {
		if page, ok := f.cache.Get(cacheKey); ok {
			return page, nil
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, pageURL); err != nil {
			return nil, err
		}
	}

	browserCtx, err := f.browser()
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = f.timeout
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	defer tabCancel()
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, timeout)
	defer timeoutCancel()

	// The tab descends from the browser, not from the caller's context;
	// propagate the caller's cancellation by hand.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			tabCancel()
		case <-done:
		}
	}()

	var statusCode int64
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Type == network.ResourceTypeDocument && statusCode == 0 {
				statusCode = resp.Response.Status
			}
		}
	})

	tasks := []chromedp.Action{network.Enable()}
	if f.session != nil && len(f.session.Cookies) > 0 {
		tasks = append(tasks, setCookies(f.session))
	}

	var htmlContent, finalURL string
	tasks = append(tasks,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(settleDelay),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &htmlContent, chromedp.ByQuery),
	)

	if err := chromedp.Run(tabCtx, tasks...); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, engine.NewFetchError(engine.ErrCodeBrowserCrash, "rendering "+pageURL, err)
	}

	page := &models.Page{
		URL:          pageURL,
		FinalURL:     finalURL,
		StatusCode:   int(statusCode),
		HTML:         htmlContent,
		Mode:         models.ModeDynamic,
		FetchedAt:    time.Now(),
		ResponseTime: time.Since(start),
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

// setCookies installs session cookies in the browser before navigation.
// Cookies without a domain are registered against the session's URL.
func setCookies(session *auth.SessionData) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range session.Cookies {
			param := network.SetCookie(c.Name, c.Value).
				WithPath(c.Path).
				WithHTTPOnly(c.HTTPOnly).
				WithSecure(c.Secure)
			if c.Domain != "" {
				param = param.WithDomain(c.Domain)
			} else {
				param = param.WithURL(session.URL)
			}
			if err := param.Do(ctx); err != nil {
				log.Warn().Err(err).Str("cookie", c.Name).Msg("Failed to set cookie")
			}
		}
		return nil
	})
}
