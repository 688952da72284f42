// Package app wires one run together: logging, the page cache, rate
// limiters, proxies, the fetch engines and the crawler. Commands build
// an Application once and pull whatever pieces they need from it.
package app

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cultcrawl/cultcrawl/internal/auth"
	"github.com/cultcrawl/cultcrawl/internal/cache"
	"github.com/cultcrawl/cultcrawl/internal/config"
	"github.com/cultcrawl/cultcrawl/internal/crawler"
	"github.com/cultcrawl/cultcrawl/internal/engine"
	"github.com/cultcrawl/cultcrawl/internal/engine/dynamic"
	"github.com/cultcrawl/cultcrawl/internal/engine/static"
	"github.com/cultcrawl/cultcrawl/internal/proxy"
	"github.com/cultcrawl/cultcrawl/internal/ratelimit"
	"github.com/cultcrawl/cultcrawl/internal/ui"
	"github.com/cultcrawl/cultcrawl/pkg/models"
)

// Application holds the long-lived dependencies of a run.
type Application struct {
	Config  *config.Config
	Cache   cache.Cache
	Proxies *proxy.Pool
	Client  *http.Client
	Session *auth.SessionData

	Static  *static.Fetcher
	Dynamic *dynamic.Fetcher
	Crawler *crawler.Crawler
}

// New builds an Application from cfg. The global logger is configured
// as a side effect, so every later log line honors the run's level and
// color settings.
func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	SetupLogging(cfg)

	session, err := resolveSession(cfg)
	if err != nil {
		return nil, err
	}

	pageCache := cache.NewMemoryCache(cfg.CacheMaxSizeBytes)
	pool := proxy.NewPool(cfg.Proxies)
	client := newHTTPClient(cfg, pool)

	staticFetcher := static.New(static.Options{
		Cache:     pageCache,
		Limiter:   ratelimit.NewHostLimiter(cfg.StaticRateLimitRPS, cfg.StaticRateLimitBurst),
		Client:    client,
		UserAgent: cfg.UserAgent,
		Headers:   cfg.Headers,
		Session:   session,
		CacheTTL:  cfg.CacheTTL,
	})

	// Browser renders are paced separately from plain HTTP: they are
	// heavier on the target and an order of magnitude slower locally.
	// Without a Chrome binary the crawl stays static; auto mode then
	// has nowhere to fall back to.
	var dynamicFetcher *dynamic.Fetcher
	var crawlDynamic engine.Fetcher
	if dynamic.FindChrome() != "" {
		dynamicFetcher = dynamic.New(dynamic.Options{
			Cache:     pageCache,
			Limiter:   ratelimit.NewHostLimiter(cfg.DynamicRateLimitRPS, cfg.DynamicRateLimitBurst),
			Timeout:   cfg.HTTPTimeout,
			UserAgent: cfg.UserAgent,
			Session:   session,
			Proxy:     pool.Next(),
			CacheTTL:  cfg.CacheTTL,
		})
		crawlDynamic = dynamicFetcher
	} else {
		log.Warn().Msg("No Chrome found, dynamic rendering disabled")
	}

	crawl := crawler.New(staticFetcher, crawlDynamic, crawler.Config{
		BaseURL:   cfg.BaseURL,
		StartPath: cfg.StartPath,
		Mode:      models.FetchMode(cfg.Mode),
		Parallel:  cfg.Parallel,
		FetchOptions: models.FetchOptions{
			Headers: cfg.Headers,
			Timeout: cfg.HTTPTimeout,
		},
	})

	return &Application{
		Config:  cfg,
		Cache:   pageCache,
		Proxies: pool,
		Client:  client,
		Session: session,
		Static:  staticFetcher,
		Dynamic: dynamicFetcher,
		Crawler: crawl,
	}, nil
}

// Close releases pooled resources, including the shared browser if one
// was started. Call once at process exit.
func (a *Application) Close() {
	if a.Dynamic != nil {
		a.Dynamic.Close()
	}
	if a.Cache != nil {
		a.Cache.Close()
	}
	if a.Client != nil {
		a.Client.CloseIdleConnections()
	}
}

// SetupLogging configures the global zerolog logger from cfg. Called
// once per process, before anything logs.
func SetupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	noColor := cfg.NoColor ||
		(!isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()))
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	})
	if cfg.NoColor {
		ui.SetEnabled(false)
	}
}

// resolveSession picks the cookies for the run: a named saved session
// when --session was given, otherwise whatever the environment offers.
// Returning a nil session means the crawl runs anonymously.
func resolveSession(cfg *config.Config) (*auth.SessionData, error) {
	if cfg.SessionName != "" {
		session, err := auth.LoadSession(cfg.SessionName)
		if err != nil {
			return nil, fmt.Errorf("session %q: %w", cfg.SessionName, err)
		}
		log.Debug().Str("session", cfg.SessionName).
			Int("cookies", len(session.Cookies)).Msg("Session loaded")
		return session, nil
	}
	if session := auth.EnvSession(cfg.BaseURL); session != nil {
		log.Debug().Int("cookies", len(session.Cookies)).
			Msg("Using cookies from the environment")
		return session, nil
	}
	return nil, nil
}

func newHTTPClient(cfg *config.Config, pool *proxy.Pool) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
	}
	if pool.Size() > 0 {
		transport.Proxy = pool.TransportProxy()
	}
	return &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: transport,
	}
}
