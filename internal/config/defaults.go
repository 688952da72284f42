package config

import "time"

// Default configuration values.
const (
	DefaultLogLevel = "info"

	DefaultBaseURL   = "https://www.cult.fit"
	DefaultStartPath = "/athome/MindLive"

	// DefaultUserAgent matches a desktop Chrome; the site serves the
	// embedded state payload to ordinary browsers.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	DefaultHTTPTimeout = 30 * time.Second
	DefaultMode        = "auto"
	DefaultParallel    = 4

	DefaultStaticRateLimitRPS    = 5.0
	DefaultStaticRateLimitBurst  = 10
	DefaultDynamicRateLimitRPS   = 3.0
	DefaultDynamicRateLimitBurst = 5

	DefaultCacheTTL          = 15 * time.Minute
	DefaultCacheMaxSizeBytes = 100 * 1024 * 1024 // 100MB

	DefaultDataDir   = "data"
	DefaultOutputDir = "."
	DefaultMediaRoot = "."

	DefaultDownloadConcurrency = 8
	DefaultDownloadDelay       = 250 * time.Millisecond
	DefaultDownloadTimeout     = 120 * time.Second

	// MaxDownloadConcurrency caps --concurrency.
	MaxDownloadConcurrency = 50
)
