// Package config assembles runtime configuration for a run. Values are
// layered: compiled defaults, then the environment (a .env file in the
// working directory is read first, never overriding real variables),
// then whatever CLI flags were set on the executing command.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	headersutil "github.com/cultcrawl/cultcrawl/internal/utils/headers"
)

// Config holds every tunable of a run.
type Config struct {
	// Logging
	LogLevel string
	NoColor  bool

	// Site
	BaseURL   string
	StartPath string

	// HTTP
	HTTPTimeout time.Duration
	UserAgent   string
	Proxies     []string
	Headers     map[string]string

	// Crawl
	Mode        string
	Parallel    int
	SessionName string
	SkipRender  bool

	// Rate limiting
	StaticRateLimitRPS    float64
	StaticRateLimitBurst  int
	DynamicRateLimitRPS   float64
	DynamicRateLimitBurst int

	// Caching
	CacheTTL          time.Duration
	CacheMaxSizeBytes int64

	// Layout. DataDir holds the catalog and manifest JSON, OutputDir
	// the rendered README and docs site, MediaRoot the media/ tree.
	DataDir   string
	OutputDir string
	MediaRoot string

	// Download
	DownloadConcurrency int
	DownloadDelay       time.Duration
	DownloadTimeout     time.Duration
	RetryFailed         bool
}

// Load builds a Config for the executing command. Flags that are not
// registered on cmd are simply skipped, so one loader serves every
// subcommand.
func Load(cmd *cobra.Command) (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		LogLevel:              DefaultLogLevel,
		BaseURL:               DefaultBaseURL,
		StartPath:             DefaultStartPath,
		HTTPTimeout:           DefaultHTTPTimeout,
		UserAgent:             DefaultUserAgent,
		Mode:                  DefaultMode,
		Parallel:              DefaultParallel,
		StaticRateLimitRPS:    DefaultStaticRateLimitRPS,
		StaticRateLimitBurst:  DefaultStaticRateLimitBurst,
		DynamicRateLimitRPS:   DefaultDynamicRateLimitRPS,
		DynamicRateLimitBurst: DefaultDynamicRateLimitBurst,
		CacheTTL:              DefaultCacheTTL,
		CacheMaxSizeBytes:     DefaultCacheMaxSizeBytes,
		DataDir:               DefaultDataDir,
		OutputDir:             DefaultOutputDir,
		MediaRoot:             DefaultMediaRoot,
		DownloadConcurrency:   DefaultDownloadConcurrency,
		DownloadDelay:         DefaultDownloadDelay,
		DownloadTimeout:       DefaultDownloadTimeout,
	}

	applyEnv(cfg)
	if err := applyFlags(cfg, cmd); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setenv := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	setenv("CULTCRAWL_BASE_URL", &cfg.BaseURL)
	setenv("CULTCRAWL_START_PATH", &cfg.StartPath)
	setenv("CULTCRAWL_USER_AGENT", &cfg.UserAgent)
	setenv("CULTCRAWL_DATA_DIR", &cfg.DataDir)
	setenv("CULTCRAWL_OUTPUT_DIR", &cfg.OutputDir)
	setenv("CULTCRAWL_MEDIA_ROOT", &cfg.MediaRoot)
	setenv("CULTCRAWL_SESSION", &cfg.SessionName)
	setenv("CULTCRAWL_MODE", &cfg.Mode)

	if v := os.Getenv("CULTCRAWL_PROXY"); v != "" {
		cfg.Proxies = append(cfg.Proxies, v)
	}
	if v := os.Getenv("CULTCRAWL_PARALLEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Parallel = n
		}
	}
}

func applyFlags(cfg *Config, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}
	flags := cmd.Flags()

	setString := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	setInt := func(name string, dst *int) {
		if flags.Changed(name) {
			*dst, _ = flags.GetInt(name)
		}
	}
	setBool := func(name string, dst *bool) {
		if flags.Changed(name) {
			*dst, _ = flags.GetBool(name)
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if flags.Changed(name) {
			*dst, _ = flags.GetDuration(name)
		}
	}

	if on, err := flags.GetBool("verbose"); err == nil && on {
		cfg.LogLevel = "debug"
	}
	if on, err := flags.GetBool("quiet"); err == nil && on {
		cfg.LogLevel = "error"
	}
	setBool("no-color", &cfg.NoColor)
	setDuration("timeout", &cfg.HTTPTimeout)
	setString("user-agent", &cfg.UserAgent)

	if flags.Changed("proxy") {
		if v, err := flags.GetStringArray("proxy"); err == nil {
			cfg.Proxies = append(cfg.Proxies, v...)
		}
	}
	if flags.Changed("header") {
		pairs, _ := flags.GetStringArray("header")
		headers, err := headersutil.Parse(pairs)
		if err != nil {
			return err
		}
		cfg.Headers = headers
	}

	setString("base-url", &cfg.BaseURL)
	setString("start-path", &cfg.StartPath)
	setString("data-dir", &cfg.DataDir)
	setString("output-dir", &cfg.OutputDir)
	setString("media-dir", &cfg.MediaRoot)
	setString("mode", &cfg.Mode)
	setString("session", &cfg.SessionName)
	setInt("parallel", &cfg.Parallel)
	setBool("skip-render", &cfg.SkipRender)

	setInt("concurrency", &cfg.DownloadConcurrency)
	setBool("retry-failed", &cfg.RetryFailed)
	setDuration("delay", &cfg.DownloadDelay)

	return nil
}
