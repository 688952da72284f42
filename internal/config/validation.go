package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cultcrawl/cultcrawl/pkg/models"
)

// Validate checks ranges and enums. Load calls it after layering, so a
// hand-built Config used in tests should call it too.
func (c *Config) Validate() error {
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base URL %q must be absolute", c.BaseURL)
	}
	if !strings.HasPrefix(c.StartPath, "/") {
		return fmt.Errorf("start path %q must begin with /", c.StartPath)
	}
	switch models.FetchMode(c.Mode) {
	case models.ModeStatic, models.ModeDynamic, models.ModeAuto:
	default:
		return fmt.Errorf("mode %q must be static, dynamic, or auto", c.Mode)
	}
	if c.Parallel < 1 {
		return fmt.Errorf("parallel must be at least 1")
	}
	if c.DownloadConcurrency < 1 || c.DownloadConcurrency > MaxDownloadConcurrency {
		return fmt.Errorf("concurrency must be between 1 and %d", MaxDownloadConcurrency)
	}
	if c.CacheMaxSizeBytes <= 0 {
		return fmt.Errorf("cache max size must be positive")
	}
	return nil
}
