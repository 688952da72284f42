package config

import "github.com/spf13/cobra"

// RegisterRootFlags registers the persistent flags shared by every
// subcommand.
func RegisterRootFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	pf := cmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.BoolP("quiet", "q", false, "Suppress all output except errors")
	pf.Bool("no-color", false, "Disable colored log output")
	pf.Duration("timeout", DefaultHTTPTimeout, "Hard timeout for page fetches")
	pf.StringArrayP("header", "H", nil, "Extra request header (\"Name: value\", repeatable)")
	pf.StringArray("proxy", nil, "HTTP/SOCKS5 proxy URL (repeatable, rotated per request)")
	pf.String("user-agent", "", "Override the crawl user agent")
}

// RegisterCrawlFlags registers crawl-stage flags.
func RegisterCrawlFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("base-url", DefaultBaseURL, "Site root to crawl")
	f.String("start-path", DefaultStartPath, "Listing page holding the section links")
	f.String("data-dir", DefaultDataDir, "Directory for the catalog and manifest JSON")
	f.Int("parallel", DefaultParallel, "Sections crawled concurrently")
	f.String("mode", DefaultMode, "Fetch engine: static, dynamic, or auto")
	f.String("session", "", "Stored login session to crawl with")
	f.Bool("skip-render", false, "Skip regenerating README.md and docs/ after the crawl")
	f.String("output-dir", DefaultOutputDir, "Directory for README.md and the docs/ site")
}

// RegisterRenderFlags registers render-stage flags.
func RegisterRenderFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("data-dir", DefaultDataDir, "Directory holding the catalog JSON")
	f.String("output-dir", DefaultOutputDir, "Directory for README.md and the docs/ site")
}

// RegisterDownloadFlags registers download-stage flags.
func RegisterDownloadFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("data-dir", DefaultDataDir, "Directory holding the catalog and manifest JSON")
	f.String("media-dir", DefaultMediaRoot, "Directory the media/ tree is created under")
	f.Int("concurrency", DefaultDownloadConcurrency, "Simultaneous downloads")
	f.Bool("retry-failed", false, "Only retry URLs whose last attempt failed")
	f.Duration("delay", DefaultDownloadDelay, "Pause after each download")
}
