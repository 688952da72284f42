// internal/cli/crawl.go
package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cultcrawl/cultcrawl/internal/app"
	"github.com/cultcrawl/cultcrawl/internal/config"
	"github.com/cultcrawl/cultcrawl/internal/render"
	"github.com/cultcrawl/cultcrawl/internal/ui"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Discover every section and catalog its sessions",
	Long: `Crawls the configured site: finds the section links on the start page,
reads each section's embedded state, resolves every pack item down to
its audio or video URL and writes the catalog JSON under the data
directory.

Unless --skip-render is given, README.md and the docs/ player site are
regenerated from the fresh catalog afterwards.`,
	Example: `  # Full crawl with defaults
  $ cultcrawl crawl

  # Crawl through a saved login session, four sections at a time
  $ cultcrawl crawl --session=cultfit --parallel=4

  # Force browser rendering for every page
  $ cultcrawl crawl --mode=dynamic`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)
	config.RegisterCrawlFlags(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg := getConfig(cmd)

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	cat, err := application.Crawler.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}

	// An empty result usually means the site changed shape or the run
	// was anonymous on a login-gated account. Keep the previous catalog.
	if cat.Len() == 0 {
		log.Warn().Msg("Crawl found no sessions, keeping the existing catalog")
		return nil
	}

	if err := cat.Save(cfg.DataDir); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}

	fmt.Printf("\n%s\n", ui.Success(fmt.Sprintf(
		"Cataloged %d sessions (%d unique) across %d sections",
		cat.Len(), cat.UniqueCount(), len(cat.Sections()))))

	if cfg.SkipRender {
		return nil
	}
	if err := render.SaveReadme(cat, cfg.OutputDir); err != nil {
		return fmt.Errorf("render README: %w", err)
	}
	if err := render.SaveSite(cat, cfg.OutputDir); err != nil {
		return fmt.Errorf("render site: %w", err)
	}
	return nil
}
