// internal/cli/render.go
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cultcrawl/cultcrawl/internal/catalog"
	"github.com/cultcrawl/cultcrawl/internal/config"
	"github.com/cultcrawl/cultcrawl/internal/render"
	"github.com/cultcrawl/cultcrawl/internal/ui"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Regenerate README.md and the docs/ site from the saved catalog",
	Long: `Rebuilds the human-readable artifacts from the catalog JSON without
crawling anything: README.md with per-section session tables, and the
docs/ folder holding a static player page.`,
	Example: `  # Regenerate into the working directory
  $ cultcrawl render

  # Render a catalog kept elsewhere
  $ cultcrawl render --data-dir=/srv/cultfit/data --output-dir=/srv/cultfit`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	config.RegisterRenderFlags(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg := getConfig(cmd)

	cat, err := catalog.Load(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if cat.Len() == 0 {
		return fmt.Errorf("catalog in %s is empty, run \"cultcrawl crawl\" first", cfg.DataDir)
	}

	if err := render.SaveReadme(cat, cfg.OutputDir); err != nil {
		return fmt.Errorf("render README: %w", err)
	}
	if err := render.SaveSite(cat, cfg.OutputDir); err != nil {
		return fmt.Errorf("render site: %w", err)
	}

	fmt.Printf("%s\n", ui.Success(fmt.Sprintf("Rendered %s and %s from %d sessions",
		filepath.Join(cfg.OutputDir, render.ReadmeFile),
		filepath.Join(cfg.OutputDir, render.SiteDir)+string(filepath.Separator),
		cat.Len())))
	return nil
}
