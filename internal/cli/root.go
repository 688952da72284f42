// internal/cli/root.go
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cultcrawl/cultcrawl/internal/app"
	"github.com/cultcrawl/cultcrawl/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "cultcrawl",
	Short: "Mirror cult.fit mindfulness sessions",
	Long: `cultcrawl walks the cult.fit mindfulness catalog and keeps a local
mirror of it: a catalog of every session it can see, the audio and
video files behind them, and a browsable index.

The pipeline runs in stages. "crawl" discovers sections and writes the
catalog, "download" fetches the media files the catalog names, and
"render" regenerates README.md and the docs/ player site. Each stage
is resumable; completed work is never repeated.`,
	Example: `  # Crawl the catalog and regenerate README.md and docs/
  $ cultcrawl crawl

  # Fetch every cataloged audio and video file under media/
  $ cultcrawl download

  # Retry only what failed last time
  $ cultcrawl download --retry-failed`,
	Version: "0.1.0",
	// Run errors are operational, not usage mistakes; keep the output
	// to the error itself.
	SilenceUsage: true,
}

// Execute runs the command tree. Called once from main; the context
// carries process-level cancellation.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	config.RegisterRootFlags(rootCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}
		app.SetupLogging(cfg)
		setConfig(cmd, cfg)
		return nil
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetHelpFunc(colorHelp)
	rootCmd.SetUsageFunc(colorUsage)
}
