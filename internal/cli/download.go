// internal/cli/download.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cultcrawl/cultcrawl/internal/catalog"
	"github.com/cultcrawl/cultcrawl/internal/config"
	"github.com/cultcrawl/cultcrawl/internal/downloader"
	"github.com/cultcrawl/cultcrawl/internal/ui"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Fetch every cataloged media file that is still missing",
	Long: `Downloads the audio and video files named by the catalog into the
media/ tree. Outcomes land in a manifest next to the catalog, so an
interrupted run resumes where it stopped: files already on disk are
skipped, failures are recorded with their status and retried on the
next run.`,
	Example: `  # Download everything the catalog names
  $ cultcrawl download

  # Gentler on the network
  $ cultcrawl download --concurrency=2 --delay=1s

  # Only re-attempt recorded failures
  $ cultcrawl download --retry-failed`,
	Args: cobra.NoArgs,
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	config.RegisterDownloadFlags(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg := getConfig(cmd)

	cat, err := catalog.Load(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if cat.Len() == 0 {
		return fmt.Errorf("catalog in %s is empty, run \"cultcrawl crawl\" first", cfg.DataDir)
	}

	manifest, err := catalog.LoadManifest(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}
	manifest.PruneStale(cfg.MediaRoot)

	d := downloader.New(manifest, downloader.Options{
		RootDir:     cfg.MediaRoot,
		Concurrency: cfg.DownloadConcurrency,
		SettleDelay: cfg.DownloadDelay,
		Timeout:     cfg.DownloadTimeout,
		RetryFailed: cfg.RetryFailed,
		Quiet:       cfg.LogLevel == "error",
	})

	stats, err := d.Run(cmd.Context(), cat.All())
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	fmt.Printf("\n%s\n", ui.Bold("Download complete"))
	fmt.Printf("  downloaded  %d (%.1f MB)\n", stats.Downloaded, float64(stats.Bytes)/(1<<20))
	fmt.Printf("  skipped     %d\n", stats.Skipped)
	fmt.Printf("  failed      %d\n", stats.Failed)
	if stats.Failed > 0 {
		fmt.Printf("\n%s\n", ui.Warn(fmt.Sprintf(
			"%d downloads failed, rerun with --retry-failed to attempt them again", stats.Failed)))
	}
	return nil
}
