// Package downloader materializes catalog media on disk. Transfers run
// on a bounded worker pool with a settle delay between jobs, and every
// outcome is recorded in the download manifest so reruns only touch
// what is missing or previously failed.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/cultcrawl/cultcrawl/internal/catalog"
	"github.com/cultcrawl/cultcrawl/pkg/models"
)

const (
	defaultConcurrency = 8
	defaultSettleDelay = 250 * time.Millisecond
	defaultTimeout     = 120 * time.Second
	defaultUserAgent   = "Mozilla/5.0"
)

// Result is the outcome of one transfer job.
type Result struct {
	Ref      models.MediaReference
	Path     string
	Size     int64
	Skipped  bool
	Err      error
	Duration time.Duration
}

// Stats summarizes a download run.
type Stats struct {
	Downloaded int
	Skipped    int
	Failed     int
	Bytes      int64
}

// Options configures a Downloader.
type Options struct {
	// RootDir is the directory the suggested media paths are created
	// under. Defaults to the working directory.
	RootDir string
	// Concurrency bounds simultaneous transfers.
	Concurrency int
	// SettleDelay is the pause each worker takes after finishing a job.
	// Zero means the default; negative disables the pause.
	SettleDelay time.Duration
	// Timeout bounds one whole transfer.
	Timeout time.Duration
	// UserAgent for CDN requests.
	UserAgent string
	// RetryFailed restricts the run to URLs whose manifest entry is not
	// a success. New URLs count as failed-so-far and are included.
	RetryFailed bool
	// Client overrides the HTTP client, for tests.
	Client *http.Client
	// Quiet suppresses the progress bar.
	Quiet bool
}

// Downloader downloads catalog media guarded by a manifest.
type Downloader struct {
	client   *http.Client
	manifest *catalog.Manifest
	opts     Options
}

// New creates a Downloader over the given manifest.
func New(manifest *catalog.Manifest, opts Options) *Downloader {
	if opts.RootDir == "" {
		opts.RootDir = "."
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	} else if opts.SettleDelay == 0 {
		opts.SettleDelay = defaultSettleDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Downloader{
		client:   client,
		manifest: manifest,
		opts:     opts,
	}
}

// Run downloads every reference that still needs it and saves the
// manifest afterwards. The returned stats cover this run only.
func (d *Downloader) Run(ctx context.Context, refs []models.MediaReference) (Stats, error) {
	jobs := d.plan(refs)
	if len(jobs) == 0 {
		log.Info().Msg("Nothing to download, everything up to date")
		return Stats{}, d.manifest.Save()
	}

	log.Info().
		Int("files", len(jobs)).
		Int("concurrency", d.opts.Concurrency).
		Msg("Starting downloads")

	var bar *progressbar.ProgressBar
	if !d.opts.Quiet {
		bar = progressbar.Default(int64(len(jobs)), "downloading")
	}

	pool := NewWorkerPool(d, d.opts.Concurrency)
	var stats Stats
	for res := range pool.Stream(ctx, jobs) {
		if bar != nil {
			bar.Add(1)
		}
		switch {
		case res.Err != nil:
			stats.Failed++
			log.Warn().Str("url", res.Ref.SourceURL).Err(res.Err).Msg("Download failed")
		case res.Skipped:
			stats.Skipped++
		default:
			stats.Downloaded++
			stats.Bytes += res.Size
		}
	}
	if bar != nil {
		bar.Finish()
	}

	saveErr := d.manifest.Save()

	log.Info().
		Int("downloaded", stats.Downloaded).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Int64("bytes", stats.Bytes).
		Msg("Download run finished")

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, saveErr
}

// plan filters the reference list down to the jobs this run should
// attempt, deduplicated by source URL (first occurrence keeps its
// suggested path).
func (d *Downloader) plan(refs []models.MediaReference) []models.MediaReference {
	seen := make(map[string]bool, len(refs))
	var jobs []models.MediaReference
	for _, ref := range refs {
		if ref.SourceURL == "" || seen[ref.SourceURL] {
			continue
		}
		seen[ref.SourceURL] = true

		entry, _ := d.manifest.Get(ref.SourceURL)
		onDisk := d.fileExists(d.entryPath(entry, ref))

		if d.opts.RetryFailed {
			if !entry.Succeeded() {
				jobs = append(jobs, ref)
			}
			continue
		}
		if entry.Succeeded() && onDisk {
			continue
		}
		jobs = append(jobs, ref)
	}
	return jobs
}

// downloadOne transfers a single reference, consulting the manifest and
// the filesystem first so completed work is never repeated.
func (d *Downloader) downloadOne(ctx context.Context, ref models.MediaReference) Result {
	start := time.Now()
	res := Result{Ref: ref, Path: ref.SuggestedPath}

	full := d.absPath(ref.SuggestedPath)

	// The exact target already on disk counts as done, manifest or not.
	if d.fileExists(ref.SuggestedPath) {
		d.manifest.MarkSuccess(ref.SourceURL, ref.SuggestedPath)
		res.Skipped = true
		res.Duration = time.Since(start)
		return res
	}

	// A recorded success pointing at a file that still exists wins even
	// when it lives under another pack; re-downloading would duplicate
	// the asset and break the earlier path.
	if entry, ok := d.manifest.Get(ref.SourceURL); ok && entry.Succeeded() {
		if entry.Path != "" && d.fileExists(entry.Path) {
			res.Skipped = true
			res.Path = entry.Path
			res.Duration = time.Since(start)
			return res
		}
		// Stale entry, fall through and fetch again.
	}

	size, err := d.fetchToFile(ctx, ref.SourceURL, full)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		d.manifest.MarkFailure(ref.SourceURL, failureStatus(err), ref.SuggestedPath)
		return res
	}

	res.Size = size
	d.manifest.MarkSuccess(ref.SourceURL, ref.SuggestedPath)

	log.Debug().
		Str("url", ref.SourceURL).
		Str("file", ref.SuggestedPath).
		Int64("bytes", size).
		Dur("duration", res.Duration).
		Msg("Download completed")
	return res
}

// fetchToFile streams the URL body into path via a temp file so a
// partial transfer never masquerades as a finished asset.
func (d *Downloader) fetchToFile(ctx context.Context, fileURL, path string) (int64, error) {
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", d.opts.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return 0, &httpStatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("creating media dir: %w", err)
	}

	tmp := path + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("creating file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("writing file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("finalizing file: %w", err)
	}

	return written, nil
}

func (d *Downloader) absPath(rel string) string {
	return filepath.Join(d.opts.RootDir, filepath.FromSlash(rel))
}

func (d *Downloader) fileExists(rel string) bool {
	if rel == "" {
		return false
	}
	info, err := os.Stat(d.absPath(rel))
	return err == nil && !info.IsDir()
}

func (d *Downloader) entryPath(entry catalog.Entry, ref models.MediaReference) string {
	if entry.Path != "" {
		return entry.Path
	}
	return ref.SuggestedPath
}

// httpStatusError keeps the code available for the manifest status.
type httpStatusError struct {
	Code   int
	Status string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("bad status: %s", e.Status)
}

// failureStatus maps an error to its manifest status string.
func failureStatus(err error) string {
	if se, ok := err.(*httpStatusError); ok {
		return catalog.HTTPStatus(se.Code)
	}
	return err.Error()
}
