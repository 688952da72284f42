// internal/downloader/pool.go
package downloader

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cultcrawl/cultcrawl/pkg/models"
)

// WorkerPool fans transfer jobs out to a bounded set of workers. Each
// worker pauses for the settle delay after every job so the CDN never
// sees an uninterrupted burst.
type WorkerPool struct {
	downloader  *Downloader
	concurrency int
}

// NewWorkerPool creates a pool over the downloader with the given
// concurrency, clamped to a sane range.
func NewWorkerPool(d *Downloader, concurrency int) *WorkerPool {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if concurrency > 50 {
		concurrency = 50
	}

	return &WorkerPool{
		downloader:  d,
		concurrency: concurrency,
	}
}

// Stream runs every job and delivers results as they complete. The
// returned channel closes once all workers are done.
func (wp *WorkerPool) Stream(ctx context.Context, refs []models.MediaReference) <-chan Result {
	jobs := make(chan models.MediaReference, len(refs))
	results := make(chan Result, len(refs))

	var wg sync.WaitGroup
	for w := 1; w <= wp.concurrency; w++ {
		wg.Add(1)
		go wp.worker(ctx, w, jobs, results, &wg)
	}

	go func() {
		for _, ref := range refs {
			jobs <- ref
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// worker processes jobs until the jobs channel drains or the context is
// cancelled.
func (wp *WorkerPool) worker(ctx context.Context, id int, jobs <-chan models.MediaReference, results chan<- Result, wg *sync.WaitGroup) {
	defer wg.Done()

	log.Debug().Int("worker_id", id).Msg("Worker started")

	for ref := range jobs {
		select {
		case <-ctx.Done():
			log.Debug().Int("worker_id", id).Msg("Worker cancelled")
			return
		default:
		}

		log.Debug().
			Int("worker_id", id).
			Str("url", ref.SourceURL).
			Msg("Worker processing download")

		result := wp.downloader.downloadOne(ctx, ref)

		select {
		case results <- result:
		case <-ctx.Done():
			return
		}

		wp.settle(ctx)
	}

	log.Debug().Int("worker_id", id).Msg("Worker finished")
}

// settle waits out the per-job delay, returning early on cancellation.
func (wp *WorkerPool) settle(ctx context.Context) {
	delay := wp.downloader.opts.SettleDelay
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
