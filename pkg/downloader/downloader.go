// Package downloader fetches image references through a bounded worker pool
// while preserving original document order in its results.
package downloader

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/models"
)

// DefaultWorkers is the pool width used when none is configured.
const DefaultWorkers = 8

// ErrAllFailed reports that no reference downloaded successfully. The full
// result collection is still returned alongside it.
var ErrAllFailed = errors.New("all downloads failed")

// Getter is the fetch dependency; *fetcher.Fetcher satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

// Event is a per-item progress notification.
type Event struct {
	Index   int
	URL     string
	Success bool
	Kind    models.ErrorKind
}

// Progress receives one Event per completed reference. It is invoked from
// worker goroutines concurrently; observers must synchronize internally.
// Advisory only: a nil or slow observer never affects results.
type Progress func(Event)

type Downloader struct {
	getter  Getter
	workers int
	logger  *slog.Logger
}

func New(getter Getter, workers int, logger *slog.Logger) *Downloader {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{getter: getter, workers: workers, logger: logger}
}

// DownloadAll fetches every reference through the pool and returns one
// result per input index, re-indexed to original document order regardless
// of completion order. Per-item failures never abort siblings; the call
// errors with ErrAllFailed only when zero items succeed, and with a
// Cancelled failure when ctx is cancelled, in which case only the completed
// entries are returned.
func (d *Downloader) DownloadAll(ctx context.Context, refs []models.ImageReference, onProgress Progress) ([]models.DownloadResult, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	jobs := make(chan models.ImageReference, len(refs))
	results := make(chan models.DownloadResult, len(refs))

	var wg sync.WaitGroup
	for w := 1; w <= d.workers; w++ {
		wg.Add(1)
		go d.worker(ctx, w, &wg, jobs, results, onProgress)
	}

	for _, ref := range refs {
		jobs <- ref
	}
	close(jobs)

	wg.Wait()
	close(results)

	byIndex := make(map[int]models.DownloadResult, len(refs))
	for result := range results {
		byIndex[result.Index] = result
	}

	if ctx.Err() != nil {
		completed := make([]models.DownloadResult, 0, len(byIndex))
		for _, ref := range refs {
			if result, ok := byIndex[ref.Index]; ok {
				completed = append(completed, result)
			}
		}
		return completed, &models.Failure{Kind: models.ErrCancelled, Err: ctx.Err()}
	}

	ordered := make([]models.DownloadResult, 0, len(refs))
	successes := 0
	for _, ref := range refs {
		result := byIndex[ref.Index]
		if result.Status == models.StatusSuccess {
			successes++
		}
		ordered = append(ordered, result)
	}

	if successes == 0 {
		return ordered, ErrAllFailed
	}
	return ordered, nil
}

// worker claims references until the queue drains or the context is
// cancelled. A claimed in-flight request runs to completion even under
// cancellation; only the claiming of new work stops.
func (d *Downloader) worker(ctx context.Context, id int, wg *sync.WaitGroup, jobs <-chan models.ImageReference, results chan<- models.DownloadResult, onProgress Progress) {
	defer wg.Done()
	for ref := range jobs {
		if ctx.Err() != nil {
			return
		}

		result := d.fetchOne(context.WithoutCancel(ctx), ref)
		results <- result

		if result.Status == models.StatusSuccess {
			d.logger.Debug("image downloaded", "worker_id", id, "index", ref.Index, "url", ref.URL)
		} else {
			d.logger.Warn("image download failed", "worker_id", id, "index", ref.Index, "url", ref.URL, "error_kind", result.Kind, "error", result.Err)
		}

		if onProgress != nil {
			onProgress(Event{
				Index:   result.Index,
				URL:     result.URL,
				Success: result.Status == models.StatusSuccess,
				Kind:    result.Kind,
			})
		}
	}
}

func (d *Downloader) fetchOne(ctx context.Context, ref models.ImageReference) models.DownloadResult {
	data, _, err := d.getter.Get(ctx, ref.URL)
	if err != nil {
		return models.DownloadResult{
			Index:  ref.Index,
			URL:    ref.URL,
			Status: models.StatusFailure,
			Kind:   models.KindOf(err),
			Err:    err,
		}
	}
	return models.DownloadResult{
		Index:  ref.Index,
		URL:    ref.URL,
		Status: models.StatusSuccess,
		Data:   data,
	}
}
