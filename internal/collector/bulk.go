package collector

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tuitiondata/collector/internal/scraper"
	"github.com/tuitiondata/collector/internal/storage"
	"github.com/tuitiondata/collector/pkg/listing"
)

// BulkOptions tunes a bulk collection run.
type BulkOptions struct {
	// Limit stops the run once this many listings are kept. In-flight
	// tasks still complete, so the final count may overshoot slightly.
	Limit int `json:"limit"`

	// Workers is the size of the task worker pool.
	Workers int `json:"workers"`

	// APIConcurrency caps concurrent metered API calls across workers.
	APIConcurrency int `json:"api_concurrency"`

	// APIMinInterval spaces metered API calls globally.
	APIMinInterval time.Duration `json:"api_min_interval"`

	// UnmeteredConcurrency caps concurrent page-scraping tasks.
	UnmeteredConcurrency int `json:"unmetered_concurrency"`

	// FlushThreshold flushes buffered listings to storage at this size.
	FlushThreshold int `json:"flush_threshold"`

	Filters Filters `json:"filters"`
}

// DefaultBulkOptions returns production bulk run settings.
func DefaultBulkOptions() *BulkOptions {
	return &BulkOptions{
		Limit:                500,
		Workers:              8,
		APIConcurrency:       2,
		APIMinInterval:       250 * time.Millisecond,
		UnmeteredConcurrency: 4,
		FlushThreshold:       250,
	}
}

// Result is what a run produced.
type Result struct {
	RunID    string            `json:"run_id"`
	Listings []listing.Listing `json:"listings"`
	Stats    Stats             `json:"stats"`
}

// apiPacer spaces metered API calls across the whole pool. A caller
// reserves its slot under the lock and sleeps outside it.
type apiPacer struct {
	mu       sync.Mutex
	last     time.Time
	interval time.Duration
}

func (p *apiPacer) wait(ctx context.Context) {
	if p.interval <= 0 {
		return
	}
	p.mu.Lock()
	now := time.Now()
	next := p.last.Add(p.interval)
	var delay time.Duration
	if next.After(now) {
		delay = next.Sub(now)
	}
	p.last = now.Add(delay)
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}
}

// BulkCollect runs every task through a worker pool and streams kept
// listings to the sink in deduplicated, filtered batches. Results are
// consumed in completion order, not task order. Once Limit is reached
// new tasks are skipped but in-flight ones finish, so a run never loses
// work it already paid API quota for.
func BulkCollect(ctx context.Context, tasks []Task, sink storage.Sink, opts *BulkOptions) (*Result, error) {
	if opts == nil {
		opts = DefaultBulkOptions()
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.APIConcurrency <= 0 {
		opts.APIConcurrency = 2
	}
	if opts.UnmeteredConcurrency <= 0 {
		opts.UnmeteredConcurrency = 4
	}
	if opts.FlushThreshold <= 0 {
		opts.FlushThreshold = 250
	}

	runID := uuid.New().String()
	runLog := log.With().Str("run_id", runID).Logger()
	runLog.Info().Int("tasks", len(tasks)).Int("workers", opts.Workers).Msg("Starting bulk collection")

	var stop atomic.Bool
	stats := &statsRecorder{}
	deduper := NewDeduper()
	pacer := &apiPacer{interval: opts.APIMinInterval}
	apiSem := make(chan struct{}, opts.APIConcurrency)
	unmeteredSem := make(chan struct{}, opts.UnmeteredConcurrency)

	taskCh := make(chan Task)
	resultCh := make(chan []listing.Listing, opts.Workers)

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				if stop.Load() || ctx.Err() != nil {
					continue
				}

				sem := unmeteredSem
				if task.Adapter.Category() == scraper.CategoryMeteredAPI {
					sem = apiSem
				}
				sem <- struct{}{}
				if task.Adapter.Category() == scraper.CategoryMeteredAPI {
					pacer.wait(ctx)
				}
				batch, err := runTask(ctx, task)
				<-sem

				if err != nil {
					stats.adapterFailure()
					runLog.Warn().Err(err).
						Str("adapter", task.Adapter.Name()).
						Str("query", task.Query).
						Msg("Task failed")
					continue
				}
				if len(batch) > 0 {
					resultCh <- batch
				}
			}
		}()
	}

	go func() {
		for _, task := range tasks {
			taskCh <- task
		}
		close(taskCh)
		wg.Wait()
		close(resultCh)
	}()

	var kept []listing.Listing
	var buffer []listing.Listing

	flush := func() error {
		if sink == nil || len(buffer) == 0 {
			return nil
		}
		if err := sink.Append(ctx, buffer); err != nil {
			return fmt.Errorf("flushing %d listings: %w", len(buffer), err)
		}
		stats.saved(len(buffer))
		buffer = buffer[:0]
		return nil
	}

	var flushErr error
	for batch := range resultCh {
		stats.collected(len(batch))

		fresh := batch[:0]
		for _, l := range batch {
			if deduper.Add(l) {
				fresh = append(fresh, l)
			} else {
				stats.duplicate()
			}
		}
		fresh = opts.Filters.Apply(fresh, stats)

		kept = append(kept, fresh...)
		buffer = append(buffer, fresh...)

		if opts.Limit > 0 && len(kept) >= opts.Limit && !stop.Load() {
			stop.Store(true)
			runLog.Info().Int("kept", len(kept)).Msg("Target reached, draining in-flight tasks")
		}
		if len(buffer) >= opts.FlushThreshold {
			if err := flush(); err != nil && flushErr == nil {
				flushErr = err
				runLog.Error().Err(err).Msg("Flush failed")
			}
		}
	}

	if err := flush(); err != nil && flushErr == nil {
		flushErr = err
	}

	snapshot := stats.Snapshot()
	runLog.Info().
		Int("collected", snapshot.Collected).
		Int("duplicates", snapshot.Duplicates).
		Int("saved", snapshot.Saved).
		Int("failures", snapshot.AdapterFailures).
		Msg("Bulk collection finished")

	return &Result{RunID: runID, Listings: kept, Stats: snapshot}, flushErr
}

// runTask isolates one adapter call; a panicking adapter costs its own
// results, never the run.
func runTask(ctx context.Context, task Task) (batch []listing.Listing, err error) {
	defer func() {
		if r := recover(); r != nil {
			batch = nil
			err = fmt.Errorf("adapter %s panicked: %v", task.Adapter.Name(), r)
		}
	}()
	return task.Adapter.Scrape(ctx, task.Query, task.Limit)
}
