package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tuitiondata/collector/internal/browser"
	"github.com/tuitiondata/collector/internal/scraper"
	"github.com/tuitiondata/collector/internal/storage"
	"github.com/tuitiondata/collector/pkg/listing"
)

// PairCollector gathers listings for one (subject, city) pair, normally
// via a browser session. It reports browser.ErrBlocked when the target
// refused the session.
type PairCollector func(ctx context.Context, subject, city string) ([]listing.Listing, error)

// AsyncOptions tunes a browser-driven collection run.
type AsyncOptions struct {
	// Limit stops the run once this many listings are kept; zero means
	// every pair is visited. In-flight sessions finish, so the final
	// count may overshoot.
	Limit int `json:"limit"`

	// Workers is how many browser sessions run concurrently.
	Workers int `json:"workers"`

	// FlushThreshold flushes buffered listings to storage at this size.
	FlushThreshold int `json:"flush_threshold"`

	// PerPairLimit caps listings kept per fallback query.
	PerPairLimit int `json:"per_pair_limit"`

	// Fallback handles pairs whose browser session was blocked.
	// Typically the search API adapter; nil disables fallback.
	Fallback scraper.Adapter `json:"-"`

	Filters Filters `json:"filters"`
}

// DefaultAsyncOptions returns production browser run settings.
func DefaultAsyncOptions() *AsyncOptions {
	return &AsyncOptions{
		Workers:        3,
		FlushThreshold: 100,
		PerPairLimit:   25,
	}
}

// AsyncCollect works through pairs with a pool of browser sessions,
// falling back to the search adapter for pairs the platforms block.
// Cancellation drains rather than kills: workers stop pulling new
// pairs, in-flight sessions finish, and everything gathered so far is
// flushed before returning.
func AsyncCollect(ctx context.Context, pairs []Pair, collect PairCollector, sink storage.Sink, opts *AsyncOptions) (*Result, error) {
	if opts == nil {
		opts = DefaultAsyncOptions()
	}
	if opts.Workers <= 0 {
		opts.Workers = 3
	}
	if opts.FlushThreshold <= 0 {
		opts.FlushThreshold = 100
	}
	if opts.PerPairLimit <= 0 {
		opts.PerPairLimit = 25
	}

	runID := uuid.New().String()
	runLog := log.With().Str("run_id", runID).Logger()
	runLog.Info().Int("pairs", len(pairs)).Int("workers", opts.Workers).Msg("Starting browser collection")

	var stop atomic.Bool
	stats := &statsRecorder{}
	deduper := NewDeduper()

	pairCh := make(chan Pair)
	resultCh := make(chan []listing.Listing, opts.Workers)

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pair := range pairCh {
				if stop.Load() || ctx.Err() != nil {
					continue
				}
				batch, err := collectPairSafe(ctx, collect, pair)
				if errors.Is(err, browser.ErrBlocked) && opts.Fallback != nil {
					stats.fallback()
					runLog.Info().
						Str("subject", pair.Subject).
						Str("city", pair.City).
						Msg("Session blocked, falling back to search API")
					query := fmt.Sprintf("%s tutor in %s", pair.Subject, pair.City)
					batch, err = opts.Fallback.Scrape(ctx, query, opts.PerPairLimit)
				}
				if err != nil {
					stats.adapterFailure()
					runLog.Warn().Err(err).
						Str("subject", pair.Subject).
						Str("city", pair.City).
						Msg("Pair failed")
					continue
				}
				if len(batch) > 0 {
					resultCh <- batch
				}
			}
		}()
	}

	go func() {
		defer close(pairCh)
		for _, pair := range pairs {
			select {
			case pairCh <- pair:
			case <-ctx.Done():
				runLog.Info().Msg("Cancelled, draining in-flight sessions")
				return
			}
		}
	}()

	go func() {
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
			runLog.Info().Int("kept", len(kept)).Msg("Target reached, draining in-flight sessions")
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
		Int("saved", snapshot.Saved).
		Int("fallbacks", snapshot.FallbackActivated).
		Msg("Browser collection finished")

	return &Result{RunID: runID, Listings: kept, Stats: snapshot}, flushErr
}

func collectPairSafe(ctx context.Context, collect PairCollector, pair Pair) (batch []listing.Listing, err error) {
	defer func() {
		if r := recover(); r != nil {
			batch = nil
			err = fmt.Errorf("session for %s/%s panicked: %v", pair.Subject, pair.City, r)
		}
	}()
	return collect(ctx, pair.Subject, pair.City)
}
