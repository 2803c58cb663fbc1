package collector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tuitiondata/collector/internal/scraper"
	"github.com/tuitiondata/collector/internal/storage"
	"github.com/tuitiondata/collector/pkg/listing"
)

// FetchOptions tunes a single-query run.
type FetchOptions struct {
	// Limit is how many listings to request from each adapter.
	Limit int `json:"limit"`

	// MaxSave caps how many listings are persisted; zero saves all.
	MaxSave int `json:"max_save"`

	Filters Filters `json:"filters"`
}

// Fetch runs one query through the given adapters sequentially and
// saves the deduplicated result. A failing adapter is logged and
// skipped; the run fails only when nothing can be saved.
func Fetch(ctx context.Context, adapters []scraper.Adapter, query string, sink storage.Sink, opts *FetchOptions) (*Result, error) {
	if opts == nil {
		opts = &FetchOptions{Limit: 20}
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	runID := uuid.New().String()
	runLog := log.With().Str("run_id", runID).Str("query", query).Logger()

	stats := &statsRecorder{}
	deduper := NewDeduper()
	var kept []listing.Listing

	for _, adapter := range adapters {
		if ctx.Err() != nil {
			break
		}
		batch, err := adapter.Scrape(ctx, query, opts.Limit)
		if err != nil {
			stats.adapterFailure()
			runLog.Warn().Err(err).Str("adapter", adapter.Name()).Msg("Adapter failed")
			continue
		}
		stats.collected(len(batch))

		for _, l := range batch {
			if !deduper.Add(l) {
				stats.duplicate()
				continue
			}
			kept = append(kept, l)
		}
	}

	kept = opts.Filters.Apply(kept, stats)

	if opts.MaxSave > 0 && len(kept) > opts.MaxSave {
		runLog.Info().Int("kept", len(kept)).Int("max_save", opts.MaxSave).Msg("Capping saved listings")
		kept = kept[:opts.MaxSave]
	}

	if sink != nil && len(kept) > 0 {
		if err := sink.Append(ctx, kept); err != nil {
			return &Result{RunID: runID, Listings: kept, Stats: stats.Snapshot()},
				fmt.Errorf("saving %d listings: %w", len(kept), err)
		}
		stats.saved(len(kept))
	}

	snapshot := stats.Snapshot()
	runLog.Info().
		Int("collected", snapshot.Collected).
		Int("duplicates", snapshot.Duplicates).
		Int("saved", snapshot.Saved).
		Msg("Fetch finished")

	return &Result{RunID: runID, Listings: kept, Stats: snapshot}, nil
}
