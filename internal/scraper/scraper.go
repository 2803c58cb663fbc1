// Package scraper contains the source adapters that retrieve raw tutor and
// student listings from external origins, plus the shared fetch layer they
// sit on.
package scraper

import (
	"context"

	"github.com/tuitiondata/collector/pkg/listing"
)

// Category tags an adapter with its concurrency class at construction time.
// The orchestrator dispatches on this tag, never on the concrete type: the
// metered API path shares a small global semaphore and inter-call pacer,
// while HTML and browser adapters share a separate, larger bound.
type Category int

const (
	// CategoryMeteredAPI marks adapters that consume a quota-bearing
	// remote API.
	CategoryMeteredAPI Category = iota
	// CategoryUnmetered marks HTML and browser adapters without remote
	// quota.
	CategoryUnmetered
)

func (c Category) String() string {
	switch c {
	case CategoryMeteredAPI:
		return "metered-api"
	case CategoryUnmetered:
		return "unmetered"
	default:
		return "unknown"
	}
}

// Adapter retrieves raw listings from one external origin. Implementations
// page internally up to limit, apply source-specific pacing and retries,
// and return normalized listings. Transient failures yield fewer (possibly
// zero) results, not an error; errors are reserved for misconfiguration
// and context cancellation.
type Adapter interface {
	Name() string
	Category() Category
	Scrape(ctx context.Context, query string, limit int) ([]listing.Listing, error)
}
