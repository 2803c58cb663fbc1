package collector

import (
	"sync"

	"github.com/tuitiondata/collector/pkg/listing"
)

// Deduper tracks listing identities across every adapter in a run, so
// the same tutor surfaced by two sources is kept once.
type Deduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

// NewDeduper creates an empty identity set.
func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]bool)}
}

// Add records the listing's identity. It returns true the first time
// an identity is seen and false on every repeat.
func (d *Deduper) Add(l listing.Listing) bool {
	key := l.Key()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[key] {
		return false
	}
	d.seen[key] = true
	return true
}

// Seed marks identities as already seen, used when resuming into an
// existing output file.
func (d *Deduper) Seed(batch []listing.Listing) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, l := range batch {
		d.seen[l.Key()] = true
	}
}

// Len reports how many identities have been seen.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
