package collector

import (
	"sync"

	"github.com/tuitiondata/collector/internal/classify"
	"github.com/tuitiondata/collector/pkg/listing"
)

// Filters drop listings the operator does not want saved. The zero
// value keeps everything.
type Filters struct {
	// ExcludeStudents drops listings classified as student requests.
	ExcludeStudents bool `json:"exclude_students"`

	// IndiaOnly keeps only profiles tied to an Indian city.
	IndiaOnly bool `json:"india_only"`

	// MaxExperienceYears keeps tutors below the cap; zero disables it.
	MaxExperienceYears int `json:"max_experience_years"`
}

// Apply runs the enabled filters over a batch, recording drops in
// stats when given.
func (f Filters) Apply(batch []listing.Listing, stats *statsRecorder) []listing.Listing {
	out := batch[:0]
	for _, l := range batch {
		if f.ExcludeStudents && l.Role == listing.RoleStudent {
			if stats != nil {
				stats.droppedStudent()
			}
			continue
		}
		if f.IndiaOnly && !classify.IsIndianProfile(&l) {
			if stats != nil {
				stats.droppedRegion()
			}
			continue
		}
		if f.MaxExperienceYears > 0 && !withinExperienceCap(l, f.MaxExperienceYears) {
			if stats != nil {
				stats.droppedExperience()
			}
			continue
		}
		out = append(out, l)
	}
	return out
}

func withinExperienceCap(l listing.Listing, maxYears int) bool {
	if l.Role != listing.RoleTutor {
		return true
	}
	years, ok := listing.ParseExperienceYears(l.Experience)
	if !ok {
		return false
	}
	return years < maxYears
}

// Stats counts what happened to listings during a run.
type Stats struct {
	Collected         int `json:"collected"`
	Duplicates        int `json:"duplicates"`
	DroppedStudents   int `json:"dropped_students"`
	DroppedRegion     int `json:"dropped_region"`
	DroppedExperience int `json:"dropped_experience"`
	Saved             int `json:"saved"`
	AdapterFailures   int `json:"adapter_failures"`
	FallbackActivated int `json:"fallback_activated"`
}

// statsRecorder is the mutable, worker-shared form of Stats.
type statsRecorder struct {
	mu sync.Mutex
	s  Stats
}

func (r *statsRecorder) collected(n int)    { r.mu.Lock(); r.s.Collected += n; r.mu.Unlock() }
func (r *statsRecorder) duplicate()         { r.mu.Lock(); r.s.Duplicates++; r.mu.Unlock() }
func (r *statsRecorder) droppedStudent()    { r.mu.Lock(); r.s.DroppedStudents++; r.mu.Unlock() }
func (r *statsRecorder) droppedRegion()     { r.mu.Lock(); r.s.DroppedRegion++; r.mu.Unlock() }
func (r *statsRecorder) droppedExperience() { r.mu.Lock(); r.s.DroppedExperience++; r.mu.Unlock() }
func (r *statsRecorder) saved(n int)        { r.mu.Lock(); r.s.Saved += n; r.mu.Unlock() }
func (r *statsRecorder) adapterFailure()    { r.mu.Lock(); r.s.AdapterFailures++; r.mu.Unlock() }
func (r *statsRecorder) fallback()          { r.mu.Lock(); r.s.FallbackActivated++; r.mu.Unlock() }

// Snapshot returns a copy safe to read after the run finishes.
func (r *statsRecorder) Snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.s
}
