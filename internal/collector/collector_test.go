package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuitiondata/collector/internal/browser"
	"github.com/tuitiondata/collector/internal/scraper"
	"github.com/tuitiondata/collector/pkg/listing"
)

type fakeAdapter struct {
	name     string
	category scraper.Category
	batch    []listing.Listing
	err      error
	panics   bool

	mu    sync.Mutex
	calls int
}

func (f *fakeAdapter) Name() string               { return f.name }
func (f *fakeAdapter) Category() scraper.Category { return f.category }

func (f *fakeAdapter) Scrape(ctx context.Context, query string, limit int) ([]listing.Listing, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.panics {
		panic("adapter exploded")
	}
	return f.batch, f.err
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memorySink records every appended batch.
type memorySink struct {
	mu      sync.Mutex
	batches [][]listing.Listing
	err     error
}

func (s *memorySink) Append(ctx context.Context, batch []listing.Listing) error {
	if s.err != nil {
		return s.err
	}
	copied := make([]listing.Listing, len(batch))
	copy(copied, batch)
	s.mu.Lock()
	s.batches = append(s.batches, copied)
	s.mu.Unlock()
	return nil
}

func (s *memorySink) Close(ctx context.Context) error { return nil }

func (s *memorySink) all() []listing.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []listing.Listing
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func tutor(name string) listing.Listing {
	return listing.Listing{
		Name:        name,
		Title:       name + " - Tutor",
		ProfileLink: "https://example.com/" + name,
		Source:      "Test",
		Role:        listing.RoleTutor,
	}
}

func TestBuildTasksCrossProduct(t *testing.T) {
	a := &fakeAdapter{name: "a"}
	b := &fakeAdapter{name: "b"}

	tasks := BuildTasks([]string{"math", "physics"}, []string{"delhi"}, []scraper.Adapter{a, b}, 10)

	require.Len(t, tasks, 4)
	// Adapters covering the same pair share the query text.
	assert.Equal(t, tasks[0].Query, tasks[1].Query)
	assert.Contains(t, tasks[0].Query, "math")
	assert.Contains(t, tasks[0].Query, "delhi")
	assert.Contains(t, tasks[2].Query, "physics")
}

func TestBulkCollectDedupAcrossAdapters(t *testing.T) {
	shared := tutor("asha")
	a := &fakeAdapter{name: "a", batch: []listing.Listing{shared, tutor("ravi")}}
	b := &fakeAdapter{name: "b", batch: []listing.Listing{shared, tutor("meera")}}

	tasks := []Task{
		{Adapter: a, Query: "math delhi", Limit: 10},
		{Adapter: b, Query: "math delhi", Limit: 10},
	}
	sink := &memorySink{}

	result, err := BulkCollect(context.Background(), tasks, sink, &BulkOptions{
		Workers: 2, FlushThreshold: 1,
	})
	require.NoError(t, err)

	assert.Len(t, result.Listings, 3)
	assert.Equal(t, 1, result.Stats.Duplicates)
	assert.Len(t, sink.all(), 3)
}

func TestBulkCollectFlushBoundaries(t *testing.T) {
	var batch []listing.Listing
	for i := 0; i < 7; i++ {
		batch = append(batch, tutor(fmt.Sprintf("tutor-%d", i)))
	}
	a := &fakeAdapter{name: "a", batch: batch}
	sink := &memorySink{}

	result, err := BulkCollect(context.Background(), []Task{{Adapter: a, Query: "q", Limit: 10}}, sink, &BulkOptions{
		Workers: 1, FlushThreshold: 3,
	})
	require.NoError(t, err)

	// Every kept listing is saved exactly once, across flushes.
	saved := sink.all()
	assert.Len(t, saved, 7)
	seen := map[string]int{}
	for _, l := range saved {
		seen[l.Key()]++
	}
	for key, count := range seen {
		assert.Equal(t, 1, count, "listing %s saved more than once", key)
	}
	assert.Equal(t, 7, result.Stats.Saved)
}

func TestBulkCollectEarlyStopFinishesInFlight(t *testing.T) {
	tasks := make([]Task, 20)
	for i := range tasks {
		a := &fakeAdapter{name: fmt.Sprintf("n-%d", i), batch: []listing.Listing{
			tutor(fmt.Sprintf("t-%d-a", i)), tutor(fmt.Sprintf("t-%d-b", i)),
		}}
		tasks[i] = Task{Adapter: a, Query: "q", Limit: 10}
	}

	result, err := BulkCollect(context.Background(), tasks, &memorySink{}, &BulkOptions{
		Workers: 2, Limit: 5, FlushThreshold: 100,
	})
	require.NoError(t, err)

	// The limit may be overshot by in-flight tasks but never ignored.
	assert.GreaterOrEqual(t, len(result.Listings), 5)
	assert.Less(t, len(result.Listings), 40)
}

func TestBulkCollectPanicIsolated(t *testing.T) {
	bad := &fakeAdapter{name: "bad", panics: true}
	good := &fakeAdapter{name: "good", batch: []listing.Listing{tutor("asha")}}

	tasks := []Task{
		{Adapter: bad, Query: "q", Limit: 10},
		{Adapter: good, Query: "q", Limit: 10},
	}

	result, err := BulkCollect(context.Background(), tasks, &memorySink{}, &BulkOptions{Workers: 1})
	require.NoError(t, err)

	assert.Len(t, result.Listings, 1)
	assert.Equal(t, 1, result.Stats.AdapterFailures)
}

func TestBulkCollectAdapterErrorCounted(t *testing.T) {
	failing := &fakeAdapter{name: "down", err: errors.New("connection refused")}

	result, err := BulkCollect(context.Background(), []Task{{Adapter: failing, Query: "q", Limit: 10}}, nil, &BulkOptions{Workers: 1})
	require.NoError(t, err)
	assert.Empty(t, result.Listings)
	assert.Equal(t, 1, result.Stats.AdapterFailures)
}

func TestFiltersExcludeStudents(t *testing.T) {
	student := tutor("ravi")
	student.Role = listing.RoleStudent

	stats := &statsRecorder{}
	out := Filters{ExcludeStudents: true}.Apply([]listing.Listing{tutor("asha"), student}, stats)

	require.Len(t, out, 1)
	assert.Equal(t, "asha", out[0].Name)
	assert.Equal(t, 1, stats.Snapshot().DroppedStudents)
}

func TestFiltersIndiaOnly(t *testing.T) {
	indian := tutor("asha")
	indian.Location = "Mumbai"
	foreign := tutor("alice")
	foreign.Location = "Austin, TX"

	out := Filters{IndiaOnly: true}.Apply([]listing.Listing{indian, foreign}, nil)

	require.Len(t, out, 1)
	assert.Equal(t, "asha", out[0].Name)
}

func TestFiltersExperienceCap(t *testing.T) {
	junior := tutor("junior")
	junior.Experience = "3 years"
	senior := tutor("senior")
	senior.Experience = "12 years"
	unknown := tutor("unknown")

	out := Filters{MaxExperienceYears: 5}.Apply([]listing.Listing{junior, senior, unknown}, nil)

	require.Len(t, out, 1)
	assert.Equal(t, "junior", out[0].Name)
}

func TestAsyncCollectFallbackOnBlocked(t *testing.T) {
	fallback := &fakeAdapter{name: "api", category: scraper.CategoryMeteredAPI,
		batch: []listing.Listing{tutor("asha")}}

	collect := func(ctx context.Context, subject, city string) ([]listing.Listing, error) {
		return nil, browser.ErrBlocked
	}

	result, err := AsyncCollect(context.Background(), []Pair{{Subject: "math", City: "delhi"}}, collect, &memorySink{}, &AsyncOptions{
		Workers: 1, Fallback: fallback,
	})
	require.NoError(t, err)

	assert.Len(t, result.Listings, 1)
	assert.Equal(t, 1, result.Stats.FallbackActivated)
	assert.Equal(t, 1, fallback.callCount())
}

func TestAsyncCollectBlockedWithoutFallback(t *testing.T) {
	collect := func(ctx context.Context, subject, city string) ([]listing.Listing, error) {
		return nil, browser.ErrBlocked
	}

	result, err := AsyncCollect(context.Background(), []Pair{{Subject: "math", City: "delhi"}}, collect, nil, &AsyncOptions{Workers: 1})
	require.NoError(t, err)
	assert.Empty(t, result.Listings)
	assert.Equal(t, 1, result.Stats.AdapterFailures)
}

func TestAsyncCollectStopsAtLimit(t *testing.T) {
	collect := func(ctx context.Context, subject, city string) ([]listing.Listing, error) {
		return []listing.Listing{tutor(subject + "-" + city)}, nil
	}

	pairs := BuildPairs([]string{"math", "physics", "chemistry", "biology"}, []string{"delhi", "pune"})

	result, err := AsyncCollect(context.Background(), pairs, collect, nil, &AsyncOptions{
		Workers: 1, Limit: 3,
	})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(result.Listings), 3)
	assert.Less(t, len(result.Listings), len(pairs))
}

func TestAsyncCollectDrainOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	var once sync.Once
	collect := func(ctx context.Context, subject, city string) ([]listing.Listing, error) {
		once.Do(func() { close(started) })
		time.Sleep(50 * time.Millisecond)
		return []listing.Listing{tutor(subject + "-" + city)}, nil
	}

	pairs := BuildPairs([]string{"math", "physics", "chemistry"}, []string{"delhi", "pune"})
	sink := &memorySink{}

	done := make(chan *Result, 1)
	go func() {
		result, err := AsyncCollect(ctx, pairs, collect, sink, &AsyncOptions{Workers: 1, FlushThreshold: 100})
		require.NoError(t, err)
		done <- result
	}()

	<-started
	cancel()

	select {
	case result := <-done:
		// The in-flight session finished and its result was flushed.
		assert.GreaterOrEqual(t, len(result.Listings), 1)
		assert.Less(t, len(result.Listings), len(pairs))
		assert.Equal(t, len(result.Listings), len(sink.all()))
	case <-time.After(5 * time.Second):
		t.Fatal("AsyncCollect did not drain after cancellation")
	}
}

func TestFetchSavesCapped(t *testing.T) {
	a := &fakeAdapter{name: "a", batch: []listing.Listing{tutor("a1"), tutor("a2"), tutor("a3")}}
	sink := &memorySink{}

	result, err := Fetch(context.Background(), []scraper.Adapter{a}, "math tutor", sink, &FetchOptions{
		Limit: 10, MaxSave: 2,
	})
	require.NoError(t, err)

	assert.Len(t, result.Listings, 2)
	assert.Len(t, sink.all(), 2)
	assert.Equal(t, 3, result.Stats.Collected)
}

func TestFetchContinuesPastFailingAdapter(t *testing.T) {
	failing := &fakeAdapter{name: "down", err: errors.New("boom")}
	working := &fakeAdapter{name: "up", batch: []listing.Listing{tutor("asha")}}

	result, err := Fetch(context.Background(), []scraper.Adapter{failing, working}, "q", nil, nil)
	require.NoError(t, err)

	assert.Len(t, result.Listings, 1)
	assert.Equal(t, 1, result.Stats.AdapterFailures)
}

func TestDeduperSeed(t *testing.T) {
	d := NewDeduper()
	d.Seed([]listing.Listing{tutor("asha")})

	assert.False(t, d.Add(tutor("asha")))
	assert.True(t, d.Add(tutor("ravi")))
	assert.Equal(t, 2, d.Len())
}
