package scraper

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyRingRoundRobin(t *testing.T) {
	ring := NewKeyRing([]string{"a", "b", "c"}, []string{"cx1", "cx2", "cx3"})

	var keys []string
	for i := 0; i < 6; i++ {
		cred, _, _, ok := ring.Next()
		require.True(t, ok)
		keys = append(keys, cred.APIKey)
	}

	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, keys)
}

func TestKeyRingReuseLastEngineID(t *testing.T) {
	ring := NewKeyRing([]string{"a", "b", "c"}, []string{"cx1"})

	for i := 0; i < 3; i++ {
		cred, _, _, ok := ring.Next()
		require.True(t, ok)
		assert.Equal(t, "cx1", cred.EngineID)
	}
}

func TestKeyRingSkipsCoolingCredentials(t *testing.T) {
	ring := NewKeyRing([]string{"a", "b"}, []string{"cx1", "cx2"})

	_, idx, _, ok := ring.Next()
	require.True(t, ok)
	ring.MarkBackoff(idx, time.Minute)

	// Credential "a" is cooling, so we should only get "b" back.
	for i := 0; i < 3; i++ {
		cred, _, _, ok := ring.Next()
		require.True(t, ok)
		assert.Equal(t, "b", cred.APIKey)
	}
}

func TestKeyRingReportsWaitWhenExhausted(t *testing.T) {
	ring := NewKeyRing([]string{"a"}, []string{"cx1"})

	_, idx, _, ok := ring.Next()
	require.True(t, ok)
	ring.MarkBackoff(idx, time.Minute)

	_, _, wait, ok := ring.Next()
	assert.False(t, ok)
	assert.Greater(t, wait, 30*time.Second)
}

func TestKeyRingCooldownExpires(t *testing.T) {
	ring := NewKeyRing([]string{"a"}, []string{"cx1"})

	_, idx, _, ok := ring.Next()
	require.True(t, ok)
	ring.MarkBackoff(idx, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, _, _, ok = ring.Next()
	assert.True(t, ok)
}

func TestKeyRingEmpty(t *testing.T) {
	ring := NewKeyRing(nil, nil)
	assert.True(t, ring.Empty())

	_, idx, _, ok := ring.Next()
	assert.False(t, ok)
	assert.Equal(t, -1, idx)
}

func TestKeyRingConcurrentAccess(t *testing.T) {
	ring := NewKeyRing([]string{"a", "b", "c"}, []string{"cx1", "cx2", "cx3"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, idx, _, ok := ring.Next(); ok && j%25 == 0 {
					ring.MarkBackoff(idx, time.Microsecond)
				}
			}
		}()
	}
	wg.Wait()

	total := int64(0)
	for _, n := range ring.Usage() {
		total += n
	}
	assert.Greater(t, total, int64(0))
}
