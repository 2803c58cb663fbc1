package scraper

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Credential is one API key / search engine ID pair.
type Credential struct {
	APIKey   string
	EngineID string
}

// KeyRing rotates round-robin among interchangeable credentials, skipping
// any that are cooling down after a quota failure. All state is guarded by
// one mutex; the ring is shared by reference between adapters and the
// orchestrator.
type KeyRing struct {
	mu          sync.Mutex
	credentials []Credential
	next        int
	coolingOff  map[int]time.Time
	usage       map[int]int64
}

// NewKeyRing builds a ring from parallel key and engine-ID lists. When
// there are fewer engine IDs than keys the last ID is reused, matching how
// operators typically share one search engine across several keys.
func NewKeyRing(apiKeys, engineIDs []string) *KeyRing {
	ring := &KeyRing{
		coolingOff: make(map[int]time.Time),
		usage:      make(map[int]int64),
	}
	for i, key := range apiKeys {
		engineID := ""
		if len(engineIDs) > 0 {
			if i < len(engineIDs) {
				engineID = engineIDs[i]
			} else {
				engineID = engineIDs[len(engineIDs)-1]
			}
		}
		ring.credentials = append(ring.credentials, Credential{APIKey: key, EngineID: engineID})
	}
	return ring
}

// Size returns the number of credentials in the ring.
func (kr *KeyRing) Size() int {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	return len(kr.credentials)
}

// Empty reports whether the ring holds no usable credentials.
func (kr *KeyRing) Empty() bool {
	return kr.Size() == 0
}

// Next returns the next credential not currently cooling down, along with
// its index for later MarkBackoff calls. When every credential is cooling
// down it returns ok=false and the wait until the soonest one frees up;
// the caller sleeps, bounded, rather than hammering exhausted quota.
func (kr *KeyRing) Next() (cred Credential, idx int, wait time.Duration, ok bool) {
	kr.mu.Lock()
	defer kr.mu.Unlock()

	if len(kr.credentials) == 0 {
		return Credential{}, -1, 0, false
	}

	now := time.Now()
	soonest := time.Duration(-1)

	for probe := 0; probe < len(kr.credentials); probe++ {
		i := (kr.next + probe) % len(kr.credentials)
		until, cooling := kr.coolingOff[i]
		if cooling && now.Before(until) {
			if remaining := until.Sub(now); soonest < 0 || remaining < soonest {
				soonest = remaining
			}
			continue
		}
		delete(kr.coolingOff, i)
		kr.next = (i + 1) % len(kr.credentials)
		kr.usage[i]++
		return kr.credentials[i], i, 0, true
	}

	return Credential{}, -1, soonest, false
}

// MarkBackoff puts a credential into cooldown until now+d, typically after
// a 429 or 403 from the remote API.
func (kr *KeyRing) MarkBackoff(idx int, d time.Duration) {
	kr.mu.Lock()
	defer kr.mu.Unlock()

	if idx < 0 || idx >= len(kr.credentials) {
		return
	}
	kr.coolingOff[idx] = time.Now().Add(d)

	log.Warn().
		Int("credential", idx+1).
		Int("total", len(kr.credentials)).
		Dur("cooldown", d).
		Msg("Credential placed in backoff")
}

// Usage returns per-credential call counts, for the run summary.
func (kr *KeyRing) Usage() map[int]int64 {
	kr.mu.Lock()
	defer kr.mu.Unlock()

	out := make(map[int]int64, len(kr.usage))
	for i, n := range kr.usage {
		out[i] = n
	}
	return out
}
