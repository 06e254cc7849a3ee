package runner

import (
	"sync"

	"github.com/typeforge/checkrun/metrics"
)

// conditionOutcome is a memoized predicate evaluation: either a boolean
// value or the error (including recovered panics) the predicate produced.
type conditionOutcome struct {
	value bool
	err   error
}

type cacheEntry struct {
	once sync.Once
	out  conditionOutcome
}

// conditionCache memoizes condition outcomes per (condition, sub-binding)
// key for the duration of one run. Entries are immutable once written;
// the per-entry sync.Once keeps the at-most-once evaluation guarantee
// even when independent scheduled pairs are evaluated concurrently.
type conditionCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

func newConditionCache() *conditionCache {
	return &conditionCache{entries: make(map[string]*cacheEntry)}
}

// do returns the cached outcome for key, computing it with compute on the
// first call. compute may itself consult the cache for other keys
// (conditions depending on conditions); keys are acyclic by profile
// validation, so this cannot deadlock.
func (c *conditionCache) do(key string, compute func() conditionOutcome) conditionOutcome {
	c.mu.Lock()
	e, hit := c.entries[key]
	if !hit {
		e = &cacheEntry{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	if hit {
		metrics.RecordConditionCacheHit()
	} else {
		metrics.RecordConditionCacheMiss()
	}

	e.once.Do(func() {
		e.out = compute()
	})
	return e.out
}
