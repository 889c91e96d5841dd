// Package cache provides the worker-local idempotency cache: a bounded LRU
// keyed by (request id, event fingerprint) that guarantees detection runs at
// most once per payload per request.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/rawblock/surveillance-engine/pkg/models"
)

// DefaultSize bounds the cache when no explicit size is configured. The
// bound is what gives the worker DoS resistance: the cache never grows
// without limit, old entries are evicted least-recently-used first.
const DefaultSize = 1000

// Key is the full idempotency key. Both halves are required: the request id
// partitions independent runs, the fingerprint ties the entry to the exact
// payload content.
type Key struct {
	RequestID   string
	Fingerprint string
}

func (k Key) String() string {
	return k.RequestID + ":" + k.Fingerprint
}

// IdempotencyCache memoizes detection results. Concurrent requests for the
// same key are coalesced through a single-flight group, so a burst of
// identical requests computes once and shares the result.
type IdempotencyCache struct {
	entries *lru.Cache[Key, []models.SuspiciousSequence]
	group   singleflight.Group
}

// New creates a cache bounded at size entries.
func New(size int) (*IdempotencyCache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be strictly positive, got %d", size)
	}
	entries, err := lru.New[Key, []models.SuspiciousSequence](size)
	if err != nil {
		return nil, err
	}
	return &IdempotencyCache{entries: entries}, nil
}

// Get returns the cached result for key, if present.
func (c *IdempotencyCache) Get(key Key) ([]models.SuspiciousSequence, bool) {
	return c.entries.Get(key)
}

// GetOrCompute returns the cached result for key, computing and storing it
// on a miss. The returned flag reports whether the result came from the
// cache (or a shared in-flight computation) rather than a fresh run of
// compute. Detection is pure, so recomputation after an eviction is safe,
// just wasted work.
func (c *IdempotencyCache) GetOrCompute(key Key, compute func() []models.SuspiciousSequence) ([]models.SuspiciousSequence, bool) {
	if seqs, ok := c.entries.Get(key); ok {
		return seqs, true
	}

	result, _, shared := c.group.Do(key.String(), func() (any, error) {
		// Re-check under the flight: a previous flight may have landed
		// between our miss and this call.
		if seqs, ok := c.entries.Get(key); ok {
			return seqs, nil
		}
		seqs := compute()
		c.entries.Add(key, seqs)
		return seqs, nil
	})
	return result.([]models.SuspiciousSequence), shared
}

// Len returns the current number of cached entries.
func (c *IdempotencyCache) Len() int {
	return c.entries.Len()
}
