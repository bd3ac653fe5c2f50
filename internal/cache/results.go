// Package cache holds search results for the lifetime of the page.
package cache

import (
	"sync"

	"recipe-finder/internal/domain"
)

// Results maps a descriptor's canonical key to the summaries fetched for it.
// Entries never expire and are never evicted.
type Results struct {
	mu      sync.RWMutex
	entries map[string][]domain.RecipeSummary
	hits    int64
	misses  int64
}

// NewResults creates an empty cache.
func NewResults() *Results {
	return &Results{entries: make(map[string][]domain.RecipeSummary)}
}

// Get returns a copy of the cached results for d.
func (c *Results) Get(d domain.Descriptor) ([]domain.RecipeSummary, bool) {
	key := d.Key()

	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	out := make([]domain.RecipeSummary, len(v))
	copy(out, v)
	return out, true
}

// Put stores a copy of results under d. An empty result list is a valid entry.
func (c *Results) Put(d domain.Descriptor, results []domain.RecipeSummary) {
	stored := make([]domain.RecipeSummary, len(results))
	copy(stored, results)

	c.mu.Lock()
	c.entries[d.Key()] = stored
	c.mu.Unlock()
}

// Len returns the number of cached descriptors.
func (c *Results) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *Results) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
