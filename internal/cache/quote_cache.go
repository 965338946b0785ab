package cache

import (
	"sync"
	"time"

	"github.com/watson9049/billygold-website/internal/domain"
)

// QuoteCache holds the latest quote per kind. Entries are overwritten in
// place and never evicted; the key space is the fixed set of kinds.
type QuoteCache struct {
	mu      sync.RWMutex
	entries map[domain.QuoteKind]domain.Quote
	now     func() time.Time
}

func NewQuoteCache() *QuoteCache {
	return &QuoteCache{
		entries: make(map[domain.QuoteKind]domain.Quote, len(domain.AllKinds)),
		now:     time.Now,
	}
}

func (c *QuoteCache) Get(kind domain.QuoteKind) (domain.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.entries[kind]
	return q, ok
}

// Put stores q unless the cached entry for the same kind is at least as new.
// It reports whether q was written.
func (c *QuoteCache) Put(q domain.Quote) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[q.Kind]; ok && !q.FetchedAt.After(cur.FetchedAt) {
		return false
	}
	c.entries[q.Kind] = q
	return true
}

// IsFresh is true iff an entry exists and is younger than ttl.
func (c *QuoteCache) IsFresh(kind domain.QuoteKind, ttl time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.entries[kind]
	if !ok {
		return false
	}
	return c.now().Sub(q.FetchedAt) < ttl
}

// Snapshot copies all entries.
func (c *QuoteCache) Snapshot() map[domain.QuoteKind]domain.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[domain.QuoteKind]domain.Quote, len(c.entries))
	for k, q := range c.entries {
		out[k] = q
	}
	return out
}
