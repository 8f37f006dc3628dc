package service

import (
	"math"
	"sync"
	"time"
)

const DefaultEmbeddingTTL = 30 * time.Minute

type embeddingEntry struct {
	value      []float32
	insertedAt time.Time
}

// EmbeddingCache holds vectors until their TTL runs out. Expiry is checked on read.
type EmbeddingCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]embeddingEntry
}

func NewEmbeddingCache(ttl time.Duration, now func() time.Time) *EmbeddingCache {
	if ttl <= 0 {
		ttl = DefaultEmbeddingTTL
	}
	if now == nil {
		now = time.Now
	}
	return &EmbeddingCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]embeddingEntry),
	}
}

func (c *EmbeddingCache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.insertedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *EmbeddingCache) Put(key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = embeddingEntry{value: value, insertedAt: c.now()}
}

func (c *EmbeddingCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Purge drops expired entries and returns how many were removed.
func (c *EmbeddingCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.insertedAt) >= c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
