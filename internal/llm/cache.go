package llm

import (
	"context"
	"log"
	"sync"
)

// CachingEmbedder memoizes embeddings by exact text value for the lifetime of
// one ingestion run. The cache is bounded: past capacity the oldest entry is
// evicted, so a large corpus cannot grow it without limit.
//
// Embedding is an optional enrichment, so failures are soft: an error from
// the wrapped client (or a nil client) yields a nil vector and no error.
type CachingEmbedder struct {
	mu       sync.Mutex
	client   EmbedderClient
	capacity int
	entries  map[string][]float32
	order    []string // insertion order, oldest first

	hits   int
	misses int
}

func NewCachingEmbedder(client EmbedderClient, capacity int) *CachingEmbedder {
	if capacity <= 0 {
		capacity = 1024
	}
	return &CachingEmbedder{
		client:   client,
		capacity: capacity,
		entries:  make(map[string][]float32),
	}
}

func (c *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	if vec, ok := c.entries[text]; ok {
		c.hits++
		c.mu.Unlock()
		return vec, nil
	}
	c.misses++
	c.mu.Unlock()

	if c.client == nil {
		return nil, nil
	}

	vec, err := c.client.Embed(ctx, text)
	if err != nil {
		log.Printf("Warning: embedding failed, continuing without: %v", err)
		return nil, nil
	}

	c.mu.Lock()
	if _, ok := c.entries[text]; !ok {
		if len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.entries[text] = vec
		c.order = append(c.order, text)
	}
	c.mu.Unlock()

	return vec, nil
}

// Stats returns hit/miss counters for the lifetime of the cache.
func (c *CachingEmbedder) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the current number of cached entries.
func (c *CachingEmbedder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
