package cache

import (
	"sync"
	"time"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/clock"
)

// ProductInfo is the cacheable slice of a product: name and price only.
// Stock is deliberately absent; it must always be read fresh.
type ProductInfo struct {
	Name       string
	PriceCents int64
}

type entry struct {
	info      ProductInfo
	expiresAt time.Time
}

// ProductInfoCache is a short-TTL in-process memo of product name and price.
// Stale entries simply age out; stock changes never require invalidation
// because stock is not cached.
type ProductInfoCache struct {
	mu      sync.RWMutex
	entries map[int64]entry
	ttl     time.Duration
	clock   clock.Clock
}

// New creates a ProductInfoCache with the given TTL.
func New(ttl time.Duration, clk clock.Clock) *ProductInfoCache {
	return &ProductInfoCache{
		entries: make(map[int64]entry),
		ttl:     ttl,
		clock:   clk,
	}
}

// Get returns the cached info for a product id, if present and fresh.
func (c *ProductInfoCache) Get(id int64) (ProductInfo, bool) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()

	if !ok || !e.expiresAt.After(c.clock.Now()) {
		return ProductInfo{}, false
	}
	return e.info, true
}

// Set stores info for a product id for one TTL.
func (c *ProductInfoCache) Set(id int64, info ProductInfo) {
	c.mu.Lock()
	c.entries[id] = entry{info: info, expiresAt: c.clock.Now().Add(c.ttl)}
	c.mu.Unlock()
}
