package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/clock"
)

func TestProductInfoCache_HitWithinTTL(t *testing.T) {
	clk := &clock.Fixed{Time: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := New(10*time.Second, clk)

	c.Set(1, ProductInfo{Name: "Limited Sneaker", PriceCents: 1000})

	clk.Advance(9 * time.Second)
	info, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "Limited Sneaker", info.Name)
	assert.Equal(t, int64(1000), info.PriceCents)
}

func TestProductInfoCache_ExpiresAfterTTL(t *testing.T) {
	clk := &clock.Fixed{Time: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := New(10*time.Second, clk)

	c.Set(1, ProductInfo{Name: "Limited Sneaker", PriceCents: 1000})

	clk.Advance(10 * time.Second)
	_, ok := c.Get(1)
	assert.False(t, ok, "entry at exactly TTL should be stale")
}

func TestProductInfoCache_MissForUnknownID(t *testing.T) {
	clk := &clock.Fixed{Time: time.Now().UTC()}
	c := New(time.Second, clk)

	_, ok := c.Get(42)
	assert.False(t, ok)
}

func TestProductInfoCache_SetRefreshesTTL(t *testing.T) {
	clk := &clock.Fixed{Time: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := New(10*time.Second, clk)

	c.Set(1, ProductInfo{Name: "Limited Sneaker", PriceCents: 1000})
	clk.Advance(8 * time.Second)
	c.Set(1, ProductInfo{Name: "Limited Sneaker", PriceCents: 1200})
	clk.Advance(8 * time.Second)

	info, ok := c.Get(1)
	assert.True(t, ok, "second Set should restart the TTL window")
	assert.Equal(t, int64(1200), info.PriceCents)
}
