package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/monetization/internal/clock"
	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpires(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewTTLCacheWithClock[string, int](clk.Now)

	c.Set("a", 1, time.Minute)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	clk.Advance(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestTTLCacheSetIfAbsent(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewTTLCacheWithClock[string, string](clk.Now)

	v, stored := c.SetIfAbsent("k", "first", time.Minute)
	assert.True(t, stored)
	assert.Equal(t, "first", v)

	v, stored = c.SetIfAbsent("k", "second", time.Minute)
	assert.False(t, stored)
	assert.Equal(t, "first", v)

	clk.Advance(2 * time.Minute)
	v, stored = c.SetIfAbsent("k", "third", time.Minute)
	assert.True(t, stored)
	assert.Equal(t, "third", v)

	c.Delete("k")
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestTTLCacheConcurrentSetIfAbsent(t *testing.T) {
	c := NewTTLCache[string, int]()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, stored := c.SetIfAbsent("race", i, time.Minute); stored {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}
