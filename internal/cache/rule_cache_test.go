package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(ttl time.Duration) (*RuleCache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	return New(ttl, WithClock(clock.Now)), clock
}

func TestRuleCache(t *testing.T) {
	t.Run("basic operations", func(t *testing.T) {
		c, _ := newTestCache(time.Minute)

		_, found := c.Get("shopee")
		assert.False(t, found)

		c.Set("Shopee", []model.AutoRule{{ID: "r1"}})
		rules, found := c.Get("shopee")
		require.True(t, found)
		assert.Equal(t, "r1", rules[0].ID)
		assert.Equal(t, 1, c.Len())

		c.Set("shopee", []model.AutoRule{{ID: "r2"}})
		rules, _ = c.Get("shopee")
		assert.Equal(t, "r2", rules[0].ID)

		c.InvalidateAll()
		assert.Equal(t, 0, c.Len())
	})

	t.Run("empty scope is all", func(t *testing.T) {
		c, _ := newTestCache(time.Minute)
		c.Set("", []model.AutoRule{{ID: "r1"}})
		_, found := c.Get("all")
		assert.True(t, found)
	})

	t.Run("expiration evicts", func(t *testing.T) {
		c, clock := newTestCache(time.Minute)
		c.Set("magalu", nil)

		clock.Advance(time.Minute)
		_, found := c.Get("magalu")
		assert.True(t, found, "entry exactly at TTL is still fresh")

		clock.Advance(time.Second)
		_, found = c.Get("magalu")
		assert.False(t, found)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("invalidate evicts scope and all", func(t *testing.T) {
		c, _ := newTestCache(time.Minute)
		c.Set("all", nil)
		c.Set("shopee", nil)
		c.Set("magalu", nil)

		c.Invalidate("shopee")
		_, found := c.Get("magalu")
		assert.True(t, found)
		_, found = c.Get("all")
		assert.False(t, found)
		_, found = c.Get("shopee")
		assert.False(t, found)
	})

	t.Run("returned rules are copies", func(t *testing.T) {
		c, _ := newTestCache(time.Minute)
		in := []model.AutoRule{{ID: "r1", Marketplaces: []string{"shopee"}}}
		c.Set("shopee", in)
		in[0].Marketplaces[0] = "changed"

		out, _ := c.Get("shopee")
		out[0].ID = "changed"

		again, _ := c.Get("shopee")
		assert.Equal(t, "r1", again[0].ID)
		assert.Equal(t, "shopee", again[0].Marketplaces[0])
	})

	t.Run("default ttl", func(t *testing.T) {
		c := New(0)
		assert.Equal(t, DefaultTTL, c.ttl)
	})
}

func TestRuleCache_Concurrent(t *testing.T) {
	c := New(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			scope := []string{"shopee", "magalu", "all"}[i%3]
			c.Set(scope, []model.AutoRule{{ID: "r"}})
			c.Get(scope)
			if i%5 == 0 {
				c.Invalidate(scope)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 3)
}
