// Package cache keeps recently loaded rule sets per marketplace scope.
package cache

import (
	"sync"
	"time"

	"github.com/Veraticus/spice-rules/internal/model"
)

// DefaultTTL is how long a cached rule set stays fresh.
const DefaultTTL = 5 * time.Minute

// cacheEntry is a cached rule set and the time it was stored.
type cacheEntry struct {
	storedAt time.Time
	rules    []model.AutoRule
}

// RuleCache provides thread-safe caching of rule sets keyed by scope.
type RuleCache struct {
	entries map[string]cacheEntry
	now     func() time.Time
	ttl     time.Duration
	mu      sync.RWMutex
}

// Option configures a RuleCache.
type Option func(*RuleCache)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *RuleCache) {
		c.now = now
	}
}

// New creates a cache with the given TTL. A non-positive TTL uses DefaultTTL.
func New(ttl time.Duration, opts ...Option) *RuleCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &RuleCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
		ttl:     ttl,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the rules cached for scope. An entry older than the
// TTL is evicted and reported as a miss.
func (c *RuleCache) Get(scope string) ([]model.AutoRule, bool) {
	scope = model.NormalizeScope(scope)

	c.mu.RLock()
	entry, exists := c.entries[scope]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if c.now().Sub(entry.storedAt) > c.ttl {
		c.mu.Lock()
		// Another writer may have refreshed the entry meanwhile.
		if cur, ok := c.entries[scope]; ok && cur.storedAt.Equal(entry.storedAt) {
			delete(c.entries, scope)
		}
		c.mu.Unlock()
		return nil, false
	}

	return cloneRules(entry.rules), true
}

// Set stores a copy of rules for scope, replacing any previous entry.
func (c *RuleCache) Set(scope string, rules []model.AutoRule) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[model.NormalizeScope(scope)] = cacheEntry{
		rules:    cloneRules(rules),
		storedAt: c.now(),
	}
}

// Invalidate evicts scope and the "all" scope, which always contains it.
func (c *RuleCache) Invalidate(scope string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, model.NormalizeScope(scope))
	delete(c.entries, model.ScopeAll)
}

// InvalidateAll removes every entry.
func (c *RuleCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of entries, fresh or not.
func (c *RuleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func cloneRules(rules []model.AutoRule) []model.AutoRule {
	out := make([]model.AutoRule, len(rules))
	for i, r := range rules {
		out[i] = r.Clone()
	}
	return out
}
