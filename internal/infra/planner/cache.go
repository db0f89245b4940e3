package planner

import (
	"sync"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
)

// Cache is a bounded FIFO of plans. A zero or negative capacity disables caching.
type Cache struct {
	mu       sync.Mutex
	capacity int
	plans    map[string]domain.CoordinationPlan
	order    []string
}

func NewCache(capacity int) *Cache {
	return &Cache{capacity: capacity, plans: make(map[string]domain.CoordinationPlan)}
}

// Get returns the plan stored under key when it was built with opts.
func (c *Cache) Get(key string, opts domain.CoordinationOptions) (domain.CoordinationPlan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	plan, ok := c.plans[key]
	if !ok || plan.Options != opts {
		return domain.CoordinationPlan{}, false
	}
	return plan, true
}

func (c *Cache) Put(key string, plan domain.CoordinationPlan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capacity <= 0 {
		return
	}
	if _, ok := c.plans[key]; !ok {
		c.order = append(c.order, key)
	}
	c.plans[key] = plan
	c.evictLocked()
}

// Resize changes the capacity, evicting the oldest entries when shrinking.
func (c *Cache) Resize(capacity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capacity = capacity
	c.evictLocked()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.plans)
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plans = make(map[string]domain.CoordinationPlan)
	c.order = nil
}

func (c *Cache) evictLocked() {
	limit := c.capacity
	if limit < 0 {
		limit = 0
	}
	for len(c.order) > limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.plans, oldest)
	}
}
