// Package cache keeps compiled expressions by source text so that a host
// evaluating the same formulas over and over compiles each one once.
//
// Entries are evicted least recently used first. Concurrent misses on the
// same key share a single compilation.
//
// # Example
//
//	c := cache.New(1024)
//	expr, err := c.GetOrCompile("price * qty", func() (*compiler.Expression, error) {
//	    return ctx.Compile("price * qty")
//	})
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/compiler"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 256

type entry struct {
	key  string
	expr *compiler.Expression
}

// Stats counts cache lookups.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cache is an LRU cache of compiled expressions. It is safe for concurrent
// use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element

	group                   singleflight.Group
	hits, misses, evictions atomic.Uint64
}

// New creates a cache holding at most capacity expressions.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the expression stored under key and marks it most recently
// used.
func (c *Cache) Get(key string) (*compiler.Expression, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.ll.MoveToFront(el)
	return el.Value.(*entry).expr, true
}

// Set stores expr under key, evicting the least recently used entry when
// the cache is full.
func (c *Cache) Set(key string, expr *compiler.Expression) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).expr = expr
		c.ll.MoveToFront(el)
		return
	}
	for c.ll.Len() >= c.capacity {
		c.evictLocked()
	}
	c.items[key] = c.ll.PushFront(&entry{key: key, expr: expr})
}

// GetOrCompile returns the expression stored under key, or compiles and
// stores it. Failed compilations are not cached.
func (c *Cache) GetOrCompile(key string, compile func() (*compiler.Expression, error)) (*compiler.Expression, error) {
	if expr, ok := c.Get(key); ok {
		return expr, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if expr, ok := c.peek(key); ok {
			return expr, nil
		}
		expr, err := compile()
		if err != nil {
			return nil, err
		}
		c.Set(key, expr)
		return expr, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*compiler.Expression), nil
}

// peek looks key up without touching the statistics or the order.
func (c *Cache) peek(key string) (*compiler.Expression, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		return el.Value.(*entry).expr, true
	}
	return nil, false
}

// Len returns the number of stored expressions.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Capacity returns the maximum number of stored expressions.
func (c *Cache) Capacity() int { return c.capacity }

// Stats returns the lookup counters.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Evictions: c.evictions.Load()}
}

// Invalidate removes key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

// Clear removes every entry. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	clear(c.items)
}

func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
	c.evictions.Add(1)
}
