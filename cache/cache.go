// Package cache provides a thread-safe LRU cache of compiled callables.
//
// Compiling a callable simplifies its expression and builds every backend,
// which is far slower than calling it. A server answering many calls of
// the same expression compiles each one once.
//
// # Example
//
//	c := cache.New(1024)
//	l, err := c.Compile([]string{"x", "y"}, symbol.MustParse("x*y + 1"))
package cache

import (
	"container/list"
	"strings"
	"sync"

	"github.com/njchilds90/golambdify/lambdify"
	"github.com/njchilds90/golambdify/symbol"
)

// DefaultCapacity is the capacity used when New is given none.
const DefaultCapacity = 256

// entry is a cache entry stored in the doubly-linked list.
type entry struct {
	key string
	fn  *lambdify.Lambdify
}

// Cache is an LRU cache of callables. Once the capacity is reached, the
// least recently used entry is evicted.
//
// Safe for concurrent use by multiple goroutines.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	opts     []lambdify.Option
	ll       *list.List
	items    map[string]*list.Element
}

// New creates a cache holding up to capacity callables, compiled with opts.
// A capacity <= 0 selects DefaultCapacity.
func New(capacity int, opts ...lambdify.Option) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		opts:     opts,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Key returns the cache key of an expression compiled over vars.
func Key(vars []string, expr symbol.Expr) string {
	return strings.Join(vars, ",") + "|" + expr.String()
}

// Get retrieves a callable and marks it most recently used.
func (c *Cache) Get(key string) (*lambdify.Lambdify, bool) {
	c.mu.RLock()
	el, ok := c.items[key]
	front := ok && c.ll.Front() == el
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !front {
		// Re-check: the entry may have been evicted meanwhile.
		c.mu.Lock()
		el, ok = c.items[key]
		if ok {
			c.ll.MoveToFront(el)
		}
		c.mu.Unlock()
		if !ok {
			return nil, false
		}
	}
	return el.Value.(*entry).fn, true
}

// Set inserts or replaces a callable, evicting the least recently used
// entry when full.
func (c *Cache) Set(key string, fn *lambdify.Lambdify) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).fn = fn
		c.ll.MoveToFront(el)
		return
	}
	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}
	c.items[key] = c.ll.PushFront(&entry{key: key, fn: fn})
}

// GetOrCompile returns the callable cached under key, or calls compile and
// caches its result. Errors are not cached.
func (c *Cache) GetOrCompile(key string, compile func() (*lambdify.Lambdify, error)) (*lambdify.Lambdify, error) {
	if fn, ok := c.Get(key); ok {
		return fn, nil
	}
	fn, err := compile()
	if err != nil {
		return nil, err
	}
	c.Set(key, fn)
	return fn, nil
}

// Compile returns the callable of expr over vars, compiling it with the
// options of the cache on a miss. It has the signature of
// lambdify.Tools.Compile.
func (c *Cache) Compile(vars []string, expr symbol.Expr) (*lambdify.Lambdify, error) {
	return c.GetOrCompile(Key(vars, expr), func() (*lambdify.Lambdify, error) {
		return lambdify.New(vars, expr, c.opts...)
	})
}

// Len returns the number of cached callables.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Capacity returns the maximum number of cached callables.
func (c *Cache) Capacity() int { return c.capacity }

// Invalidate removes a single entry.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// evictLocked removes the least recently used entry. c.mu must be held
// for writing.
func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
