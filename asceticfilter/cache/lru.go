package cache

import (
	"container/list"
	"sync"
)

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a bounded least-recently-used cache safe for concurrent use.
type LRU[K comparable, V any] struct {
	mu     sync.Mutex
	items  map[K]*list.Element
	order  *list.List
	size   int
	hits   uint64
	misses uint64
}

// NewLRU panics on a non-positive size.
func NewLRU[K comparable, V any](size int) *LRU[K, V] {
	if size <= 0 {
		panic("cache: size must be positive")
	}
	return &LRU[K, V]{
		items: make(map[K]*list.Element, size),
		order: list.New(),
		size:  size,
	}
}

// Add stores value under key and reports whether an entry was evicted.
func (c *LRU[K, V]) Add(key K, value V) (evicted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		elem.Value = lruEntry[K, V]{key: key, value: value}
		c.order.MoveToBack(elem)
		return false
	}
	elem := c.order.PushBack(lruEntry[K, V]{key: key, value: value})
	c.items[key] = elem
	if len(c.items) > c.size {
		front := c.order.Front()
		c.order.Remove(front)
		delete(c.items, front.Value.(lruEntry[K, V]).key)
		return true
	}
	return false
}

func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.order.MoveToBack(elem)
	return elem.Value.(lruEntry[K, V]).value, true
}

func (c *LRU[K, V]) Has(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

func (c *LRU[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[key]
	if !ok {
		return
	}
	delete(c.items, key)
	c.order.Remove(elem)
}

// RemoveFunc drops every entry whose key satisfies match.
func (c *LRU[K, V]) RemoveFunc(match func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, elem := range c.items {
		if match(key) {
			delete(c.items, key)
			c.order.Remove(elem)
			removed++
		}
	}
	return removed
}

func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*list.Element, c.size)
	c.order.Init()
}

func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

type Stats struct {
	Len    int
	Size   int
	Hits   uint64
	Misses uint64
}

func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Len: len(c.items), Size: c.size, Hits: c.hits, Misses: c.misses}
}
