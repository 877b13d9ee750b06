// Package cache is a small TTL cache with LRU eviction.
package cache

import (
	"container/list"
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"
)

type entry[V any] struct {
	key     string
	value   V
	expires time.Time // zero means no expiry
}

// Cache is safe for concurrent use. The most recently used entry sits at
// the front of order; eviction takes from the back.
type Cache[V any] struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List
	maxItems int // 0 = unlimited
	now      func() time.Time
}

func New[V any](maxItems int) *Cache[V] {
	if maxItems < 0 {
		maxItems = 0
	}
	return &Cache[V]{
		items:    make(map[string]*list.Element),
		order:    list.New(),
		maxItems: maxItems,
		now:      time.Now,
	}
}

// Get returns the value for key if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[V])
	if c.expired(e) {
		c.removeElement(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

// Set stores v under key. ttl<=0 means no expiry.
func (c *Cache[V]) Set(key string, v V, ttl time.Duration) {
	if c == nil {
		return
	}
	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = v
		e.expires = exp
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: v, expires: exp})
	for c.maxItems > 0 && c.order.Len() > c.maxItems {
		c.removeElement(c.order.Back())
	}
}

func (c *Cache[V]) Delete(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	c.mu.Unlock()
}

func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Purge drops every expired entry and returns how many were removed.
func (c *Cache[V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if c.expired(el.Value.(*entry[V])) {
			c.removeElement(el)
			n++
		}
		el = prev
	}
	return n
}

// RunJanitor purges expired entries every interval until ctx is done.
func (c *Cache[V]) RunJanitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Purge()
		}
	}
}

func (c *Cache[V]) expired(e *entry[V]) bool {
	return !e.expires.IsZero() && c.now().After(e.expires)
}

// removeElement unlinks el; caller must hold c.mu.
func (c *Cache[V]) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
}

// KeyFromStrings creates a compact stable key from parts.
func KeyFromStrings(parts ...string) string {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(p))
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
