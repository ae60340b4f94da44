package cache

import (
	"container/list"
	"sync"
	"time"
)

// Stats counts cache traffic since creation.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// LRU is a size-bounded cache whose entries also expire after a fixed TTL.
// Entries are indexed by owner so invalidation touches only that owner's keys.
type LRU[V any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	order   *list.List
	entries map[Key]*list.Element
	byOwner map[int64]map[Key]struct{}
	stats   Stats

	// seq numbers invalidations. gens holds the last one per owner and
	// clearedAt the last Clear.
	seq       uint64
	gens      map[int64]uint64
	clearedAt uint64
}

type entry[V any] struct {
	key       Key
	value     V
	expiresAt time.Time
}

var _ Cache[int] = (*LRU[int])(nil)

// NewLRU returns a cache holding at most maxSize entries for ttl each.
// A non-positive ttl keeps entries until they are evicted or invalidated.
func NewLRU[V any](maxSize int, ttl time.Duration) *LRU[V] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRU[V]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		order:   list.New(),
		entries: make(map[Key]*list.Element),
		byOwner: make(map[int64]map[Key]struct{}),
		gens:    make(map[int64]uint64),
	}
}

func (c *LRU[V]) Get(key Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}
	e := el.Value.(*entry[V])
	if c.expired(e, c.now()) {
		c.remove(el)
		c.stats.Misses++
		return zero, false
	}
	c.order.MoveToFront(el)
	c.stats.Hits++
	return e.value, true
}

func (c *LRU[V]) Set(key Key, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value)
}

func (c *LRU[V]) Generation(owner int64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation(owner)
}

func (c *LRU[V]) generation(owner int64) uint64 {
	return max(c.gens[owner], c.clearedAt)
}

// SetIfCurrent drops value when owner was invalidated after gen was read,
// so a result computed from data older than the invalidation is not cached.
func (c *LRU[V]) SetIfCurrent(key Key, value V, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation(key.Owner) != gen {
		return false
	}
	c.set(key, value)
	return true
}

func (c *LRU[V]) set(key Key, value V) {
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry[V])
		e.value, e.expiresAt = value, expiresAt
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&entry[V]{key: key, value: value, expiresAt: expiresAt})
	keys := c.byOwner[key.Owner]
	if keys == nil {
		keys = make(map[Key]struct{})
		c.byOwner[key.Owner] = keys
	}
	keys[key] = struct{}{}

	for c.order.Len() > c.maxSize {
		c.remove(c.order.Back())
		c.stats.Evictions++
	}
}

func (c *LRU[V]) InvalidateOwner(owner int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.gens[owner] = c.seq

	keys := c.byOwner[owner]
	n := len(keys)
	for key := range keys {
		c.remove(c.entries[key])
	}
	return n
}

func (c *LRU[V]) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.order.Len()
	c.order.Init()
	c.entries = make(map[Key]*list.Element)
	c.byOwner = make(map[int64]map[Key]struct{})
	c.seq++
	c.clearedAt = c.seq
	c.gens = make(map[int64]uint64)
	return n
}

// CleanExpired removes every expired entry and returns how many were removed.
func (c *LRU[V]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ttl <= 0 {
		return 0
	}
	now := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if c.expired(el.Value.(*entry[V]), now) {
			c.remove(el)
			removed++
		}
		el = prev
	}
	return removed
}

func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *LRU[V]) expired(e *entry[V], now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func (c *LRU[V]) remove(el *list.Element) {
	e := el.Value.(*entry[V])
	c.order.Remove(el)
	delete(c.entries, e.key)
	if keys := c.byOwner[e.key.Owner]; keys != nil {
		delete(keys, e.key)
		if len(keys) == 0 {
			delete(c.byOwner, e.key.Owner)
		}
	}
}
