package cache

// LRU is a fixed-capacity least-recently-used cache. Entries dropped by Put,
// Remove or Purge are passed to the eviction callback, which owns releasing
// them.
//
// LRU is not safe for concurrent use; callers hold their own lock.
type LRU[K comparable, V any] struct {
	capacity int
	entries  map[K]*lruNode[K, V]
	list     lruList[K, V]
	onEvict  func(K, V)

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a cache holding at most capacity entries. A capacity below
// one is raised to one. onEvict may be nil.
func New[K comparable, V any](capacity int, onEvict func(K, V)) *LRU[K, V] {
	return &LRU[K, V]{
		capacity: max(capacity, 1),
		entries:  make(map[K]*lruNode[K, V]),
		onEvict:  onEvict,
	}
}

// Get retrieves a value and marks it most recently used.
// Returns (value, true) if found, (zero, false) otherwise.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	node, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.list.MoveToFront(node)
	return node.value, true
}

// Put stores value under key. A previous value for key is evicted, as is
// the least recently used entry when the cache is full.
func (c *LRU[K, V]) Put(key K, value V) {
	if old, ok := c.entries[key]; ok {
		c.drop(old)
	}
	c.entries[key] = c.list.PushFront(key, value)
	for c.list.len > c.capacity {
		c.drop(c.list.Oldest())
	}
}

// GetOrCreate returns the cached value for key or stores the result of
// create. A create error is returned and nothing is stored.
func (c *LRU[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := create()
	if err != nil {
		return v, err
	}
	c.Put(key, v)
	return v, nil
}

// Remove evicts key. Returns true if the entry was present.
func (c *LRU[K, V]) Remove(key K) bool {
	node, ok := c.entries[key]
	if ok {
		c.drop(node)
	}
	return ok
}

// Purge evicts every entry, oldest first.
func (c *LRU[K, V]) Purge() {
	for node := c.list.Oldest(); node != nil; node = c.list.Oldest() {
		c.drop(node)
	}
}

// Len returns the number of entries in the cache.
func (c *LRU[K, V]) Len() int { return c.list.len }

// Stats returns cache statistics.
func (c *LRU[K, V]) Stats() Stats {
	s := Stats{
		Len:       c.list.len,
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

func (c *LRU[K, V]) drop(node *lruNode[K, V]) {
	c.list.Remove(node)
	delete(c.entries, node.key)
	c.evictions++
	if c.onEvict != nil {
		c.onEvict(node.key, node.value)
	}
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Capacity is the maximum number of entries.
	Capacity int
	// Hits is the number of successful lookups.
	Hits uint64
	// Misses is the number of failed lookups.
	Misses uint64
	// HitRate is the cache hit rate 0.0 to 1.0.
	HitRate float64
	// Evictions is the number of entries handed to the eviction callback.
	Evictions uint64
}
