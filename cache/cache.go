package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// entry holds a cached result with its creation timestamp.
type entry[V any] struct {
	value     V
	createdAt time.Time
}

// Cache is an in-memory result cache keyed by request shape. Entries are
// evicted least-recently-used at capacity and dropped after ttl regardless
// of the per-lookup max age. It is safe for concurrent use.
type Cache[V any] struct {
	store *expirable.LRU[string, entry[V]]
	now   func() time.Time
}

// New creates a Cache holding at most maxEntries results for at most ttl.
func New[V any](maxEntries int, ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		store: expirable.NewLRU[string, entry[V]](maxEntries, nil, ttl),
		now:   time.Now,
	}
}

// Key hashes the request parts into a cache key.
func Key(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte("|"))
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached result if it exists and is younger than maxAgeMs
// milliseconds. If maxAgeMs <= 0, no lookup is performed.
func (c *Cache[V]) Get(key string, maxAgeMs int) (V, bool) {
	var zero V
	if c == nil || maxAgeMs <= 0 {
		return zero, false
	}
	e, ok := c.store.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.createdAt) > time.Duration(maxAgeMs)*time.Millisecond {
		return zero, false
	}
	return e.value, true
}

// Set stores a result, evicting the least recently used entry at capacity.
func (c *Cache[V]) Set(key string, v V) {
	if c == nil {
		return
	}
	c.store.Add(key, entry[V]{value: v, createdAt: c.now()})
}

// Len is the number of live entries.
func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	return c.store.Len()
}
