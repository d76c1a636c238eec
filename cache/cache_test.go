package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetRespectsMaxAge(t *testing.T) {
	c := New[string](10, time.Hour)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("k", "price=999")

	got, ok := c.Get("k", 1000)
	assert.True(t, ok)
	assert.Equal(t, "price=999", got)

	now = now.Add(2 * time.Second)
	_, ok = c.Get("k", 1000)
	assert.False(t, ok, "older than max age")

	_, ok = c.Get("k", 5000)
	assert.True(t, ok, "a looser max age still hits")
}

func TestGetDisabled(t *testing.T) {
	c := New[int](10, time.Hour)
	c.Set("k", 1)
	_, ok := c.Get("k", 0)
	assert.False(t, ok)
	_, ok = c.Get("missing", 1000)
	assert.False(t, ok)
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a", 1000)
	c.Set("c", 3)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("b", 1000)
	assert.False(t, ok)
	_, ok = c.Get("a", 1000)
	assert.True(t, ok)
}

func TestNilCache(t *testing.T) {
	var c *Cache[int]
	c.Set("k", 1)
	_, ok := c.Get("k", 1000)
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("https://x", "Moscow"), Key("https://x", "Moscow"))
	assert.NotEqual(t, Key("https://x", "Moscow"), Key("https://x", "Tula"))
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
}
