package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	c := NewCache(time.Minute)

	key := c.generateKey(`{"bmi":22}`)
	c.Set(key, []byte(`{"severity":"LOW"}`))

	data, found := c.Get(key)
	require.True(t, found)
	assert.Equal(t, `{"severity":"LOW"}`, string(data))
}

func TestCacheMiss(t *testing.T) {
	c := NewCache(time.Minute)

	_, found := c.Get("nonexistent")
	assert.False(t, found)
}

func TestCacheKeyDeterministic(t *testing.T) {
	c := NewCache(time.Minute)

	assert.Equal(t, c.generateKey(`{"bmi":22}`), c.generateKey(`{"bmi":22}`))
	assert.NotEqual(t, c.generateKey(`{"bmi":22}`), c.generateKey(`{"bmi":23}`))
}

func TestCacheExpiration(t *testing.T) {
	c := NewCache(10 * time.Millisecond)

	key := c.generateKey("payload")
	c.Set(key, []byte("data"))

	time.Sleep(20 * time.Millisecond)

	_, found := c.Get(key)
	assert.False(t, found)
}

func TestCacheClear(t *testing.T) {
	c := NewCache(time.Minute)

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	require.Equal(t, 2, c.Size())

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestCacheStats(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("a", []byte("1"))

	stats := c.Stats()
	assert.Equal(t, 1, stats["total_items"])
	assert.Equal(t, 0, stats["expired_items"])
	assert.Equal(t, float64(60), stats["ttl_seconds"])
}
