package cache_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/trialcycle/pkg/cache"
)

func TestLRU(t *testing.T) {
	t.Parallel()

	t.Run("get and set", func(t *testing.T) {
		t.Parallel()
		c := cache.NewLRU[string, int](2)

		_, ok := c.Get("a")
		assert.False(t, ok)

		c.Set("a", 1)
		c.Set("a", 2)
		v, ok := c.Get("a")
		require.True(t, ok)
		assert.Equal(t, 2, v)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		t.Parallel()
		var evicted []string
		c := cache.NewLRU[string, int](2, cache.WithEvictCallback(func(k string, _ int) {
			evicted = append(evicted, k)
		}))

		c.Set("a", 1)
		c.Set("b", 2)
		c.Get("a")
		c.Set("c", 3)

		_, ok := c.Get("b")
		assert.False(t, ok)
		_, ok = c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, []string{"b"}, evicted)
	})

	t.Run("peek keeps order", func(t *testing.T) {
		t.Parallel()
		c := cache.NewLRU[string, int](2)
		c.Set("a", 1)
		c.Set("b", 2)
		_, ok := c.Peek("a")
		require.True(t, ok)
		c.Set("c", 3)

		_, ok = c.Peek("a")
		assert.False(t, ok)
	})

	t.Run("delete and purge", func(t *testing.T) {
		t.Parallel()
		called := false
		c := cache.NewLRU[string, int](3, cache.WithEvictCallback(func(string, int) { called = true }))
		c.Set("a", 1)
		c.Set("b", 2)

		assert.True(t, c.Delete("a"))
		assert.False(t, c.Delete("a"))
		assert.Equal(t, 1, c.Len())

		c.Purge()
		assert.Equal(t, 0, c.Len())
		assert.False(t, called)
	})

	t.Run("invalid capacity panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { cache.NewLRU[string, int](0) })
	})

	t.Run("concurrent access", func(t *testing.T) {
		t.Parallel()
		c := cache.NewLRU[int, int](16)
		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range 100 {
					c.Set(i*100+j, j)
					c.Get(j)
				}
			}()
		}
		wg.Wait()
		assert.LessOrEqual(t, c.Len(), 16)
	})
}
