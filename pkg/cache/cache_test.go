package cache_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caiosm1005/outsystems-formula-flee/pkg/cache"
	"github.com/caiosm1005/outsystems-formula-flee/pkg/compiler"
)

func compileFunc(t *testing.T, ctx *compiler.Context, text string) func() (*compiler.Expression, error) {
	t.Helper()
	return func() (*compiler.Expression, error) { return ctx.Compile(text) }
}

func TestCache_LRU(t *testing.T) {
	ctx, err := compiler.NewContext(nil)
	require.NoError(t, err)
	c := cache.New(2)

	for _, text := range []string{"1", "2"} {
		_, err := c.GetOrCompile(text, compileFunc(t, ctx, text))
		require.NoError(t, err)
	}
	_, ok := c.Get("1")
	require.True(t, ok)

	_, err = c.GetOrCompile("3", compileFunc(t, ctx, "3"))
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
	_, ok = c.Get("2")
	assert.False(t, ok, "2 was least recently used")
	_, ok = c.Get("1")
	assert.True(t, ok)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Evictions)
	assert.Equal(t, uint64(2), stats.Hits)

	c.Invalidate("1")
	_, ok = c.Get("1")
	assert.False(t, ok)
	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, cache.DefaultCapacity, cache.New(0).Capacity())
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	c := cache.New(4)
	calls := 0
	boom := errors.New("boom")
	for range 2 {
		_, err := c.GetOrCompile("x", func() (*compiler.Expression, error) {
			calls++
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, c.Len())
}

func TestCache_ConcurrentMissesCompileOnce(t *testing.T) {
	ctx, err := compiler.NewContext(nil)
	require.NoError(t, err)
	c := cache.New(8)

	var compiles atomic.Int32
	start := make(chan struct{})
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			expr, err := c.GetOrCompile("40 + 2", func() (*compiler.Expression, error) {
				compiles.Add(1)
				return ctx.Compile("40 + 2")
			})
			if assert.NoError(t, err) {
				v, err := expr.Evaluate()
				assert.NoError(t, err)
				assert.Equal(t, int32(42), v)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.LessOrEqual(t, compiles.Load(), int32(32))
	assert.GreaterOrEqual(t, compiles.Load(), int32(1))
	assert.Equal(t, 1, c.Len())
}
