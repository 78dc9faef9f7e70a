package ttlcache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_RemovesUnreadExpiredEntry(t *testing.T) {
	mock := clock.NewMock()
	c := New(WithClock(mock), WithCleanupInterval(time.Minute))
	defer c.Shutdown()

	c.Set("short", "v", 10*time.Second)
	c.Set("long", "v", time.Hour)
	require.Equal(t, 2, c.Size())

	mock.Add(time.Minute)

	require.Eventually(t, func() bool {
		return c.Size() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"long"}, c.Keys())
	assert.Zero(t, c.Hits()+c.Misses(), "the sweep must not count as an access")

	_, ok := c.Get("short")
	assert.False(t, ok)
}

func TestSweep_WithRealTicker(t *testing.T) {
	c := New(WithCleanupInterval(10 * time.Millisecond))
	defer c.Shutdown()

	c.Set("ttl", "v", 20*time.Millisecond)

	assert.Eventually(t, func() bool {
		return c.Size() == 0
	}, 500*time.Millisecond, 5*time.Millisecond)
}

func TestSweep_Direct(t *testing.T) {
	c, mock := newMockCache(t)

	c.Set("a", 1, time.Second)
	c.Set("b", 2, 2*time.Second)
	c.Set("c", 3, time.Hour)

	assert.Equal(t, 0, c.sweep())

	mock.Add(1500 * time.Millisecond)
	assert.Equal(t, 1, c.sweep())

	mock.Add(time.Second)
	assert.Equal(t, 1, c.sweep())
	assert.Equal(t, []string{"c"}, c.Keys())
	assert.Equal(t, int64(2), c.Stats().Evictions)

	// Lazy eviction and the sweep agree: whichever runs first wins.
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestShutdown_Idempotent(t *testing.T) {
	mock := clock.NewMock()
	c := New(WithClock(mock), WithCleanupInterval(time.Minute))

	c.Shutdown()
	c.Shutdown()

	c.Set("k", "v", time.Second)
	v, ok := c.Get("k")
	require.True(t, ok, "data operations stay valid after shutdown")
	assert.Equal(t, "v", v)

	mock.Add(2 * time.Minute)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, c.Size(), "no sweeping after shutdown")

	assert.False(t, c.Has("k"))
	assert.Equal(t, 0, c.Size())
}

func TestShutdown_WithoutSweeper(t *testing.T) {
	c := New(WithCleanupInterval(0))
	c.Shutdown()
	c.Shutdown()

	c.Set("k", 1)
	assert.True(t, c.Has("k"))
}

func TestSweep_ConcurrentClearLeavesNoEvictions(t *testing.T) {
	c, mock := newMockCache(t, WithShardCount(8))

	for range 200 {
		for i := range 64 {
			c.Set(fmt.Sprintf("key-%d", i), i, time.Second)
		}
		mock.Add(2 * time.Second)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.sweep()
		}()
		go func() {
			defer wg.Done()
			c.Clear()
		}()
		wg.Wait()

		// Removals counted before the reset are wiped by it; after the reset
		// nothing is left to remove.
		require.Zero(t, c.Stats().Evictions)
		require.Zero(t, c.Size())
	}
}
