package ttlcache

import (
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockCache(t *testing.T, opts ...Option) (*Cache, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	opts = append([]Option{WithClock(mock), WithCleanupInterval(0)}, opts...)
	c := New(opts...)
	t.Cleanup(c.Shutdown)
	return c, mock
}

func TestGet_NeverSetIsAbsent(t *testing.T) {
	c, _ := newMockCache(t)

	for _, key := range []string{"", "a", "news_general", "news_item_42"} {
		v, ok := c.Get(key)
		assert.False(t, ok, key)
		assert.Nil(t, v, key)
		assert.False(t, c.Has(key), key)
	}
	assert.Equal(t, int64(4), c.Misses())
	assert.Equal(t, int64(0), c.Hits())
}

func TestSet_ThenGetReturnsValue(t *testing.T) {
	c, _ := newMockCache(t)

	c.Set("int", 42, time.Second)
	c.Set("str", "x", time.Millisecond)
	c.Set("slice", []string{"a", "b"})

	v, ok := c.Get("int")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	v, ok = c.Get("str")
	require.True(t, ok)
	assert.Equal(t, "x", v)

	v, ok = c.Get("slice")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, v)

	assert.True(t, c.Has("int"))
	assert.Equal(t, int64(3), c.Hits())
}

func TestSet_ReplacesWholeEntry(t *testing.T) {
	c, mock := newMockCache(t)

	c.Set("k", "old", time.Second)
	mock.Add(900 * time.Millisecond)
	c.Set("k", "new", time.Second)
	mock.Add(900 * time.Millisecond)

	v, ok := c.Get("k")
	require.True(t, ok, "replacement must restart the TTL")
	assert.Equal(t, "new", v)
	assert.Equal(t, 1, c.Size())
}

func TestSet_NonPositiveTTLUsesDefault(t *testing.T) {
	c, mock := newMockCache(t, WithDefaultTTL(time.Minute))
	require.Equal(t, time.Minute, c.DefaultTTL())

	c.Set("zero", 1, 0)
	c.Set("negative", 2, -time.Second)
	c.Set("omitted", 3)

	mock.Add(59 * time.Second)
	assert.True(t, c.Has("zero"))
	assert.True(t, c.Has("negative"))
	assert.True(t, c.Has("omitted"))

	mock.Add(2 * time.Second)
	assert.False(t, c.Has("zero"))
	assert.False(t, c.Has("negative"))
	assert.False(t, c.Has("omitted"))
}

func TestGet_ExpiryBoundary(t *testing.T) {
	c, mock := newMockCache(t)

	c.Set("k", "v", 100*time.Millisecond)

	mock.Add(100 * time.Millisecond)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry is live at exactly its TTL")

	mock.Add(time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestGet_ExpiredEntryIsEvicted(t *testing.T) {
	c, mock := newMockCache(t)

	c.Set("a", 1, time.Second)
	c.Set("b", 2, time.Hour)
	require.Equal(t, 2, c.Size())

	mock.Add(2 * time.Second)
	assert.Equal(t, 2, c.Size(), "expired entries stay in the table until read or swept")
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Size())
	assert.Equal(t, []string{"b"}, c.Keys())
	assert.Equal(t, int64(1), c.Misses())
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestHas_EvictsWithoutTouchingCounters(t *testing.T) {
	c, mock := newMockCache(t)

	c.Set("a", 1, time.Second)
	assert.True(t, c.Has("a"))

	mock.Add(2 * time.Second)
	assert.False(t, c.Has("a"))
	assert.Equal(t, 0, c.Size())
	assert.Zero(t, c.Hits())
	assert.Zero(t, c.Misses())
}

// set("a", 42, 100ms); get → 42; sleep 150ms; get → absent.
func TestScenario_ShortTTLWithRealClock(t *testing.T) {
	c := New(WithCleanupInterval(0))
	defer c.Shutdown()

	c.Set("a", 42, 100*time.Millisecond)

	v, ok := Get[int](c, "a")
	require.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, int64(1), c.Hits())

	time.Sleep(150 * time.Millisecond)

	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Misses())
	assert.Equal(t, 0, c.Size())
}

func TestScenario_HasAndDelete(t *testing.T) {
	c, _ := newMockCache(t)

	c.Set("b", "x")
	assert.True(t, c.Has("b"))
	assert.True(t, c.Delete("b"))
	assert.False(t, c.Has("b"))
	assert.False(t, c.Delete("b"))
}

func TestDelete_DoesNotTouchCounters(t *testing.T) {
	c, _ := newMockCache(t)

	c.Set("k", 1)
	_, _ = c.Get("k")
	_, _ = c.Get("missing")
	c.Delete("k")

	assert.Equal(t, int64(1), c.Hits())
	assert.Equal(t, int64(1), c.Misses())
}

func TestClear_ResetsTableAndCounters(t *testing.T) {
	c, _ := newMockCache(t)

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	_, _ = c.Get("k1")
	_, _ = c.Get("nope")
	require.Equal(t, 10, c.Size())

	c.Clear()

	assert.Equal(t, 0, c.Size())
	assert.Empty(t, c.Keys())
	assert.Zero(t, c.Hits())
	assert.Zero(t, c.Misses())
	assert.Zero(t, c.HitRate())

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestCounters_Monotonic(t *testing.T) {
	c, mock := newMockCache(t)

	var lastHits, lastMisses int64
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("k%d", i%7)
		if i%3 == 0 {
			c.Set(key, i, time.Second)
		}
		_, _ = c.Get(key)
		if i%5 == 0 {
			mock.Add(700 * time.Millisecond)
		}

		assert.GreaterOrEqual(t, c.Hits(), lastHits)
		assert.GreaterOrEqual(t, c.Misses(), lastMisses)
		lastHits, lastMisses = c.Hits(), c.Misses()
	}
	assert.Equal(t, int64(50), lastHits+lastMisses)
}

func TestStats(t *testing.T) {
	c, _ := newMockCache(t)

	stats := c.Stats()
	assert.Zero(t, stats.HitRate, "no accesses must not divide by zero")
	assert.Empty(t, stats.Keys)

	c.Set("news_general", []string{"a"})
	c.Set("news_item_1", "item")
	_, _ = c.Get("news_general")
	_, _ = c.Get("news_general")
	_, _ = c.Get("news_general")
	_, _ = c.Get("news_sports")

	stats = c.Stats()
	sort.Strings(stats.Keys)
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, []string{"news_general", "news_item_1"}, stats.Keys)
	assert.Equal(t, int64(3), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.75, stats.HitRate, 1e-9)
}

func TestConcurrentSetSameKey(t *testing.T) {
	c := New(WithCleanupInterval(0))
	defer c.Shutdown()

	first := []int{1, 1, 1, 1}
	second := []int{2, 2, 2, 2}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Set("same", first)
		}()
		go func() {
			defer wg.Done()
			c.Set("same", second)
		}()
	}
	wg.Wait()

	v, ok := Get[[]int](c, "same")
	require.True(t, ok)
	assert.Contains(t, [][]int{first, second}, v)
	assert.Equal(t, 1, c.Size())
}

func TestConcurrentAccess(t *testing.T) {
	mock := clock.NewMock()
	c := New(WithClock(mock), WithCleanupInterval(time.Second), WithShardCount(4))
	defer c.Shutdown()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (w+i)%20)
				switch i % 4 {
				case 0:
					c.Set(key, i, time.Duration(i%3+1)*time.Second)
				case 1:
					_, _ = c.Get(key)
				case 2:
					_ = c.Has(key)
				default:
					_ = c.Delete(key)
				}
			}
		}(w)
	}
	for i := 0; i < 5; i++ {
		mock.Add(time.Second)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Size(), 20)
	assert.Equal(t, int64(8*50), c.Hits()+c.Misses())
}
