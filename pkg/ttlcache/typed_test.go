package ttlcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type article struct {
	ID    string
	Title string
}

func TestGetTyped(t *testing.T) {
	c, _ := newMockCache(t)

	c.Set("list", []article{{ID: "1", Title: "one"}})
	c.Set("item", article{ID: "2"})

	list, ok := Get[[]article](c, "list")
	require.True(t, ok)
	assert.Len(t, list, 1)

	item, ok := Get[article](c, "item")
	require.True(t, ok)
	assert.Equal(t, "2", item.ID)

	_, ok = Get[article](c, "missing")
	assert.False(t, ok)
}

func TestGetTyped_MismatchIsAbsentAndLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	c, _ := newMockCache(t, WithLogger(zap.New(core)))

	c.Set("item", article{ID: "2"})

	got, ok := Get[[]article](c, "item")
	assert.False(t, ok)
	assert.Nil(t, got)

	entries := logs.FilterMessage("Invalid cache entry type").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "item", entries[0].ContextMap()["key"])

	assert.True(t, c.Has("item"), "a mismatched read must not remove the entry")
	assert.Zero(t, c.Hits())
	assert.Equal(t, int64(1), c.Misses())
	assert.Zero(t, c.HitRate())
}

func TestGetTyped_MismatchAfterHitKeepsCountsHonest(t *testing.T) {
	c, _ := newMockCache(t)
	items := NewNamespace[article](c, "news_item_")
	lists := NewNamespace[[]article](c, "news_")

	items.Set("a1", article{ID: "a1"})
	_, ok := items.Get("a1")
	require.True(t, ok)

	// news_ + item_a1 is the same key as news_item_ + a1.
	_, ok = lists.Get("item_a1")
	require.False(t, ok)

	assert.Equal(t, int64(1), c.Hits())
	assert.Equal(t, int64(1), c.Misses())
	assert.InDelta(t, 0.5, c.HitRate(), 1e-9)
}

func TestNamespace(t *testing.T) {
	c, mock := newMockCache(t)

	authors := NewNamespace[[]article](c, "news_author_")
	items := NewNamespace[article](c, "news_item_")

	assert.Equal(t, "news_author_jane", authors.Key("jane"))

	authors.Set("jane", []article{{ID: "1"}}, time.Minute)
	items.Set("1", article{ID: "1"}, 10*time.Minute)

	assert.ElementsMatch(t, []string{"news_author_jane", "news_item_1"}, c.Keys())

	got, ok := authors.Get("jane")
	require.True(t, ok)
	assert.Equal(t, "1", got[0].ID)
	assert.True(t, items.Has("1"))

	mock.Add(2 * time.Minute)
	assert.False(t, authors.Has("jane"))
	assert.True(t, items.Has("1"))

	assert.True(t, items.Delete("1"))
	assert.False(t, items.Delete("1"))
}
