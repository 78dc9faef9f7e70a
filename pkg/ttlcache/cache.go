package ttlcache

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"goflare.io/cinder/internal/models"
	"goflare.io/cinder/internal/utils"
)

// Cache is an expiring key-value store safe for concurrent use.
type Cache struct {
	shards  []*shard
	metrics *models.Metrics

	defaultTTL      time.Duration
	cleanupInterval time.Duration
	shardCount      uint64

	clock  clock.Clock
	logger *zap.Logger

	cancel  context.CancelFunc
	done    chan struct{}
	stopped atomic.Bool
}

type shard struct {
	mu    sync.RWMutex
	items map[string]*models.Entry
}

// New creates a Cache and starts its sweeper unless the cleanup interval is
// not positive. Call Shutdown to stop the sweeper.
func New(opts ...Option) *Cache {
	c := &Cache{
		metrics:         models.NewMetrics(),
		defaultTTL:      DefaultTTL,
		cleanupInterval: DefaultCleanupInterval,
		shardCount:      DefaultShardCount,
		clock:           clock.New(),
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.shards = make([]*shard, c.shardCount)
	for i := range c.shards {
		c.shards[i] = &shard{items: make(map[string]*models.Entry)}
	}

	if c.cleanupInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		c.done = make(chan struct{})
		// The ticker is created here rather than in the goroutine so that a
		// mock clock advanced right after New always reaches it.
		ticker := c.clock.Ticker(c.cleanupInterval)
		go c.runSweeper(ctx, ticker)
	}

	return c
}

func (c *Cache) shardFor(key string) *shard {
	return c.shards[utils.ShardIndex(c.shardCount, key)]
}

// Set inserts or replaces the entry for key for ttl[0]. An omitted, zero or
// negative ttl stores the entry for the cache's default TTL; it never makes
// the entry expire immediately.
func (c *Cache) Set(key string, value any, ttl ...time.Duration) {
	entry := models.NewEntry(value, c.clock.Now(), utils.GetExpirationTime(c.defaultTTL, ttl...))

	s := c.shardFor(key)
	s.mu.Lock()
	s.items[key] = entry
	s.mu.Unlock()
}

// Get returns the value stored under key. Missing and expired keys count as
// misses; an expired entry is removed before returning.
func (c *Cache) Get(key string) (any, bool) {
	entry, ok := c.lookup(key, true, nil)
	if !ok {
		return nil, false
	}
	return entry.Value, true
}

// Has reports whether key holds a live entry. It evicts an expired entry like
// Get does but leaves the hit and miss counters alone.
func (c *Cache) Has(key string) bool {
	_, ok := c.lookup(key, false, nil)
	return ok
}

// lookup finds a live entry for key, evicting it if it has expired. When
// match is non-nil the live value must satisfy it to count as found; a
// rejected entry is still returned with ok false so callers can report it.
// Counters are updated while the shard lock is held so Clear can reset them
// atomically.
func (c *Cache) lookup(key string, record bool, match func(any) bool) (entry *models.Entry, ok bool) {
	s := c.shardFor(key)
	now := c.clock.Now()

	s.mu.RLock()
	entry, ok = s.items[key]
	if !ok || !entry.IsExpired(now) {
		ok = ok && matches(match, entry)
		c.record(record, ok)
		s.mu.RUnlock()
		return entry, ok
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// The sweeper or another reader may have removed the entry, or a Set may
	// have replaced it, between the two locks.
	current, ok := s.items[key]
	if ok && !current.IsExpired(now) {
		ok = matches(match, current)
		c.record(record, ok)
		return current, ok
	}
	if ok {
		delete(s.items, key)
		c.metrics.Evictions.Inc()
	}
	c.record(record, false)
	return nil, false
}

func matches(match func(any) bool, entry *models.Entry) bool {
	return match == nil || match(entry.Value)
}

func (c *Cache) record(enabled, hit bool) {
	switch {
	case !enabled:
	case hit:
		c.metrics.Hits.Inc()
	default:
		c.metrics.Misses.Inc()
	}
}

// Delete removes key and reports whether an entry was present.
// Counters are not affected.
func (c *Cache) Delete(key string) bool {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; !ok {
		return false
	}
	delete(s.items, key)
	return true
}

// Clear removes every entry and resets all counters to zero.
func (c *Cache) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
	}
	for _, s := range c.shards {
		s.items = make(map[string]*models.Entry)
	}
	c.metrics.Reset()
	for _, s := range c.shards {
		s.mu.Unlock()
	}
}

// Size returns the number of entries in the table, including expired
// entries that have not been removed yet.
func (c *Cache) Size() int {
	size := 0
	for _, s := range c.shards {
		s.mu.RLock()
		size += len(s.items)
		s.mu.RUnlock()
	}
	return size
}

// Keys returns a snapshot of every key in the table, in no particular order.
// Like Size, it includes expired entries that have not been removed yet.
func (c *Cache) Keys() []string {
	keys := make([]string, 0, c.Size())
	for _, s := range c.shards {
		s.mu.RLock()
		for key := range s.items {
			keys = append(keys, key)
		}
		s.mu.RUnlock()
	}
	return keys
}

// Hits returns the number of successful Get calls since the last Clear.
func (c *Cache) Hits() int64 {
	return c.metrics.Hits.Load()
}

// Misses returns the number of unsuccessful Get calls since the last Clear.
func (c *Cache) Misses() int64 {
	return c.metrics.Misses.Load()
}

// HitRate returns hits / (hits + misses), or 0 when nothing has been read yet.
func (c *Cache) HitRate() float64 {
	return c.metrics.HitRate()
}

// Stats returns a diagnostics snapshot.
func (c *Cache) Stats() models.Stats {
	keys := c.Keys()
	return models.Stats{
		Size:      len(keys),
		Keys:      keys,
		Hits:      c.metrics.Hits.Load(),
		Misses:    c.metrics.Misses.Load(),
		Evictions: c.metrics.Evictions.Load(),
		HitRate:   c.metrics.HitRate(),
	}
}

// DefaultTTL returns the TTL applied when Set is called without one.
func (c *Cache) DefaultTTL() time.Duration {
	return c.defaultTTL
}
