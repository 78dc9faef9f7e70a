package ttlcache

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const (
	// DefaultTTL is used by Set when no positive ttl is given.
	DefaultTTL = 5 * time.Minute
	// DefaultCleanupInterval is how often the sweeper scans for expired entries.
	DefaultCleanupInterval = time.Minute
	// DefaultShardCount is the number of independently locked table shards.
	DefaultShardCount = 16
)

// Option configures a Cache.
type Option func(*Cache)

// WithDefaultTTL 設置默認的過期時間
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithCleanupInterval sets the sweep interval. A non-positive interval
// disables the background sweeper; expired entries are then removed only when read.
func WithCleanupInterval(interval time.Duration) Option {
	return func(c *Cache) {
		c.cleanupInterval = interval
	}
}

// WithShardCount 設置分片數量
func WithShardCount(count uint64) Option {
	return func(c *Cache) {
		if count > 0 {
			c.shardCount = count
		}
	}
}

// WithClock replaces the wall clock, mainly so tests can drive expiry and sweeps.
func WithClock(clk clock.Clock) Option {
	return func(c *Cache) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithLogger 設置自定義 Logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}
