package ttlcache

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// runSweeper removes expired entries on every tick until ctx is cancelled.
func (c *Cache) runSweeper(ctx context.Context, ticker *clock.Ticker) {
	defer close(c.done)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-ctx.Done():
			c.logger.Debug("Stopping cache sweeper")
			return
		}
	}
}

// sweep scans the table one shard at a time, so readers and writers of other
// shards are never blocked for the whole scan.
func (c *Cache) sweep() int {
	now := c.clock.Now()
	removed := 0

	for _, s := range c.shards {
		s.mu.Lock()
		n := 0
		for key, entry := range s.items {
			if entry.IsExpired(now) {
				delete(s.items, key)
				n++
			}
		}
		// Counted under the shard lock so a concurrent Clear cannot reset
		// the counter in between.
		c.metrics.Evictions.Add(int64(n))
		s.mu.Unlock()
		removed += n
	}

	if removed > 0 {
		c.logger.Debug("Cache cleanup removed expired items", zap.Int("removed", removed))
	}
	return removed
}

// Shutdown stops the background sweeper and waits for it to exit. It is safe
// to call more than once. The cache stays usable afterwards; expired entries
// are then only removed when read.
func (c *Cache) Shutdown() {
	if !c.stopped.CompareAndSwap(false, true) {
		return
	}
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}
