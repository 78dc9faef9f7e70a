package ttlcache

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Get returns the value under key as a T. A value stored with another type is
// reported as absent, logged, and counted as a miss.
func Get[T any](c *Cache, key string) (T, bool) {
	var zero T

	entry, ok := c.lookup(key, true, func(value any) bool {
		_, ok := value.(T)
		return ok
	})
	if ok {
		return entry.Value.(T), true
	}

	if entry != nil {
		c.logger.Error("Invalid cache entry type",
			zap.String("key", key),
			zap.String("want", fmt.Sprintf("%T", zero)),
			zap.String("got", fmt.Sprintf("%T", entry.Value)))
	}
	return zero, false
}

// Namespace is a typed view over a Cache where every key shares a prefix and
// every value has type T.
type Namespace[T any] struct {
	cache  *Cache
	prefix string
}

// NewNamespace returns a typed view of c for keys starting with prefix.
func NewNamespace[T any](c *Cache, prefix string) *Namespace[T] {
	return &Namespace[T]{cache: c, prefix: prefix}
}

// Key returns the full cache key for name.
func (n *Namespace[T]) Key(name string) string {
	return n.prefix + name
}

// Get returns the value stored for name.
func (n *Namespace[T]) Get(name string) (T, bool) {
	return Get[T](n.cache, n.Key(name))
}

// Set stores value for name.
func (n *Namespace[T]) Set(name string, value T, ttl ...time.Duration) {
	n.cache.Set(n.Key(name), value, ttl...)
}

// Has reports whether name holds a live entry.
func (n *Namespace[T]) Has(name string) bool {
	return n.cache.Has(n.Key(name))
}

// Delete removes name and reports whether it was present.
func (n *Namespace[T]) Delete(name string) bool {
	return n.cache.Delete(n.Key(name))
}
