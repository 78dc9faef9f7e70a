// Package remote implements the optional Redis tier that lets several
// processes share fetched news instead of each calling the provider.
package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"goflare.io/cinder/internal/config"
	"goflare.io/cinder/pkg/serialization"
)

const scanBatch = 1000

// Store keeps serialized values in Redis under a common prefix. A local bloom
// filter of written keys lets definite misses skip the round trip.
type Store struct {
	client  redis.Cmdable
	codec   serialization.Codec
	prefix  string
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger

	filterCfg config.BloomFilterConfig
	filterMu  sync.RWMutex
	filter    *bloom.BloomFilter
}

// New creates a Store on top of client.
func New(client redis.Cmdable, cfg *config.Config) *Store {
	settings := cfg.Resilience.CircuitBreaker
	settings.Name = "RemoteCache"

	return &Store{
		client:    client,
		codec:     cfg.Serialization,
		prefix:    cfg.Remote.KeyPrefix,
		breaker:   gobreaker.NewCircuitBreaker(settings),
		logger:    cfg.Logger,
		filterCfg: cfg.Remote.BloomFilter,
		filter:    bloom.NewWithEstimates(cfg.Remote.BloomFilter.ExpectedItems, cfg.Remote.BloomFilter.FalsePositiveRate),
	}
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

func (s *Store) mightContain(key string) bool {
	s.filterMu.RLock()
	defer s.filterMu.RUnlock()
	return s.filter.TestString(key)
}

func (s *Store) remember(key string) {
	s.filterMu.Lock()
	s.filter.AddString(key)
	s.filterMu.Unlock()
}

// Get decodes the value stored under key into value and returns how long it
// has left to live in Redis. A zero duration means Redis reported no expiry.
func (s *Store) Get(ctx context.Context, key string, value any) (time.Duration, bool, error) {
	if !s.mightContain(key) {
		s.logger.Debug("Bloom filter negative for key", zap.String("key", key))
		return 0, false, nil
	}

	var (
		data []byte
		ttl  time.Duration
	)
	_, err := s.breaker.Execute(func() (any, error) {
		pipe := s.client.Pipeline()
		getCmd := pipe.Get(ctx, s.key(key))
		ttlCmd := pipe.PTTL(ctx, s.key(key))
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to execute pipeline: %w", err)
		}

		var err error
		data, err = getCmd.Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, err
		}
		ttl = ttlCmd.Val()
		return nil, nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("redis get failed: %w", err)
	}
	if data == nil {
		return 0, false, nil
	}

	if err := s.codec.Unmarshal(data, value); err != nil {
		return 0, false, err
	}
	if ttl < 0 {
		ttl = 0
	}
	return ttl, true, nil
}

// Set stores value under key for ttl.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := s.codec.Marshal(value)
	if err != nil {
		return err
	}

	if _, err := s.breaker.Execute(func() (any, error) {
		return nil, s.client.Set(ctx, s.key(key), data, ttl).Err()
	}); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	s.remember(key)
	return nil
}

// Clear deletes every key under the prefix and resets the bloom filter.
func (s *Store) Clear(ctx context.Context) error {
	err := s.scan(ctx, func(keys []string) error {
		return s.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to clear remote cache: %w", err)
	}

	s.filterMu.Lock()
	s.filter = bloom.NewWithEstimates(s.filterCfg.ExpectedItems, s.filterCfg.FalsePositiveRate)
	s.filterMu.Unlock()
	return nil
}

// Rebuild reconstructs the bloom filter from the keys currently in Redis,
// so keys written by other processes become visible.
func (s *Store) Rebuild(ctx context.Context) error {
	newFilter := bloom.NewWithEstimates(s.filterCfg.ExpectedItems, s.filterCfg.FalsePositiveRate)

	count := 0
	err := s.scan(ctx, func(keys []string) error {
		for _, key := range keys {
			newFilter.AddString(key[len(s.prefix):])
		}
		count += len(keys)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to rebuild bloom filter: %w", err)
	}

	s.filterMu.Lock()
	s.filter = newFilter
	s.filterMu.Unlock()

	s.logger.Info("Rebuilt remote cache bloom filter", zap.Int("keys", count))
	return nil
}

func (s *Store) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys from remote cache: %w", err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close closes the underlying client when it can be closed.
func (s *Store) Close() error {
	if closer, ok := s.client.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("failed to close remote cache connection: %w", err)
		}
	}
	return nil
}
