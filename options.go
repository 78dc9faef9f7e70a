package cinder

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"goflare.io/cinder/internal/config"
)

// Option 定義初始化 Cinder 的選項
type Option = config.Option

// WithLogger 設置自定義的日誌記錄器
func WithLogger(logger *zap.Logger) Option {
	return config.WithLogger(logger)
}

// WithClock replaces the wall clock used for expiry and sweeps.
func WithClock(clk clock.Clock) Option {
	return config.WithClock(clk)
}

// WithDefaultExpiration 設置默認的過期時間
func WithDefaultExpiration(ttl time.Duration) Option {
	return config.WithDefaultExpiration(ttl)
}

// WithCleanupInterval sets how often expired entries are swept; zero disables sweeping.
func WithCleanupInterval(interval time.Duration) Option {
	return config.WithCleanupInterval(interval)
}

// WithShardCount 設置分片數量
func WithShardCount(count uint64) Option {
	return config.WithShardCount(count)
}

// WithSerialization 設置遠端快取的序列化方式 ("json" or "gob")
func WithSerialization(serializer string) Option {
	return config.WithSerialization(serializer)
}

// WithRedis enables the shared Redis tier.
func WithRedis(opts *redis.Options) Option {
	return config.WithRedis(opts)
}

// WithWarmup loads categories at startup and refreshes them every interval.
func WithWarmup(interval time.Duration, categories ...string) Option {
	return config.WithWarmup(interval, categories...)
}

// WithNewsAPI sets the provider base URL and API key.
func WithNewsAPI(baseURL, apiKey string) Option {
	return config.WithNewsAPI(baseURL, apiKey)
}

// FromEnv applies .env and environment variables.
func FromEnv() Option {
	return config.FromEnv()
}

// FromYAML applies a YAML config file if it exists.
func FromYAML(path string) Option {
	return config.FromYAML(path)
}
