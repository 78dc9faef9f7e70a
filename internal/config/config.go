package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"goflare.io/cinder/pkg/serialization"
)

// Config 用於 cinder 的配置
type Config struct {
	DefaultExpiration time.Duration
	CleanupInterval   time.Duration
	ShardCount        uint64

	News          NewsConfig
	Remote        RemoteConfig
	Resilience    ResilienceConfig
	Serialization serialization.Codec

	Logger *zap.Logger
	Clock  clock.Clock

	loggerSet bool
}

// NewsConfig 新聞來源相關配置
type NewsConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	Language       string        `yaml:"language"`
	Limit          int           `yaml:"limit"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ListTTL        time.Duration `yaml:"list_ttl"`
	ItemTTL        time.Duration `yaml:"item_ttl"`

	// 預熱分類，啟動時載入並定期刷新
	WarmupCategories []string      `yaml:"warmup_categories"`
	RefreshInterval  time.Duration `yaml:"refresh_interval"`
}

// RemoteConfig configures the optional Redis tier shared between processes.
type RemoteConfig struct {
	Enabled      bool
	RedisOptions *redis.Options
	KeyPrefix    string
	BloomFilter  BloomFilterConfig
}

// BloomFilterConfig 用於布隆過濾器的配置
type BloomFilterConfig struct {
	ExpectedItems     uint
	FalsePositiveRate float64
}

// ResilienceConfig 用於設置重試和熔斷器
type ResilienceConfig struct {
	CircuitBreaker  gobreaker.Settings
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Jitter          float64
}

// Option 函數類型
type Option func(*Config) error

var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid config")
)

const (
	DefaultNewsBaseURL = "https://api.currentsapi.services/v1"
	DefaultKeyPrefix   = "cinder:"
)

// NewConfig 創建一個默認的 Config，允許覆蓋特定參數
func NewConfig(options ...Option) (*Config, error) {
	codec, err := serialization.Lookup(serialization.JSONType)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DefaultExpiration: 5 * time.Minute,
		CleanupInterval:   time.Minute,
		ShardCount:        CalculateShardCount(),
		News: NewsConfig{
			BaseURL:        DefaultNewsBaseURL,
			Language:       "en",
			Limit:          20,
			RequestTimeout: 10 * time.Second,
			ListTTL:        5 * time.Minute,
			ItemTTL:        10 * time.Minute,
		},
		Remote: RemoteConfig{
			KeyPrefix: DefaultKeyPrefix,
			BloomFilter: BloomFilterConfig{
				ExpectedItems:     10000,
				FalsePositiveRate: 0.01,
			},
		},
		Resilience: ResilienceConfig{
			CircuitBreaker: gobreaker.Settings{
				Name:        "NewsProvider",
				MaxRequests: 3,
				Interval:    60 * time.Second,
				Timeout:     30 * time.Second,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures > 5
				},
			},
			MaxAttempts:     3,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     time.Second,
			Multiplier:      2,
			Jitter:          0.1,
		},
		Serialization: codec,
		Logger:        zap.NewNop(),
		Clock:         clock.New(),
	}

	// 應用所有選項
	for _, option := range options {
		if err := option(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values that would make the cache or the client unusable.
func (c *Config) Validate() error {
	switch {
	case c.ShardCount == 0:
		return fmt.Errorf("%w: shard count must be at least 1", ErrInvalidConfig)
	case c.DefaultExpiration <= 0:
		return fmt.Errorf("%w: default expiration must be positive", ErrInvalidConfig)
	case c.News.ListTTL <= 0 || c.News.ItemTTL <= 0:
		return fmt.Errorf("%w: news TTLs must be positive", ErrInvalidConfig)
	case c.News.BaseURL == "":
		return fmt.Errorf("%w: news base URL is required", ErrInvalidConfig)
	case c.News.Limit <= 0:
		return fmt.Errorf("%w: news limit must be positive", ErrInvalidConfig)
	case c.Remote.Enabled && c.Remote.RedisOptions == nil:
		return fmt.Errorf("%w: remote tier enabled without redis options", ErrInvalidConfig)
	case c.Logger == nil || c.Clock == nil:
		return fmt.Errorf("%w: logger and clock are required", ErrInvalidConfig)
	}
	return nil
}

// LoggerConfigured reports whether a logger was passed with WithLogger.
func (c *Config) LoggerConfigured() bool {
	return c.loggerSet
}

// WithLogger 設置自定義 Logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) error {
		if logger != nil {
			c.Logger = logger
			c.loggerSet = true
		}
		return nil
	}
}

// WithClock replaces the wall clock used by the cache.
func WithClock(clk clock.Clock) Option {
	return func(c *Config) error {
		if clk != nil {
			c.Clock = clk
		}
		return nil
	}
}

// WithDefaultExpiration 設置默認的過期時間
func WithDefaultExpiration(ttl time.Duration) Option {
	return func(c *Config) error {
		if ttl <= 0 {
			return fmt.Errorf("%w: default expiration must be positive", ErrInvalidConfig)
		}
		c.DefaultExpiration = ttl
		return nil
	}
}

// WithCleanupInterval sets the sweep interval; zero or less disables the sweeper.
func WithCleanupInterval(interval time.Duration) Option {
	return func(c *Config) error {
		c.CleanupInterval = interval
		return nil
	}
}

// WithShardCount 設置分片數量
func WithShardCount(count uint64) Option {
	return func(c *Config) error {
		if count == 0 {
			return fmt.Errorf("%w: shard count must be greater than 0", ErrInvalidConfig)
		}
		c.ShardCount = count
		return nil
	}
}

// WithSerialization 設置序列化方式
func WithSerialization(typ string) Option {
	return func(c *Config) error {
		codec, err := serialization.Lookup(typ)
		if err != nil {
			return err
		}
		c.Serialization = codec
		return nil
	}
}

// WithRedis enables the remote tier.
func WithRedis(opts *redis.Options) Option {
	return func(c *Config) error {
		if opts == nil {
			return fmt.Errorf("%w: redis options are nil", ErrInvalidConfig)
		}
		c.Remote.Enabled = true
		c.Remote.RedisOptions = opts
		return nil
	}
}

// WithWarmup preloads categories at startup and, when interval is positive,
// refreshes them on that interval.
func WithWarmup(interval time.Duration, categories ...string) Option {
	return func(c *Config) error {
		if interval < 0 {
			return fmt.Errorf("%w: refresh interval must not be negative", ErrInvalidConfig)
		}
		c.News.WarmupCategories = categories
		c.News.RefreshInterval = interval
		return nil
	}
}

// WithNewsAPI sets the provider endpoint and key.
func WithNewsAPI(baseURL, apiKey string) Option {
	return func(c *Config) error {
		if baseURL != "" {
			c.News.BaseURL = baseURL
		}
		c.News.APIKey = apiKey
		return nil
	}
}

// FromEnv loads a .env file when present and applies the environment on top
// of the defaults.
func FromEnv() Option {
	return func(c *Config) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
		return c.LoadFromEnv()
	}
}

// FromYAML applies a YAML file on top of the defaults. A missing file is not an error.
func FromYAML(path string) Option {
	return func(c *Config) error {
		return c.LoadFromYAML(path)
	}
}

// LoadFromEnv reads NEWS_API_BASE_URL, NEWS_API_KEY, REQUEST_TIMEOUT (milliseconds),
// REDIS_URL, CACHE_DEFAULT_TTL and CACHE_CLEANUP_INTERVAL.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("NEWS_API_BASE_URL"); v != "" {
		c.News.BaseURL = v
	}
	if v := os.Getenv("NEWS_API_KEY"); v != "" {
		c.News.APIKey = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return fmt.Errorf("%w: REQUEST_TIMEOUT must be a positive number of milliseconds, got %q", ErrInvalidConfig, v)
		}
		c.News.RequestTimeout = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		opts, err := redis.ParseURL(v)
		if err != nil {
			return fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		c.Remote.Enabled = true
		c.Remote.RedisOptions = opts
	}
	if v := os.Getenv("CACHE_DEFAULT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: CACHE_DEFAULT_TTL: %v", ErrInvalidConfig, err)
		}
		c.DefaultExpiration = d
	}
	if v := os.Getenv("CACHE_CLEANUP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: CACHE_CLEANUP_INTERVAL: %v", ErrInvalidConfig, err)
		}
		c.CleanupInterval = d
	}
	return nil
}

// LoadFromYAML reads the cache and news sections of a YAML file.
func (c *Config) LoadFromYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlConfig struct {
		Cache struct {
			DefaultExpiration time.Duration  `yaml:"default_expiration"`
			CleanupInterval   *time.Duration `yaml:"cleanup_interval"`
			ShardCount        uint64         `yaml:"shard_count"`
			Serialization     string         `yaml:"serialization"`
		} `yaml:"cache"`
		News  NewsConfig `yaml:"news"`
		Redis struct {
			URL       string `yaml:"url"`
			KeyPrefix string `yaml:"key_prefix"`
		} `yaml:"redis"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlConfig.Cache.DefaultExpiration > 0 {
		c.DefaultExpiration = yamlConfig.Cache.DefaultExpiration
	}
	if yamlConfig.Cache.CleanupInterval != nil {
		c.CleanupInterval = *yamlConfig.Cache.CleanupInterval
	}
	if yamlConfig.Cache.ShardCount > 0 {
		c.ShardCount = yamlConfig.Cache.ShardCount
	}
	if yamlConfig.Cache.Serialization != "" {
		codec, err := serialization.Lookup(yamlConfig.Cache.Serialization)
		if err != nil {
			return err
		}
		c.Serialization = codec
	}

	news := yamlConfig.News
	if news.BaseURL != "" {
		c.News.BaseURL = news.BaseURL
	}
	if news.APIKey != "" {
		c.News.APIKey = news.APIKey
	}
	if news.Language != "" {
		c.News.Language = news.Language
	}
	if news.Limit > 0 {
		c.News.Limit = news.Limit
	}
	if news.RequestTimeout > 0 {
		c.News.RequestTimeout = news.RequestTimeout
	}
	if news.ListTTL > 0 {
		c.News.ListTTL = news.ListTTL
	}
	if news.ItemTTL > 0 {
		c.News.ItemTTL = news.ItemTTL
	}
	if len(news.WarmupCategories) > 0 {
		c.News.WarmupCategories = news.WarmupCategories
	}
	if news.RefreshInterval > 0 {
		c.News.RefreshInterval = news.RefreshInterval
	}

	if yamlConfig.Redis.URL != "" {
		opts, err := redis.ParseURL(yamlConfig.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		c.Remote.Enabled = true
		c.Remote.RedisOptions = opts
	}
	if yamlConfig.Redis.KeyPrefix != "" {
		c.Remote.KeyPrefix = yamlConfig.Redis.KeyPrefix
	}

	return nil
}

// CalculateShardCount 計算動態分片數量
func CalculateShardCount() uint64 {
	cpuCores := uint64(runtime.NumCPU())
	// 每個核心 4 個分片，至少 1 個，最多 256 個
	shards := cpuCores * 4
	if shards == 0 {
		shards = 1
	}
	if shards > 256 {
		shards = 256
	}
	return shards
}
