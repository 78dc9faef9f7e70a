package cinder

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"goflare.io/cinder/internal/cache/remote"
	"goflare.io/cinder/internal/config"
	"goflare.io/cinder/internal/models"
	"goflare.io/cinder/internal/news"
	"goflare.io/cinder/pkg/ttlcache"
)

type (
	// NewsItem is a single article.
	NewsItem = models.NewsItem
	// Stats is a snapshot of cache diagnostics.
	Stats = models.Stats
	// Provider fetches articles from an external source.
	Provider = news.Provider
)

// Cinder 定義 cinder 的主要結構體
type Cinder struct {
	cache  *ttlcache.Cache
	news   *news.Service
	remote *remote.Store
	logger *zap.Logger

	ownsLogger   bool
	stopPrefetch func()
	closeOnce    sync.Once
	closeErr     error
}

// New 初始化 Cinder，使用 HTTP 新聞來源
func New(ctx context.Context, opts ...Option) (*Cinder, error) {
	return NewWithProvider(ctx, nil, opts...)
}

// NewWithProvider initializes Cinder on top of provider. A nil provider means
// the HTTP client for the configured news API.
func NewWithProvider(ctx context.Context, provider Provider, opts ...Option) (*Cinder, error) {
	cfg, err := config.NewConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create config: %w", err)
	}

	// 未指定 Logger 時使用 production logger，並在 Close 時同步
	ownsLogger := !cfg.LoggerConfigured()
	if ownsLogger {
		logger, err := zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		cfg.Logger = logger
	}

	if provider == nil {
		client, err := news.NewClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create news client: %w", err)
		}
		provider = client
	}

	c := &Cinder{logger: cfg.Logger, ownsLogger: ownsLogger}

	var remoteStore news.RemoteStore
	if cfg.Remote.Enabled {
		redisClient := redis.NewClient(cfg.Remote.RedisOptions)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		c.remote = remote.New(redisClient, cfg)
		if err := c.remote.Rebuild(ctx); err != nil {
			cfg.Logger.Warn("Starting with an empty bloom filter", zap.Error(err))
		}
		remoteStore = c.remote
	}

	c.cache = ttlcache.New(
		ttlcache.WithDefaultTTL(cfg.DefaultExpiration),
		ttlcache.WithCleanupInterval(cfg.CleanupInterval),
		ttlcache.WithShardCount(cfg.ShardCount),
		ttlcache.WithClock(cfg.Clock),
		ttlcache.WithLogger(cfg.Logger),
	)
	c.news = news.NewService(cfg, provider, c.cache, remoteStore)

	// 預熱並定期刷新熱門分類
	prefetcher := news.NewPrefetcher(cfg, c.news)
	prefetcher.Warmup(ctx)
	c.stopPrefetch = prefetcher.Start(context.WithoutCancel(ctx))

	cfg.Logger.Info("Cinder initialized",
		zap.Duration("defaultExpiration", cfg.DefaultExpiration),
		zap.Duration("cleanupInterval", cfg.CleanupInterval),
		zap.Uint64("shards", cfg.ShardCount),
		zap.Bool("remote", cfg.Remote.Enabled))

	return c, nil
}

// Latest 獲取指定分類的最新新聞
func (c *Cinder) Latest(ctx context.Context, category string) []NewsItem {
	return c.news.Latest(ctx, category)
}

// ByAuthor returns articles by author.
func (c *Cinder) ByAuthor(ctx context.Context, author string) []NewsItem {
	return c.news.ByAuthor(ctx, author)
}

// ByTitle returns articles whose title matches title.
func (c *Cinder) ByTitle(ctx context.Context, title string) []NewsItem {
	return c.news.ByTitle(ctx, title)
}

// ByKeywords returns articles matching keywords.
func (c *Cinder) ByKeywords(ctx context.Context, keywords string) []NewsItem {
	return c.news.ByKeywords(ctx, keywords)
}

// ByID returns one article.
func (c *Cinder) ByID(ctx context.Context, id string) (NewsItem, bool) {
	return c.news.ByID(ctx, id)
}

// ClearCache 清空所有快取並重置統計
func (c *Cinder) ClearCache(ctx context.Context) error {
	return c.news.ClearCache(ctx)
}

// Stats returns cache size, keys and hit rate.
func (c *Cinder) Stats() Stats {
	return c.news.CacheStats()
}

// Cache exposes the underlying expiring cache.
func (c *Cinder) Cache() *ttlcache.Cache {
	return c.cache
}

// Close 關閉 Cinder，釋放資源
func (c *Cinder) Close() error {
	c.closeOnce.Do(func() {
		c.logger.Info("Closing Cinder")
		c.stopPrefetch()
		c.cache.Shutdown()
		if c.remote != nil {
			c.closeErr = c.remote.Close()
		}
		if c.ownsLogger {
			// Sync on stderr fails on some platforms; nothing to report.
			_ = c.logger.Sync()
		}
	})
	return c.closeErr
}
