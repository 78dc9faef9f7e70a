// Package news serves article queries from the expiring cache and falls back
// to the external provider on a miss.
package news

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"goflare.io/cinder/internal/config"
	"goflare.io/cinder/internal/models"
	"goflare.io/cinder/pkg/ttlcache"
)

var errNotFound = errors.New("news item not found")

// RemoteStore is a cache tier shared between processes.
type RemoteStore interface {
	Get(ctx context.Context, key string, value any) (time.Duration, bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// Service answers news queries. Results are cached under deterministic keys;
// failed fetches are never cached, so the next request retries the provider.
type Service struct {
	provider Provider
	cache    *ttlcache.Cache
	remote   RemoteStore

	latest   *ttlcache.Namespace[[]models.NewsItem]
	authors  *ttlcache.Namespace[[]models.NewsItem]
	titles   *ttlcache.Namespace[[]models.NewsItem]
	keywords *ttlcache.Namespace[[]models.NewsItem]
	items    *ttlcache.Namespace[models.NewsItem]

	limit   int
	listTTL time.Duration
	itemTTL time.Duration

	sf     singleflight.Group
	tracer trace.Tracer
	logger *zap.Logger
}

// NewService creates a Service. remote may be nil.
func NewService(cfg *config.Config, provider Provider, cache *ttlcache.Cache, remote RemoteStore) *Service {
	return &Service{
		provider: provider,
		cache:    cache,
		remote:   remote,

		latest:   ttlcache.NewNamespace[[]models.NewsItem](cache, "news_"),
		authors:  ttlcache.NewNamespace[[]models.NewsItem](cache, "news_author_"),
		titles:   ttlcache.NewNamespace[[]models.NewsItem](cache, "news_title_"),
		keywords: ttlcache.NewNamespace[[]models.NewsItem](cache, "news_keywords_"),
		items:    ttlcache.NewNamespace[models.NewsItem](cache, "news_item_"),

		limit:   cfg.News.Limit,
		listTTL: cfg.News.ListTTL,
		itemTTL: cfg.News.ItemTTL,

		tracer: otel.Tracer("goflare.io/cinder/news"),
		logger: cfg.Logger,
	}
}

// Latest returns the latest articles of category ("general" when empty).
func (s *Service) Latest(ctx context.Context, category string) []models.NewsItem {
	if category == "" {
		category = defaultCategory
	}
	items, _ := fetchOrCompute(ctx, s, "Latest", s.latest, category, s.listTTL,
		func(ctx context.Context) ([]models.NewsItem, error) {
			return s.provider.LatestNews(ctx, category, s.limit)
		})
	return orEmpty(items)
}

// ByAuthor returns articles whose author contains author, ignoring case.
func (s *Service) ByAuthor(ctx context.Context, author string) []models.NewsItem {
	items, _ := fetchOrCompute(ctx, s, "ByAuthor", s.authors, author, s.listTTL,
		func(ctx context.Context) ([]models.NewsItem, error) {
			found, err := s.provider.Search(ctx, author, s.limit)
			if err != nil {
				return nil, err
			}
			return filter(found, author, func(item models.NewsItem) string { return item.Author }), nil
		})
	return orEmpty(items)
}

// ByTitle returns articles whose title contains title, ignoring case.
func (s *Service) ByTitle(ctx context.Context, title string) []models.NewsItem {
	items, _ := fetchOrCompute(ctx, s, "ByTitle", s.titles, title, s.listTTL,
		func(ctx context.Context) ([]models.NewsItem, error) {
			found, err := s.provider.Search(ctx, title, s.limit)
			if err != nil {
				return nil, err
			}
			return filter(found, title, func(item models.NewsItem) string { return item.Title }), nil
		})
	return orEmpty(items)
}

// ByKeywords returns the provider's search results for keywords.
func (s *Service) ByKeywords(ctx context.Context, keywords string) []models.NewsItem {
	items, _ := fetchOrCompute(ctx, s, "ByKeywords", s.keywords, keywords, s.listTTL,
		func(ctx context.Context) ([]models.NewsItem, error) {
			return s.provider.Search(ctx, keywords, s.limit)
		})
	return orEmpty(items)
}

// ByID returns a single article. Lookups that find nothing are not cached.
func (s *Service) ByID(ctx context.Context, id string) (models.NewsItem, bool) {
	return fetchOrCompute(ctx, s, "ByID", s.items, id, s.itemTTL,
		func(ctx context.Context) (models.NewsItem, error) {
			found, err := s.provider.Search(ctx, id, 1)
			if err != nil {
				return models.NewsItem{}, err
			}
			if len(found) == 0 {
				return models.NewsItem{}, errNotFound
			}
			return found[0], nil
		})
}

// ClearCache empties the local cache, resetting its counters, and the remote tier if any.
func (s *Service) ClearCache(ctx context.Context) error {
	s.cache.Clear()
	s.logger.Info("Cache cleared")

	if s.remote == nil {
		return nil
	}
	if err := s.remote.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear remote cache: %w", err)
	}
	return nil
}

// CacheStats returns diagnostics for the local cache.
func (s *Service) CacheStats() models.Stats {
	return s.cache.Stats()
}

// fetchOrCompute returns the cached value for name or loads it through the
// remote tier and then the provider. Concurrent loads of one key share a call.
func fetchOrCompute[T any](
	ctx context.Context,
	s *Service,
	op string,
	ns *ttlcache.Namespace[T],
	name string,
	ttl time.Duration,
	fetch func(context.Context) (T, error),
) (T, bool) {
	key := ns.Key(name)
	ctx, span := s.tracer.Start(ctx, "news."+op, trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	if value, ok := ns.Get(name); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		s.logger.Debug("Cache hit", zap.String("key", key))
		return value, true
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	// Namespaces can map to the same cache key, so flights are per operation.
	v, err, shared := s.sf.Do(op+":"+key, func() (any, error) {
		if value, ok := loadRemote(ctx, s, ns, name, ttl); ok {
			return value, nil
		}

		s.logger.Debug("Fetching from external API", zap.String("key", key))
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		ns.Set(name, value, ttl)
		if s.remote != nil {
			if err := s.remote.Set(ctx, key, value, ttl); err != nil {
				s.logger.Warn("Failed to set remote cache", zap.String("key", key), zap.Error(err))
			}
		}
		return value, nil
	})
	span.SetAttributes(attribute.Bool("singleflight.shared", shared))

	var zero T
	if err != nil {
		switch {
		case errors.Is(err, errNotFound):
			s.logger.Debug("No result from external API", zap.String("key", key))
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Error("Error fetching from external API", zap.String("key", key), zap.Error(err))
		}
		return zero, false
	}

	value, ok := v.(T)
	if !ok {
		return zero, false
	}
	return value, true
}

func loadRemote[T any](ctx context.Context, s *Service, ns *ttlcache.Namespace[T], name string, ttl time.Duration) (T, bool) {
	var value T
	if s.remote == nil {
		return value, false
	}

	key := ns.Key(name)
	remaining, found, err := s.remote.Get(ctx, key, &value)
	if err != nil {
		s.logger.Warn("Failed to get from remote cache", zap.String("key", key), zap.Error(err))
		return value, false
	}
	if !found {
		return value, false
	}

	if remaining <= 0 || remaining > ttl {
		remaining = ttl
	}
	ns.Set(name, value, remaining)
	s.logger.Debug("Remote cache hit", zap.String("key", key), zap.Duration("ttl", remaining))
	return value, true
}

func filter(items []models.NewsItem, needle string, field func(models.NewsItem) string) []models.NewsItem {
	needle = strings.ToLower(needle)
	matched := make([]models.NewsItem, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(field(item)), needle) {
			matched = append(matched, item)
		}
	}
	return matched
}

func orEmpty(items []models.NewsItem) []models.NewsItem {
	if items == nil {
		return []models.NewsItem{}
	}
	return items
}
