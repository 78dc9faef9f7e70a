package news

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"goflare.io/cinder/internal/config"
)

const prefetchConcurrency = 4

// Prefetcher keeps a fixed set of categories warm: it loads them once at
// startup and then refreshes them before their list TTL runs out.
type Prefetcher struct {
	service    *Service
	categories []string
	interval   time.Duration
	clock      clock.Clock
	logger     *zap.Logger
}

// NewPrefetcher creates a Prefetcher for the configured warmup categories.
func NewPrefetcher(cfg *config.Config, service *Service) *Prefetcher {
	return &Prefetcher{
		service:    service,
		categories: cfg.News.WarmupCategories,
		interval:   cfg.News.RefreshInterval,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
	}
}

// Warmup preloads every category through the cache.
func (p *Prefetcher) Warmup(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchConcurrency)
	for _, category := range p.categories {
		g.Go(func() error {
			items := p.service.Latest(ctx, category)
			p.logger.Debug("Warmed up category", zap.String("category", category), zap.Int("items", len(items)))
			return nil
		})
	}
	_ = g.Wait()
}

// Start runs the refresh loop until ctx is done or the returned stop
// function is called. It is a no-op without categories or a positive interval.
func (p *Prefetcher) Start(ctx context.Context) (stop func()) {
	if p.interval <= 0 || len(p.categories) == 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ticker := p.clock.Ticker(p.interval)

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.refreshAll(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func (p *Prefetcher) refreshAll(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchConcurrency)
	for _, category := range p.categories {
		g.Go(func() error {
			if err := p.service.Refresh(ctx, category); err != nil {
				p.logger.Warn("Failed to refresh category", zap.String("category", category), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Refresh fetches category from the provider and overwrites the cached list.
// On failure the cached list, if any, is left untouched.
func (s *Service) Refresh(ctx context.Context, category string) error {
	if category == "" {
		category = defaultCategory
	}

	items, err := s.provider.LatestNews(ctx, category, s.limit)
	if err != nil {
		return fmt.Errorf("failed to refresh %s: %w", s.latest.Key(category), err)
	}

	s.latest.Set(category, items, s.listTTL)
	if s.remote != nil {
		if err := s.remote.Set(ctx, s.latest.Key(category), items, s.listTTL); err != nil {
			s.logger.Warn("Failed to set remote cache", zap.String("key", s.latest.Key(category)), zap.Error(err))
		}
	}
	return nil
}
