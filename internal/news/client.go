package news

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"goflare.io/cinder/internal/config"
	"goflare.io/cinder/internal/models"
	"goflare.io/cinder/internal/retrier"
	"goflare.io/cinder/pkg/serialization"
)

const defaultCategory = "general"

var (
	// ErrInvalidResponse is returned when the provider answers without a news array.
	ErrInvalidResponse = errors.New("invalid response format from news provider")
)

// Provider fetches articles from the external news API.
type Provider interface {
	LatestNews(ctx context.Context, category string, limit int) ([]models.NewsItem, error)
	Search(ctx context.Context, keywords string, limit int) ([]models.NewsItem, error)
}

// StatusError is a non-2xx answer from the provider.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("news provider returned status %d for %s", e.StatusCode, e.URL)
}

// Temporary reports whether the request may succeed if retried.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type externalResponse struct {
	Status string            `json:"status"`
	News   []externalArticle `json:"news"`
}

type externalArticle struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Author      string   `json:"author"`
	Image       string   `json:"image"`
	Language    string   `json:"language"`
	Category    []string `json:"category"`
	Published   string   `json:"published"`
}

func (a externalArticle) toItem() models.NewsItem {
	category := defaultCategory
	if len(a.Category) > 0 && a.Category[0] != "" {
		category = a.Category[0]
	}
	return models.NewsItem{
		ID:          a.ID,
		Title:       a.Title,
		Content:     a.Description,
		Author:      a.Author,
		PublishedAt: a.Published,
		Category:    category,
	}
}

// Client talks to the news provider over HTTP. Calls go through a retrier
// and a circuit breaker so a failing provider is not hammered.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	language   string
	breaker    *gobreaker.CircuitBreaker
	retrier    *retrier.Retrier
	logger     *zap.Logger
}

// NewClient creates a Client from cfg.
func NewClient(cfg *config.Config) (*Client, error) {
	r, err := retrier.NewRetrier(
		cfg.Resilience.MaxAttempts,
		cfg.Resilience.InitialInterval,
		cfg.Resilience.MaxInterval,
		cfg.Resilience.Multiplier,
		cfg.Resilience.Jitter,
		retrier.ExponentialBackoff,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retrier: %w", err)
	}

	return &Client{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.News.RequestTimeout,
		},
		baseURL:  strings.TrimRight(cfg.News.BaseURL, "/"),
		apiKey:   cfg.News.APIKey,
		language: cfg.News.Language,
		breaker:  gobreaker.NewCircuitBreaker(cfg.Resilience.CircuitBreaker),
		retrier:  r,
		logger:   cfg.Logger,
	}, nil
}

// LatestNews returns the latest articles of category, "general" when empty.
func (c *Client) LatestNews(ctx context.Context, category string, limit int) ([]models.NewsItem, error) {
	if category == "" {
		category = defaultCategory
	}
	params := url.Values{}
	params.Set("category", category)
	return c.fetch(ctx, "/latest-news", params, limit)
}

// Search returns articles matching keywords.
func (c *Client) Search(ctx context.Context, keywords string, limit int) ([]models.NewsItem, error) {
	params := url.Values{}
	params.Set("keywords", keywords)
	return c.fetch(ctx, "/search", params, limit)
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values, limit int) ([]models.NewsItem, error) {
	params.Set("apiKey", c.apiKey)
	params.Set("language", c.language)
	params.Set("limit", strconv.Itoa(limit))
	endpoint := c.baseURL + path + "?" + params.Encode()

	var payload externalResponse
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.retrier.Run(ctx, func() error {
			payload = externalResponse{}
			return c.do(ctx, endpoint, &payload)
		})
	})
	if err != nil {
		c.logger.Error("API request failed",
			zap.String("path", path),
			zap.Error(err))
		return nil, err
	}

	if payload.News == nil {
		c.logger.Warn("Invalid response format from external API", zap.String("path", path))
		return nil, ErrInvalidResponse
	}

	items := make([]models.NewsItem, len(payload.News))
	for i, article := range payload.News {
		items[i] = article.toItem()
	}
	return items, nil
}

func (c *Client) do(ctx context.Context, endpoint string, payload *externalResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "cinder/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error carries the full URL, api key included.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, URL: req.URL.Path}
	}

	if err := serialization.JsonDecoder(resp.Body).Decode(payload); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
