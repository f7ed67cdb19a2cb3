// Package news fetches crypto headlines from a NewsAPI-compatible endpoint.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cryptosage/pricefeed/internal/fetch"
	"github.com/cryptosage/pricefeed/internal/model"
	"github.com/cryptosage/pricefeed/internal/version"
)

// Defaults
const (
	DefaultBaseURL     = "https://newsapi.org/v2"
	DefaultQuery       = "crypto"
	DefaultPreviewSize = 5
	DefaultLatestSize  = 20
	DefaultMaxAttempts = 2
)

// response is the /everything payload.
type response struct {
	Status   string        `json:"status"`
	Articles []wireArticle `json:"articles"`
}

type wireArticle struct {
	Source struct {
		ID   *string `json:"id"`
		Name *string `json:"name"`
	} `json:"source"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	URL         string  `json:"url"`
	URLToImage  *string `json:"urlToImage"`
	PublishedAt string  `json:"publishedAt"`
}

// Client fetches news articles.
type Client struct {
	baseURL        string
	apiKey         string
	query          string
	previewSize    int
	latestSize     int
	httpClient     *http.Client
	logger         *slog.Logger
	fetcher        *fetch.Fetcher
	maxAttempts    int
	retryDelay     time.Duration
	attemptTimeout time.Duration
}

// ClientOption configures the client.
type ClientOption func(*Client)

// NewClient creates a news client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		query:          DefaultQuery,
		previewSize:    DefaultPreviewSize,
		latestSize:     DefaultLatestSize,
		httpClient:     &http.Client{},
		logger:         slog.Default(),
		maxAttempts:    DefaultMaxAttempts,
		retryDelay:     fetch.DefaultDelay,
		attemptTimeout: fetch.DefaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	c.fetcher = fetch.New(c.httpClient,
		fetch.WithMaxAttempts(c.maxAttempts),
		fetch.WithDelay(c.retryDelay),
		fetch.WithAttemptTimeout(c.attemptTimeout),
		fetch.WithLogger(c.logger),
	)
	return c
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.attemptTimeout = d
	}
}

// WithRetries sets the attempt budget and the delay between attempts.
func WithRetries(maxAttempts int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.retryDelay = delay
	}
}

// WithPageSizes sets the preview and latest page sizes.
func WithPageSizes(preview, latest int) ClientOption {
	return func(c *Client) {
		if preview > 0 {
			c.previewSize = preview
		}
		if latest > 0 {
			c.latestSize = latest
		}
	}
}

// WithQuery sets the search query.
func WithQuery(q string) ClientOption {
	return func(c *Client) {
		c.query = q
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// FetchPreview returns a short list for summary views.
func (c *Client) FetchPreview(ctx context.Context) ([]model.Article, error) {
	return c.Fetch(ctx, c.previewSize)
}

// FetchLatest returns the full latest list.
func (c *Client) FetchLatest(ctx context.Context) ([]model.Article, error) {
	return c.Fetch(ctx, c.latestSize)
}

// Fetch returns up to pageSize articles, newest first. Cancellation of ctx
// is returned as is and never retried.
func (c *Client) Fetch(ctx context.Context, pageSize int) ([]model.Article, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", pageSize)
	}

	query := url.Values{}
	query.Set("q", c.query)
	query.Set("pageSize", strconv.Itoa(pageSize))
	query.Set("sortBy", "publishedAt")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/everything?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	body, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode news: %w", err)
	}

	articles := make([]model.Article, 0, len(resp.Articles))
	for _, w := range resp.Articles {
		if w.Title == "" || w.URL == "" {
			c.logger.Debug("skipping article without title or url", "url", w.URL)
			continue
		}
		articles = append(articles, c.convert(w))
	}

	c.logger.Debug("news fetched", "requested", pageSize, "received", len(articles))
	return articles, nil
}

func (c *Client) convert(w wireArticle) model.Article {
	source := model.UnknownSource
	if w.Source.Name != nil && *w.Source.Name != "" {
		source = *w.Source.Name
	}

	return model.Article{
		ID:          uuid.New(),
		Title:       w.Title,
		Description: deref(w.Description),
		URL:         w.URL,
		ImageURL:    deref(w.URLToImage),
		SourceName:  source,
		PublishedAt: ParsePublishedAt(w.PublishedAt, c.logger),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// publishedLayouts are tried in order. RFC3339Nano also accepts values
// without fractional seconds.
var publishedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05.000-07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.000-0700",
}

// ParsePublishedAt parses an article timestamp. Unparseable values yield
// the current time and a warning.
func ParsePublishedAt(s string, logger *slog.Logger) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("unparseable publishedAt, using current time", "value", s)
	return time.Now()
}
