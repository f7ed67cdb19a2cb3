package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cryptosage/pricefeed/internal/fetch"
)

// Client provides access to the CoinGecko REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	fetcher    *fetch.Fetcher

	maxAttempts    int
	retryDelay     time.Duration
	attemptTimeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client. apiKey may be empty; the public
// /simple/price endpoint does not require one.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:        baseURL,
		apiKey:         apiKey,
		httpClient:     &http.Client{},
		logger:         slog.Default(),
		maxAttempts:    3,
		retryDelay:     500 * time.Millisecond,
		attemptTimeout: 15 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
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

// WithRetries sets the attempt budget and the fixed delay between attempts.
func WithRetries(maxAttempts int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.retryDelay = delay
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
