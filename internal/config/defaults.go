package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultInstanceID        = "pricefeed"
	DefaultRestURL           = "https://api.coingecko.com/api/v3"
	DefaultAPITimeout        = 15 * time.Second
	DefaultMaxAttempts       = 3
	DefaultRetryDelay        = 500 * time.Millisecond
	DefaultPingTimeout       = 60 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultStreamBufferSize  = 1024
	DefaultPollInterval      = 5 * time.Second
	DefaultTickTimeout       = 30 * time.Second
	DefaultBackend           = "stream"
	DefaultNewsURL           = "https://newsapi.org/v2"
	DefaultNewsQuery         = "crypto"
	DefaultNewsMaxAttempts   = 2
	DefaultNewsPreviewSize   = 5
	DefaultNewsLatestSize    = 20
	DefaultRedisAddr         = "localhost:6379"
	DefaultCacheTTL          = 5 * time.Minute
	DefaultCacheKeyPrefix    = "price:latest:"
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultBatchSize         = 500
	DefaultFlushInterval     = 1 * time.Second
	DefaultServerPort        = 8080
	DefaultServerMode        = "release"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// DefaultSymbols are polled when the config lists none.
var DefaultSymbols = []string{"btc", "eth", "sol"}

func (c *Config) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}

	// CoinGecko defaults
	if c.CoinGecko.RestURL == "" {
		c.CoinGecko.RestURL = DefaultRestURL
	}
	if c.CoinGecko.Timeout == 0 {
		c.CoinGecko.Timeout = DefaultAPITimeout
	}
	if c.CoinGecko.MaxAttempts == 0 {
		c.CoinGecko.MaxAttempts = DefaultMaxAttempts
	}
	if c.CoinGecko.RetryDelay == 0 {
		c.CoinGecko.RetryDelay = DefaultRetryDelay
	}

	// Stream defaults
	if c.Stream.PingTimeout == 0 {
		c.Stream.PingTimeout = DefaultPingTimeout
	}
	if c.Stream.WriteTimeout == 0 {
		c.Stream.WriteTimeout = DefaultWriteTimeout
	}
	if c.Stream.HeartbeatInterval == 0 {
		c.Stream.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Stream.BufferSize == 0 {
		c.Stream.BufferSize = DefaultStreamBufferSize
	}

	// Poller defaults
	if len(c.Poller.Symbols) == 0 {
		c.Poller.Symbols = append([]string(nil), DefaultSymbols...)
	}
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.TickTimeout == 0 {
		c.Poller.TickTimeout = DefaultTickTimeout
	}

	if c.Service.Backend == "" {
		c.Service.Backend = DefaultBackend
	}

	// News defaults
	if c.News.URL == "" {
		c.News.URL = DefaultNewsURL
	}
	if c.News.Query == "" {
		c.News.Query = DefaultNewsQuery
	}
	if c.News.Timeout == 0 {
		c.News.Timeout = DefaultAPITimeout
	}
	if c.News.MaxAttempts == 0 {
		c.News.MaxAttempts = DefaultNewsMaxAttempts
	}
	if c.News.RetryDelay == 0 {
		c.News.RetryDelay = DefaultRetryDelay
	}
	if c.News.PreviewSize == 0 {
		c.News.PreviewSize = DefaultNewsPreviewSize
	}
	if c.News.LatestSize == 0 {
		c.News.LatestSize = DefaultNewsLatestSize
	}

	// Cache defaults
	if c.Cache.Addr == "" {
		c.Cache.Addr = DefaultRedisAddr
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = DefaultCacheKeyPrefix
	}

	applyDBDefaults(&c.Database.Timescale)

	// Writer defaults
	if c.Writer.BatchSize == 0 {
		c.Writer.BatchSize = DefaultBatchSize
	}
	if c.Writer.FlushInterval == 0 {
		c.Writer.FlushInterval = DefaultFlushInterval
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.Mode == "" {
		c.Server.Mode = DefaultServerMode
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
