package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.CoinGecko.RestURL == "" {
		return errors.New("coingecko.rest_url is required")
	}
	if c.CoinGecko.MaxAttempts < 1 {
		return errors.New("coingecko.max_attempts must be >= 1")
	}
	if c.CoinGecko.Timeout <= 0 {
		return errors.New("coingecko.timeout must be positive")
	}
	if c.CoinGecko.RetryDelay < 0 {
		return errors.New("coingecko.retry_delay must be >= 0")
	}

	if c.Stream.Enabled {
		if c.Stream.WSURL == "" {
			return errors.New("stream.ws_url is required when stream is enabled")
		}
		if c.Stream.BufferSize < 1 {
			return errors.New("stream.buffer_size must be >= 1")
		}
	}

	if len(c.Poller.Symbols) == 0 {
		return errors.New("poller.symbols must not be empty")
	}
	for i, s := range c.Poller.Symbols {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("poller.symbols[%d] is blank", i)
		}
	}
	if c.Poller.Interval <= 0 {
		return errors.New("poller.interval must be positive")
	}

	switch c.Service.Backend {
	case "stream", "poll":
	default:
		return fmt.Errorf("service.backend must be \"stream\" or \"poll\", got %q", c.Service.Backend)
	}

	if c.News.Enabled {
		if c.News.APIKey == "" {
			return errors.New("news.api_key is required when news is enabled")
		}
		if c.News.MaxAttempts < 1 {
			return errors.New("news.max_attempts must be >= 1")
		}
		if c.News.PreviewSize < 1 || c.News.LatestSize < 1 {
			return errors.New("news.preview_size and news.latest_size must be >= 1")
		}
	}

	if c.Cache.Enabled {
		if c.Cache.Addr == "" {
			return errors.New("cache.addr is required when cache is enabled")
		}
		if c.Cache.TTL < 0 {
			return errors.New("cache.ttl must be >= 0")
		}
	}

	if c.Database.Enabled {
		if err := c.Database.Timescale.validate("database.timescale"); err != nil {
			return err
		}
		if c.Writer.BatchSize < 1 {
			return errors.New("writer.batch_size must be >= 1")
		}
		if c.Writer.FlushInterval <= 0 {
			return errors.New("writer.flush_interval must be positive")
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

// ParseLevel maps a logging.level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", s)
	}
}
