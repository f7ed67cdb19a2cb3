package config

import "time"

// Config is the root configuration for a pricefeed instance.
type Config struct {
	Instance  InstanceConfig  `yaml:"instance"`
	CoinGecko CoinGeckoConfig `yaml:"coingecko"`
	Stream    StreamConfig    `yaml:"stream"`
	Poller    PollerConfig    `yaml:"poller"`
	Service   ServiceConfig   `yaml:"service"`
	News      NewsConfig      `yaml:"news"`
	Cache     CacheConfig     `yaml:"cache"`
	Database  DatabaseConfig  `yaml:"database"`
	Writer    WriterConfig    `yaml:"writer"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// InstanceConfig identifies this instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// CoinGeckoConfig holds REST batch price endpoint settings.
type CoinGeckoConfig struct {
	RestURL     string        `yaml:"rest_url"`
	APIKey      string        `yaml:"api_key"` // Demo API key, optional
	Timeout     time.Duration `yaml:"timeout"` // Per attempt
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// StreamConfig holds WebSocket push feed settings.
type StreamConfig struct {
	Enabled           bool          `yaml:"enabled"`
	WSURL             string        `yaml:"ws_url"`
	APIKey            string        `yaml:"api_key"`
	PingTimeout       time.Duration `yaml:"ping_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	BufferSize        int           `yaml:"buffer_size"`
}

// PollerConfig holds batch poller settings.
type PollerConfig struct {
	Symbols     []string      `yaml:"symbols"`
	Interval    time.Duration `yaml:"interval"`
	TickTimeout time.Duration `yaml:"tick_timeout"`
}

// ServiceConfig selects the backend behind the streaming HTTP endpoint.
type ServiceConfig struct {
	Backend string `yaml:"backend"` // "stream" or "poll"
}

// NewsConfig holds news endpoint settings.
type NewsConfig struct {
	Enabled     bool          `yaml:"enabled"`
	URL         string        `yaml:"url"`
	APIKey      string        `yaml:"api_key"`
	Query       string        `yaml:"query"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	PreviewSize int           `yaml:"preview_size"`
	LatestSize  int           `yaml:"latest_size"`
}

// CacheConfig holds the Redis latest-price mirror settings.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"key_prefix"`
}

// DatabaseConfig holds the TimescaleDB connection for recorded ticks.
type DatabaseConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Timescale DBConfig `yaml:"timescale"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// WriterConfig holds tick writer settings.
type WriterConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Mode           string   `yaml:"mode"` // gin mode: debug, release or test
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
