package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cryptosage/pricefeed/internal/cache"
	"github.com/cryptosage/pricefeed/internal/hub"
	"github.com/cryptosage/pricefeed/internal/model"
	"github.com/cryptosage/pricefeed/internal/service"
)

// PriceReader reads the aggregated prices. *hub.Hub implements it.
type PriceReader interface {
	Snapshot() model.Prices
	Price(sym model.Symbol) (float64, bool)
	Stats() hub.Stats
}

// LatestCache reads mirrored prices. *cache.RedisCache implements it.
type LatestCache interface {
	Latest(ctx context.Context, sym model.Symbol) (cache.Entry, error)
}

// NewsReader fetches articles. *news.Client implements it.
type NewsReader interface {
	Fetch(ctx context.Context, pageSize int) ([]model.Article, error)
}

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

// Config holds server settings.
type Config struct {
	Port             int
	Mode             string // gin mode
	AllowedOrigins   []string
	DefaultNewsLimit int
	MaxNewsLimit     int
	DefaultInterval  time.Duration // /stream interval when none is given
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:             8080,
		Mode:             gin.ReleaseMode,
		DefaultNewsLimit: 5,
		MaxNewsLimit:     100,
		DefaultInterval:  5 * time.Second,
	}
}

// Deps are the components the handlers read from. Prices is required;
// the rest are optional.
type Deps struct {
	Prices  PriceReader
	Cache   LatestCache
	News    NewsReader
	Service service.PriceService
	Checks  map[string]Check
	Version string
}

// Server is the HTTP API.
type Server struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
	engine *gin.Engine
	http   *http.Server
}

// New builds the router.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.DefaultNewsLimit <= 0 {
		cfg.DefaultNewsLimit = defaults.DefaultNewsLimit
	}
	if cfg.MaxNewsLimit <= 0 {
		cfg.MaxNewsLimit = defaults.MaxNewsLimit
	}
	if cfg.DefaultInterval <= 0 {
		cfg.DefaultInterval = defaults.DefaultInterval
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		engine: gin.New(),
	}

	s.engine.Use(gin.Recovery(), s.requestLogger())
	if len(cfg.AllowedOrigins) > 0 {
		s.engine.Use(cors.New(cors.Config{
			AllowOrigins: cfg.AllowedOrigins,
			AllowMethods: []string{"GET", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		}))
	}

	s.engine.GET("/health", s.getHealth)
	s.engine.GET("/prices", s.getPrices)
	s.engine.GET("/prices/:symbol", s.getPrice)
	s.engine.GET("/stream", s.getStream)
	s.engine.GET("/news", s.getNews)

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on cfg.Port until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "port", s.cfg.Port)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
