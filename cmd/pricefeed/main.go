// pricefeed aggregates live crypto prices from the REST poller and the
// WebSocket feed, and serves them over HTTP.
// Usage: go run ./cmd/pricefeed --config config.example.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/cryptosage/pricefeed/internal/api"
	"github.com/cryptosage/pricefeed/internal/cache"
	"github.com/cryptosage/pricefeed/internal/config"
	"github.com/cryptosage/pricefeed/internal/connection"
	"github.com/cryptosage/pricefeed/internal/database"
	"github.com/cryptosage/pricefeed/internal/hub"
	"github.com/cryptosage/pricefeed/internal/model"
	"github.com/cryptosage/pricefeed/internal/news"
	"github.com/cryptosage/pricefeed/internal/poller"
	"github.com/cryptosage/pricefeed/internal/server"
	"github.com/cryptosage/pricefeed/internal/service"
	"github.com/cryptosage/pricefeed/internal/symbol"
	"github.com/cryptosage/pricefeed/internal/version"
	"github.com/cryptosage/pricefeed/internal/writer"
)

// SourceREST tags hub emissions from the batch poller.
const SourceREST = "rest"

func main() {
	configPath := flag.String("config", "", "path to config file (defaults only when empty)")
	envFile := flag.String("env", ".env", "optional dotenv file loaded before the config")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load env file", "path", *envFile, "error", err)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Logging, os.Stdout)
	if err != nil {
		slog.Error("failed to configure logging", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	logger.Info("starting pricefeed",
		"version", version.Version,
		"commit", version.Commit,
		"instance_id", cfg.Instance.ID,
		"config", *configPath,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("pricefeed failed", "error", err)
		os.Exit(1)
	}

	logger.Info("pricefeed stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.LoadAndValidate(path)
}

func newLogger(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	h := hub.New(logger)
	defer h.Close()

	checks := map[string]server.Check{}

	apiClient := api.NewClient(
		cfg.CoinGecko.RestURL,
		cfg.CoinGecko.APIKey,
		api.WithLogger(logger),
		api.WithTimeout(cfg.CoinGecko.Timeout),
		api.WithRetries(cfg.CoinGecko.MaxAttempts, cfg.CoinGecko.RetryDelay),
	)

	// REST poller feeds the hub.
	pollCfg := poller.Config{TickTimeout: cfg.Poller.TickTimeout}
	publishTick := poller.PricesHandlerFunc(func(_ poller.Session, prices model.Prices) {
		h.Publish(SourceREST, prices)
	})
	pricePoller := poller.New(pollCfg, apiClient, symbol.NewCoinGecko(), publishTick, logger)

	symbols := model.NormalizeSymbols(cfg.Poller.Symbols)
	if _, err := pricePoller.Start(ctx, symbols, cfg.Poller.Interval); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		pricePoller.Shutdown(shutdownCtx)
	}()

	// Redis mirror.
	var latest server.LatestCache
	if cfg.Cache.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }

		mirror := cache.New(rdb, cfg.Cache.KeyPrefix, cfg.Cache.TTL, logger)
		if err := mirror.Start(ctx, h); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			mirror.Stop(shutdownCtx)
		}()
		latest = mirror
		logger.Info("redis cache connected", "addr", cfg.Cache.Addr)
	}

	// TimescaleDB tick recorder.
	if cfg.Database.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Timescale.Host,
			"port", cfg.Database.Timescale.Port,
			"database", cfg.Database.Timescale.Name,
		)
		pool, err := database.Connect(ctx, cfg.Database.Timescale)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := database.EnsureSchema(ctx, pool, logger); err != nil {
			return err
		}
		checks["timescaledb"] = pool.Ping

		w := writer.NewPriceWriter(writer.WriterConfig{
			BatchSize:     cfg.Writer.BatchSize,
			FlushInterval: cfg.Writer.FlushInterval,
		}, h, pool, logger)
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()
			w.Stop(shutdownCtx)
		}()
		logger.Info("database connected")
	}

	var newsClient server.NewsReader
	if cfg.News.Enabled {
		newsClient = news.NewClient(
			cfg.News.URL,
			cfg.News.APIKey,
			news.WithLogger(logger),
			news.WithQuery(cfg.News.Query),
			news.WithTimeout(cfg.News.Timeout),
			news.WithRetries(cfg.News.MaxAttempts, cfg.News.RetryDelay),
			news.WithPageSizes(cfg.News.PreviewSize, cfg.News.LatestSize),
		)
	}

	svc, err := service.ServiceFor(cfg.Service.Backend, service.Deps{
		Hub:    h,
		Prices: apiClient,
		Poller: pollCfg,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Port:             cfg.Server.Port,
		Mode:             cfg.Server.Mode,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		DefaultNewsLimit: cfg.News.PreviewSize,
		MaxNewsLimit:     100,
		DefaultInterval:  cfg.Poller.Interval,
	}, server.Deps{
		Prices:  h,
		Cache:   latest,
		News:    newsClient,
		Service: svc,
		Checks:  checks,
		Version: version.String(),
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	if cfg.Stream.Enabled {
		client := connection.NewClient(connection.ClientConfig{
			URL:               cfg.Stream.WSURL,
			APIKey:            cfg.Stream.APIKey,
			PingTimeout:       cfg.Stream.PingTimeout,
			WriteTimeout:      cfg.Stream.WriteTimeout,
			HeartbeatInterval: cfg.Stream.HeartbeatInterval,
			BufferSize:        cfg.Stream.BufferSize,
		}, logger)
		feed := connection.NewFeed(client, h, logger)

		// A failed feed leaves the poller running.
		g.Go(func() error {
			if err := feed.Run(gctx); err != nil {
				logger.Error("price feed ended", "error", err, "stats", feed.Stats())
			}
			return nil
		})
	}

	logger.Info("pricefeed running",
		"symbols", len(symbols),
		"interval", cfg.Poller.Interval,
		"backend", cfg.Service.Backend,
		"stream", cfg.Stream.Enabled,
		"cache", cfg.Cache.Enabled,
		"database", cfg.Database.Enabled,
		"news", cfg.News.Enabled,
		"port", cfg.Server.Port,
	)

	return g.Wait()
}
