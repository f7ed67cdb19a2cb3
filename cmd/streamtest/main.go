// streamtest polls CoinGecko for a single symbol and prints each price change.
// Usage: go run ./cmd/streamtest --symbol btc --interval 5s
//
// With --backend poll it also exercises the polling PriceService and prints
// merged snapshots for every --symbol instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cryptosage/pricefeed/internal/api"
	"github.com/cryptosage/pricefeed/internal/config"
	"github.com/cryptosage/pricefeed/internal/hub"
	"github.com/cryptosage/pricefeed/internal/model"
	"github.com/cryptosage/pricefeed/internal/poller"
	"github.com/cryptosage/pricefeed/internal/service"
	"github.com/cryptosage/pricefeed/internal/stream"
	"github.com/cryptosage/pricefeed/internal/symbol"
)

func main() {
	sym := flag.String("symbol", "btc", "symbol to follow (comma separated with --backend poll)")
	interval := flag.Duration("interval", config.DefaultPollInterval, "poll interval")
	backend := flag.String("backend", "", "print PriceService snapshots instead: stream or poll")
	restURL := flag.String("url", config.DefaultRestURL, "CoinGecko REST base URL")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	apiClient := api.NewClient(*restURL, os.Getenv("COINGECKO_API_KEY"), api.WithLogger(logger))
	symbols := model.NormalizeSymbols(strings.Split(*sym, ","))

	h := hub.New(logger)
	defer h.Close()

	p := poller.New(poller.DefaultConfig(), apiClient, symbol.NewCoinGecko(),
		poller.PricesHandlerFunc(func(_ poller.Session, prices model.Prices) {
			h.Publish("rest", prices)
		}), logger)
	if _, err := p.Start(ctx, symbols, *interval); err != nil {
		logger.Error("failed to start poller", "error", err)
		os.Exit(1)
	}
	defer p.Stop()

	if *backend != "" {
		if err := printSnapshots(ctx, *backend, h, apiClient, symbols, *interval, logger); err != nil {
			logger.Error("service failed", "error", err)
			os.Exit(1)
		}
		return
	}

	s := stream.New(h, logger)
	defer s.Close()

	sub, err := s.Connect(symbols[0].String())
	if err != nil {
		logger.Error("failed to connect stream", "symbol", *sym, "error", err)
		os.Exit(1)
	}
	logger.Info("streaming", "symbol", sub.Symbol, "subscription", sub.ID, "interval", *interval)

	changes := 0
	for {
		select {
		case <-ctx.Done():
			logger.Info("stopped", "changes", changes, "poller", p.Stats())
			return
		case price := <-s.Prices():
			changes++
			fmt.Printf("%s  %-6s %14.6f\n", time.Now().Format("15:04:05.000"), strings.ToUpper(sub.Symbol.String()), price)
		}
	}
}

func printSnapshots(ctx context.Context, backend string, h *hub.Hub, src poller.PriceSource,
	symbols []model.Symbol, interval time.Duration, logger *slog.Logger) error {
	svc, err := service.ServiceFor(backend, service.Deps{
		Hub:    h,
		Prices: src,
		Poller: poller.DefaultConfig(),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	for snap := range svc.PricePublisher(ctx, symbols, interval) {
		parts := make([]string, 0, len(snap))
		for _, sym := range symbols {
			if price, ok := snap[sym]; ok {
				parts = append(parts, fmt.Sprintf("%s=%.6f", sym, price))
			}
		}
		fmt.Printf("%s  %s\n", time.Now().Format("15:04:05.000"), strings.Join(parts, " "))
	}
	return nil
}
