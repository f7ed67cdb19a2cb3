// Package service exposes price streams for a symbol list behind one
// interface, backed either by the push feed or by batched REST polling.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cryptosage/pricefeed/internal/model"
	"github.com/cryptosage/pricefeed/internal/poller"
	"github.com/cryptosage/pricefeed/internal/stream"
	"github.com/cryptosage/pricefeed/internal/symbol"
)

// Backend names accepted by ServiceFor.
const (
	KindStream = "stream"
	KindPoll   = "poll"
)

// ErrUnknownBackend is returned by ServiceFor for an unsupported kind.
var ErrUnknownBackend = errors.New("unknown price service backend")

// PriceService publishes price mappings for a set of symbols.
//
// The returned channel is closed once ctx is done. Failures never reach the
// channel; they are logged and the stream continues.
type PriceService interface {
	PricePublisher(ctx context.Context, symbols []model.Symbol, interval time.Duration) <-chan model.Prices
}

// Deps holds what the backends are built from.
type Deps struct {
	Hub    stream.Source
	Prices poller.PriceSource
	Poller poller.Config
	Logger *slog.Logger
}

// ServiceFor returns the backend named by kind.
func ServiceFor(kind string, deps Deps) (PriceService, error) {
	switch kind {
	case KindStream:
		if deps.Hub == nil {
			return nil, fmt.Errorf("%s backend: hub is required", kind)
		}
		return NewStreamingService(deps.Hub, deps.Logger), nil
	case KindPoll:
		if deps.Prices == nil {
			return nil, fmt.Errorf("%s backend: price source is required", kind)
		}
		return NewPollingService(deps.Poller, deps.Prices, deps.Logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
}

func normalize(symbols []model.Symbol) []model.Symbol {
	raw := make([]string, len(symbols))
	for i, s := range symbols {
		raw[i] = string(s)
	}
	return model.NormalizeSymbols(raw)
}

// StreamingService derives mappings from the hub: one deduplicated stream
// per symbol, merged into a cumulative mapping emitted on every change.
type StreamingService struct {
	source stream.Source
	logger *slog.Logger
}

// NewStreamingService creates a push-backed service.
func NewStreamingService(source stream.Source, logger *slog.Logger) *StreamingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamingService{source: source, logger: logger}
}

// PricePublisher implements PriceService. interval is unused; emissions
// follow the feed.
func (s *StreamingService) PricePublisher(ctx context.Context, symbols []model.Symbol, interval time.Duration) <-chan model.Prices {
	out := make(chan model.Prices)
	syms := normalize(symbols)

	g, gctx := errgroup.WithContext(ctx)
	updates := make(chan model.PriceUpdate)

	for _, sym := range syms {
		sym := sym
		st := stream.New(s.source, s.logger)
		if _, err := st.Connect(string(sym)); err != nil {
			s.logger.Warn("skipping symbol", "symbol", sym, "err", err)
			continue
		}

		g.Go(func() error {
			defer st.Close()
			for {
				select {
				case <-gctx.Done():
					return nil
				case price, ok := <-st.Prices():
					if !ok {
						return nil
					}
					update := model.PriceUpdate{
						Symbol:     sym,
						Price:      price,
						Source:     KindStream,
						ReceivedAt: time.Now(),
					}
					select {
					case updates <- update:
					case <-gctx.Done():
						return nil
					}
				}
			}
		})
	}

	go func() {
		g.Wait()
		close(updates)
	}()

	go func() {
		defer close(out)

		merged := make(model.Prices, len(syms))
		for u := range updates {
			merged.Merge(u.Prices())
			if ctx.Err() != nil {
				continue
			}
			select {
			case out <- merged.Clone():
			case <-ctx.Done():
			}
		}
		s.logger.Debug("streaming publisher closed", "symbols", len(syms))
	}()

	s.logger.Debug("streaming publisher started", "symbols", len(syms))
	return out
}

// PollingService polls the REST batch endpoint with a dedicated poller per
// publisher. Symbols are passed through as provider ids.
type PollingService struct {
	cfg    poller.Config
	source poller.PriceSource
	logger *slog.Logger
}

// NewPollingService creates a REST-backed service.
func NewPollingService(cfg poller.Config, source poller.PriceSource, logger *slog.Logger) *PollingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PollingService{cfg: cfg, source: source, logger: logger}
}

// PricePublisher implements PriceService. Each successful tick is emitted
// as is, so a mapping may hold a subset of symbols.
func (s *PollingService) PricePublisher(ctx context.Context, symbols []model.Symbol, interval time.Duration) <-chan model.Prices {
	out := make(chan model.Prices)

	handler := poller.PricesHandlerFunc(func(_ poller.Session, prices model.Prices) {
		select {
		case out <- prices:
		case <-ctx.Done():
		}
	})
	p := poller.New(s.cfg, s.source, symbol.Identity(), handler, s.logger)

	if _, err := p.Start(ctx, symbols, interval); err != nil {
		s.logger.Warn("polling publisher not started", "err", err)
		close(out)
		return out
	}

	go func() {
		<-ctx.Done()
		p.Shutdown(context.Background())
		close(out)
	}()

	return out
}
