package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cryptosage/pricefeed/internal/fetch"
	"github.com/cryptosage/pricefeed/internal/model"
	"github.com/cryptosage/pricefeed/internal/symbol"
)

// Errors
var (
	ErrNoSymbols       = errors.New("no symbols to poll")
	ErrInvalidInterval = errors.New("poll interval must be positive")
)

// PriceSource fetches one batch of prices. *api.Client implements it.
type PriceSource interface {
	FetchPrices(ctx context.Context, symbols []model.Symbol, resolver symbol.Resolver) (model.Prices, error)
}

// PricesHandler receives the mapping of every successful tick.
// It must not call Start or Stop on the poller that invokes it.
type PricesHandler interface {
	HandlePrices(session Session, prices model.Prices)
}

// PricesHandlerFunc is a function adapter for PricesHandler.
type PricesHandlerFunc func(Session, model.Prices)

func (f PricesHandlerFunc) HandlePrices(s Session, p model.Prices) {
	f(s, p)
}

// Config holds poller configuration.
type Config struct {
	TickTimeout time.Duration // Upper bound for a whole tick incl. retries (0 = none)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TickTimeout: 30 * time.Second,
	}
}

// Session describes one polling configuration.
type Session struct {
	ID        uuid.UUID
	Symbols   []model.Symbol
	Interval  time.Duration
	StartedAt time.Time
}

// Stats contains runtime statistics.
type Stats struct {
	Ticks   int64 // Ticks started
	Emitted int64 // Ticks delivered to the handler
	Failed  int64 // Ticks that exhausted retries or failed to decode
	Dropped int64 // Successful ticks that finished after their session ended
}

// session is the runtime state behind a Session.
type session struct {
	Session
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{} // closed when the timer loop exits
}

// Poller periodically fetches a batch of prices and hands them to a handler.
type Poller struct {
	cfg      Config
	source   PriceSource
	resolver symbol.Resolver
	handler  PricesHandler
	logger   *slog.Logger

	mu      sync.Mutex
	current *session

	// emitMu makes the "is this session still current" check and the
	// handler call atomic with respect to session swaps.
	emitMu sync.Mutex

	inflight sync.WaitGroup

	ticks, emitted, failed, dropped atomic.Int64
}

// New creates a new Poller.
func New(cfg Config, source PriceSource, resolver symbol.Resolver, handler PricesHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver = symbol.Identity()
	}
	return &Poller{
		cfg:      cfg,
		source:   source,
		resolver: resolver,
		handler:  handler,
		logger:   logger,
	}
}

// Start begins a new polling session, stopping the running one first.
// The first tick is issued immediately. The session lives until Stop, the
// next Start, or cancellation of ctx.
func (p *Poller) Start(ctx context.Context, symbols []model.Symbol, interval time.Duration) (Session, error) {
	if interval <= 0 {
		return Session{}, ErrInvalidInterval
	}

	raw := make([]string, len(symbols))
	for i, s := range symbols {
		raw[i] = string(s)
	}
	normalized := model.NormalizeSymbols(raw)
	if len(normalized) == 0 {
		return Session{}, ErrNoSymbols
	}

	s := &session{
		Session: Session{
			ID:        uuid.New(),
			Symbols:   normalized,
			Interval:  interval,
			StartedAt: time.Now(),
		},
		done: make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	old := p.swap(s)
	if old != nil {
		<-old.done
		p.logger.Info("poll session superseded", "session", old.ID)
	}

	go p.run(s)

	p.logger.Info("poll session started",
		"session", s.ID,
		"symbols", len(s.Symbols),
		"interval", interval,
	)

	return s.Session, nil
}

// Stop ends the running session. Ticks already in flight are cancelled and
// their results discarded. Stopping an idle poller is a no-op.
func (p *Poller) Stop() {
	old := p.swap(nil)
	if old == nil {
		return
	}
	<-old.done
	p.logger.Info("poll session stopped", "session", old.ID)
}

// Shutdown stops polling and waits for in-flight ticks to return.
func (p *Poller) Shutdown(ctx context.Context) error {
	p.Stop()

	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active returns the running session, if any.
func (p *Poller) Active() (Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return Session{}, false
	}
	return p.current.Session, true
}

// Stats returns current statistics.
func (p *Poller) Stats() Stats {
	return Stats{
		Ticks:   p.ticks.Load(),
		Emitted: p.emitted.Load(),
		Failed:  p.failed.Load(),
		Dropped: p.dropped.Load(),
	}
}

// swap installs next as the current session and cancels the previous one.
func (p *Poller) swap(next *session) *session {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	old := p.current
	p.current = next
	p.mu.Unlock()

	if old != nil {
		old.cancel()
	}
	return old
}

// run is the timer loop of one session.
func (p *Poller) run(s *session) {
	defer close(s.done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.tick(s)

	for {
		select {
		case <-s.ctx.Done():
			// Parent cancellation ends the session without a Stop call.
			p.mu.Lock()
			if p.current == s {
				p.current = nil
			}
			p.mu.Unlock()
			return
		case <-ticker.C:
			p.tick(s)
		}
	}
}

// tick launches one fetch without blocking the timer loop.
func (p *Poller) tick(s *session) {
	p.ticks.Add(1)
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		p.pollOnce(s)
	}()
}

// pollOnce fetches one batch and emits it if the session is still current.
func (p *Poller) pollOnce(s *session) {
	start := time.Now()

	ctx := s.ctx
	if p.cfg.TickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.TickTimeout)
		defer cancel()
	}

	prices, err := p.source.FetchPrices(ctx, s.Symbols, p.resolver)
	if err != nil {
		if fetch.IsCanceled(err) || s.ctx.Err() != nil {
			p.logger.Debug("price tick cancelled", "session", s.ID)
			return
		}
		p.failed.Add(1)
		p.logger.Warn("price tick failed",
			"session", s.ID,
			"symbols", len(s.Symbols),
			"err", err,
			"duration", time.Since(start),
		)
		return
	}

	if !p.emit(s, prices) {
		p.dropped.Add(1)
		p.logger.Debug("dropping tick from ended session", "session", s.ID)
		return
	}

	p.logger.Debug("price tick complete",
		"session", s.ID,
		"requested", len(s.Symbols),
		"received", len(prices),
		"duration", time.Since(start),
	)
}

// emit delivers prices if s is still the current session.
func (p *Poller) emit(s *session, prices model.Prices) bool {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	current := p.current == s
	p.mu.Unlock()

	if !current || s.ctx.Err() != nil {
		return false
	}

	p.emitted.Add(1)
	if p.handler != nil {
		p.handler.HandlePrices(s.Session, prices)
	}
	return true
}
