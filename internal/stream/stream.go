// Package stream derives a deduplicated scalar price stream for one symbol
// from the hub's mapping stream.
package stream

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cryptosage/pricefeed/internal/hub"
	"github.com/cryptosage/pricefeed/internal/model"
)

// Errors
var (
	ErrEmptySymbol = errors.New("empty symbol")
	ErrClosed      = errors.New("stream closed")
)

// Source provides mapping subscriptions. *hub.Hub implements it.
type Source interface {
	Subscribe() *hub.Subscription
}

// Subscription describes the active connection of a Stream.
type Subscription struct {
	ID          uuid.UUID
	Symbol      model.Symbol
	ConnectedAt time.Time
}

// connection is the runtime state behind a Subscription.
type connection struct {
	Subscription
	sub  *hub.Subscription
	stop chan struct{}
	done chan struct{} // closed when forward returns
}

// Stream republishes one symbol's price, emitting only on change.
//
// At most one connection is active; Connect replaces it. The output channel
// is unbuffered and shared by all connections, so consumers must keep
// reading Prices while connected.
type Stream struct {
	source Source
	logger *slog.Logger
	out    chan float64

	// mu serializes Connect, Disconnect and Close.
	mu     sync.Mutex
	conn   *connection
	closed bool
}

// New creates a disconnected Stream over source.
func New(source Source, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		source: source,
		logger: logger,
		out:    make(chan float64),
	}
}

// Prices returns the scalar price channel. It is closed by Close.
func (s *Stream) Prices() <-chan float64 {
	return s.out
}

// Connect starts streaming sym, replacing any active connection. The
// previous connection is fully torn down before the new one emits.
func (s *Stream) Connect(sym string) (Subscription, error) {
	symbol := model.NormalizeSymbol(sym)
	if symbol == "" {
		return Subscription{}, ErrEmptySymbol
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Subscription{}, ErrClosed
	}

	s.teardown()

	c := &connection{
		Subscription: Subscription{
			ID:          uuid.New(),
			Symbol:      symbol,
			ConnectedAt: time.Now(),
		},
		sub:  s.source.Subscribe(),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	s.conn = c

	go s.forward(c)

	s.logger.Debug("stream connected", "symbol", symbol, "subscription", c.ID)
	return c.Subscription, nil
}

// Disconnect stops the active connection. No values are sent after it
// returns. Disconnecting an idle stream is a no-op.
func (s *Stream) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown()
}

// Connected returns the active connection, if any.
func (s *Stream) Connected() (Subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return Subscription{}, false
	}
	return s.conn.Subscription, true
}

// Close disconnects and closes the Prices channel. Idempotent.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.teardown()
	s.closed = true
	close(s.out)
}

// teardown stops the active connection and waits for it. Caller holds mu.
func (s *Stream) teardown() {
	c := s.conn
	if c == nil {
		return
	}
	s.conn = nil

	close(c.stop)
	c.sub.Close()
	<-c.done

	s.logger.Debug("stream disconnected", "symbol", c.Symbol, "subscription", c.ID)
}

// forward projects c.Symbol out of each snapshot and drops repeats.
func (s *Stream) forward(c *connection) {
	defer close(c.done)

	var last float64
	var seen bool

	for {
		select {
		case <-c.stop:
			return
		case snap, ok := <-c.sub.C():
			if !ok {
				return
			}

			price, ok := snap.Get(c.Symbol)
			if !ok {
				continue
			}
			if seen && price == last {
				continue
			}
			last, seen = price, true

			select {
			case s.out <- price:
			case <-c.stop:
				return
			}
		}
	}
}
