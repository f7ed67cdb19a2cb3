package hub

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/cryptosage/pricefeed/internal/model"
)

// subscriberQueueSize is the initial per-subscriber queue capacity.
const subscriberQueueSize = 16

// Stats contains runtime statistics.
type Stats struct {
	Published   int64 // Non-empty partial mappings merged
	Deliveries  int64 // Snapshots enqueued across all subscribers
	Subscribers int
	Symbols     int // Symbols with a known price
}

// Hub merges partial price mappings and broadcasts the latest-known mapping.
type Hub struct {
	logger *slog.Logger

	// mu serializes merge and fan-out; it is the single writer of latest.
	mu     sync.Mutex
	latest model.Prices
	subs   map[uuid.UUID]*Subscription
	closed bool

	published  int64
	deliveries int64
}

// New creates an empty Hub.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger,
		latest: make(model.Prices),
		subs:   make(map[uuid.UUID]*Subscription),
	}
}

// Publish merges partial into the latest-known mapping and delivers the
// merged snapshot to every current subscriber. Keys are normalized.
// Empty mappings are ignored. Returns false if nothing was published.
func (h *Hub) Publish(source string, partial model.Prices) bool {
	if len(partial) == 0 {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}

	for sym, price := range partial {
		h.latest[model.NormalizeSymbol(string(sym))] = price
	}
	h.published++

	for _, sub := range h.subs {
		if sub.queue.Push(h.latest.Clone()) {
			h.deliveries++
		}
	}

	h.logger.Debug("prices published",
		"source", source,
		"symbols", len(partial),
		"subscribers", len(h.subs),
	)

	return true
}

// Subscribe registers a new subscriber. It receives only snapshots published
// after this call. A closed Hub returns an already-closed Subscription.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		ID:    uuid.New(),
		hub:   h,
		queue: newQueue[model.Prices](subscriberQueueSize),
		out:   make(chan model.Prices),
		done:  make(chan struct{}),
	}

	h.mu.Lock()
	closed := h.closed
	if !closed {
		h.subs[sub.ID] = sub
	}
	h.mu.Unlock()

	go sub.pump()

	if closed {
		sub.Close()
	}

	return sub
}

// Snapshot returns a copy of the latest-known mapping.
func (h *Hub) Snapshot() model.Prices {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest.Clone()
}

// Price returns the latest known price of sym.
func (h *Hub) Price(sym model.Symbol) (float64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest.Get(model.NormalizeSymbol(string(sym)))
}

// Stats returns current statistics.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		Published:   h.published,
		Deliveries:  h.deliveries,
		Subscribers: len(h.subs),
		Symbols:     len(h.latest),
	}
}

// Close closes every subscription and rejects further publishes.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

func (h *Hub) remove(id uuid.UUID) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

// Subscription is one consumer of the hub's snapshot stream.
type Subscription struct {
	ID uuid.UUID

	hub   *Hub
	queue *queue[model.Prices]
	out   chan model.Prices

	done      chan struct{}
	closeOnce sync.Once
}

// C returns the snapshot channel. It is closed after Close.
func (s *Subscription) C() <-chan model.Prices {
	return s.out
}

// Close unsubscribes. Idempotent.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.hub.remove(s.ID)
		s.queue.Close()
		close(s.done)
	})
}

// pump moves queued snapshots to the output channel in order.
func (s *Subscription) pump() {
	defer close(s.out)

	for {
		snap, ok := s.queue.Pop()
		if !ok {
			return
		}

		select {
		case s.out <- snap:
		case <-s.done:
			return
		}
	}
}
