package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cryptosage/pricefeed/internal/model"
)

// SourceWebSocket tags hub emissions produced by a Feed.
const SourceWebSocket = "ws"

// Publisher accepts partial price mappings. *hub.Hub implements it.
type Publisher interface {
	Publish(source string, partial model.Prices) bool
}

// jsonPrice decodes a price sent either as a JSON number or a numeric string.
type jsonPrice float64

func (p *jsonPrice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*p = jsonPrice(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = jsonPrice(v)
	return nil
}

// ParseFrame decodes a frame holding one tick object or an array of them.
func ParseFrame(data []byte, receivedAt time.Time) ([]model.PriceUpdate, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrMalformedFrame)
	}

	var msgs []tickMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &msgs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
	} else {
		var msg tickMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		msgs = []tickMessage{msg}
	}

	updates := make([]model.PriceUpdate, 0, len(msgs))
	for i, msg := range msgs {
		update, err := msg.toUpdate(receivedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: tick %d: %v", ErrMalformedFrame, i, err)
		}
		updates = append(updates, update)
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: no ticks", ErrMalformedFrame)
	}
	return updates, nil
}

func (m tickMessage) toUpdate(receivedAt time.Time) (model.PriceUpdate, error) {
	name := m.Symbol
	if name == "" {
		name = m.S
	}
	sym := model.NormalizeSymbol(name)
	if sym == "" {
		return model.PriceUpdate{}, fmt.Errorf("missing symbol")
	}

	price := m.Price
	if price == nil {
		price = m.P
	}
	if price == nil {
		return model.PriceUpdate{}, fmt.Errorf("missing price for %s", sym)
	}
	v := float64(*price)
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return model.PriceUpdate{}, fmt.Errorf("invalid price %v for %s", v, sym)
	}

	return model.PriceUpdate{
		Symbol:     sym,
		Price:      v,
		Source:     SourceWebSocket,
		ReceivedAt: receivedAt,
	}, nil
}

// Feed reads ticks from a Client and publishes them into a Publisher.
type Feed struct {
	client    Client
	publisher Publisher
	logger    *slog.Logger

	frames    atomic.Int64
	published atomic.Int64
	malformed atomic.Int64
}

// NewFeed creates a feed over an unconnected or connected client.
func NewFeed(client Client, publisher Publisher, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		client:    client,
		publisher: publisher,
		logger:    logger,
	}
}

// Run connects if needed and publishes ticks until ctx is done or the
// socket fails. It closes the client on return. A nil error means ctx ended.
func (f *Feed) Run(ctx context.Context) error {
	if !f.client.IsConnected() {
		if err := f.client.Connect(ctx); err != nil {
			return fmt.Errorf("connect feed: %w", err)
		}
	}
	defer f.client.Close()

	f.logger.Info("price feed started")

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("price feed stopped", "frames", f.frames.Load())
			return nil

		case err := <-f.client.Errors():
			// Frames read before the failure are already buffered.
			f.drain()
			f.logger.Warn("price feed socket failed", "error", err, "frames", f.frames.Load())
			return fmt.Errorf("feed socket: %w", err)

		case frame := <-f.client.Frames():
			f.handle(frame)
		}
	}
}

// Stats returns current counters.
func (f *Feed) Stats() FeedStats {
	return FeedStats{
		Frames:    f.frames.Load(),
		Published: f.published.Load(),
		Malformed: f.malformed.Load(),
	}
}

func (f *Feed) drain() {
	for {
		select {
		case frame := <-f.client.Frames():
			f.handle(frame)
		default:
			return
		}
	}
}

func (f *Feed) handle(frame Frame) {
	f.frames.Add(1)

	updates, err := ParseFrame(frame.Data, frame.ReceivedAt)
	if err != nil {
		f.malformed.Add(1)
		f.logger.Debug("dropping malformed frame", "error", err, "bytes", len(frame.Data))
		return
	}

	partial := make(model.Prices, len(updates))
	for _, u := range updates {
		partial[u.Symbol] = u.Price
	}

	if f.publisher.Publish(SourceWebSocket, partial) {
		f.published.Add(1)
	}
}
