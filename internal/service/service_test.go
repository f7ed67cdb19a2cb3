package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cryptosage/pricefeed/internal/hub"
	"github.com/cryptosage/pricefeed/internal/model"
	"github.com/cryptosage/pricefeed/internal/poller"
	"github.com/cryptosage/pricefeed/internal/symbol"
)

func receive(t *testing.T, ch <-chan model.Prices) model.Prices {
	t.Helper()
	select {
	case p, ok := <-ch:
		if !ok {
			t.Fatal("publisher closed")
		}
		return p
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for prices")
	}
	return nil
}

func expectClosed(t *testing.T, ch <-chan model.Prices) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("publisher not closed")
		}
	}
}

func waitSubscribers(t *testing.T, h *hub.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for h.Stats().Subscribers != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", h.Stats().Subscribers, n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func equal(a, b model.Prices) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

func TestStreamingService_MergesPerSymbolStreams(t *testing.T) {
	h := hub.New(nil)
	svc := NewStreamingService(h, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := svc.PricePublisher(ctx, []model.Symbol{"BTC", "eth", "btc"}, time.Second)
	waitSubscribers(t, h, 2)

	h.Publish("ws", model.Prices{"btc": 1})
	if got := receive(t, ch); !equal(got, model.Prices{"btc": 1}) {
		t.Errorf("first = %v, want {btc:1}", got)
	}

	h.Publish("ws", model.Prices{"eth": 2})
	if got := receive(t, ch); !equal(got, model.Prices{"btc": 1, "eth": 2}) {
		t.Errorf("second = %v, want {btc:1 eth:2}", got)
	}

	// Unchanged values and unrequested symbols produce nothing.
	h.Publish("ws", model.Prices{"btc": 1, "doge": 0.1})
	select {
	case got := <-ch:
		t.Errorf("unexpected emission %v", got)
	case <-time.After(50 * time.Millisecond):
	}

	h.Publish("ws", model.Prices{"btc": 3})
	if got := receive(t, ch); !equal(got, model.Prices{"btc": 3, "eth": 2}) {
		t.Errorf("third = %v, want {btc:3 eth:2}", got)
	}

	cancel()
	expectClosed(t, ch)
	waitSubscribers(t, h, 0)
}

func TestStreamingService_NoSymbols(t *testing.T) {
	svc := NewStreamingService(hub.New(nil), nil)
	expectClosed(t, svc.PricePublisher(context.Background(), nil, time.Second))
}

// fakeSource answers every fetch with a fixed price per provider id.
type fakeSource struct {
	mu    sync.Mutex
	ids   [][]string
	price float64
}

func (f *fakeSource) FetchPrices(ctx context.Context, symbols []model.Symbol, resolver symbol.Resolver) (model.Prices, error) {
	f.mu.Lock()
	f.ids = append(f.ids, symbol.ProviderIDs(resolver, symbols))
	f.mu.Unlock()

	out := make(model.Prices, len(symbols))
	for _, s := range symbols {
		out[s] = f.price
	}
	return out, nil
}

func TestPollingService_EmitsTicks(t *testing.T) {
	src := &fakeSource{price: 42}
	svc := NewPollingService(poller.DefaultConfig(), src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	ch := svc.PricePublisher(ctx, []model.Symbol{"bitcoin", "ethereum"}, 20*time.Millisecond)

	want := model.Prices{"bitcoin": 42, "ethereum": 42}
	for i := 0; i < 2; i++ {
		if got := receive(t, ch); !equal(got, want) {
			t.Errorf("tick %d = %v, want %v", i, got, want)
		}
	}

	cancel()
	expectClosed(t, ch)

	src.mu.Lock()
	defer src.mu.Unlock()
	if len(src.ids) == 0 || src.ids[0][0] != "bitcoin" || src.ids[0][1] != "ethereum" {
		t.Errorf("provider ids = %v, want symbols passed through", src.ids)
	}
}

func TestPollingService_InvalidRequestCloses(t *testing.T) {
	svc := NewPollingService(poller.DefaultConfig(), &fakeSource{}, nil)

	expectClosed(t, svc.PricePublisher(context.Background(), []model.Symbol{"btc"}, 0))
	expectClosed(t, svc.PricePublisher(context.Background(), nil, time.Second))
}

func TestServiceFor(t *testing.T) {
	deps := Deps{Hub: hub.New(nil), Prices: &fakeSource{}, Poller: poller.DefaultConfig()}

	s, err := ServiceFor(KindStream, deps)
	if err != nil {
		t.Fatalf("ServiceFor(stream) failed: %v", err)
	}
	if _, ok := s.(*StreamingService); !ok {
		t.Errorf("ServiceFor(stream) = %T", s)
	}

	s, err = ServiceFor(KindPoll, deps)
	if err != nil {
		t.Fatalf("ServiceFor(poll) failed: %v", err)
	}
	if _, ok := s.(*PollingService); !ok {
		t.Errorf("ServiceFor(poll) = %T", s)
	}

	if _, err := ServiceFor("carrier-pigeon", deps); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("ServiceFor(unknown) error = %v, want ErrUnknownBackend", err)
	}
	if _, err := ServiceFor(KindStream, Deps{}); err == nil {
		t.Error("ServiceFor(stream) without hub should fail")
	}
}
