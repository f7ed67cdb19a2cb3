package stream

import (
	"errors"
	"testing"
	"time"

	"github.com/cryptosage/pricefeed/internal/hub"
	"github.com/cryptosage/pricefeed/internal/model"
)

func next(t *testing.T, s *Stream) float64 {
	t.Helper()
	select {
	case v, ok := <-s.Prices():
		if !ok {
			t.Fatal("prices channel closed")
		}
		return v
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for price")
	}
	return 0
}

func expectSilence(t *testing.T, s *Stream) {
	t.Helper()
	select {
	case v, ok := <-s.Prices():
		if ok {
			t.Fatalf("unexpected price %v", v)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStream_DedupConsecutive(t *testing.T) {
	h := hub.New(nil)
	s := New(h, nil)
	defer s.Close()

	if _, err := s.Connect("btc"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	go func() {
		for _, v := range []float64{1, 1, 2, 2, 2, 1} {
			h.Publish("rest", model.Prices{"btc": v})
		}
	}()

	want := []float64{1, 2, 1}
	for i, w := range want {
		if got := next(t, s); got != w {
			t.Errorf("price %d = %v, want %v", i, got, w)
		}
	}
	expectSilence(t, s)
}

func TestStream_SkipsAbsentSymbol(t *testing.T) {
	h := hub.New(nil)
	s := New(h, nil)
	defer s.Close()

	s.Connect("BTC")

	h.Publish("rest", model.Prices{"eth": 3000})
	expectSilence(t, s)

	h.Publish("rest", model.Prices{"btc": 65000})
	if got := next(t, s); got != 65000 {
		t.Errorf("price = %v, want 65000", got)
	}

	// eth changes, btc is carried unchanged in the cumulative snapshot.
	h.Publish("rest", model.Prices{"eth": 3100})
	expectSilence(t, s)
}

func TestStream_ConnectReplaces(t *testing.T) {
	h := hub.New(nil)
	s := New(h, nil)
	defer s.Close()

	first, _ := s.Connect("btc")
	h.Publish("rest", model.Prices{"btc": 1})
	if got := next(t, s); got != 1 {
		t.Fatalf("price = %v, want 1", got)
	}

	second, err := s.Connect("eth")
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if second.ID == first.ID {
		t.Error("reconnect reused subscription id")
	}

	h.Publish("rest", model.Prices{"btc": 5, "eth": 7})
	if got := next(t, s); got != 7 {
		t.Errorf("price = %v, want 7 (eth)", got)
	}
	expectSilence(t, s)

	active, ok := s.Connected()
	if !ok || active.Symbol != "eth" {
		t.Errorf("Connected() = %v, %v, want eth", active.Symbol, ok)
	}
	if got := h.Stats().Subscribers; got != 1 {
		t.Errorf("hub subscribers = %d, want 1", got)
	}
}

func TestStream_ReconnectResetsDedup(t *testing.T) {
	h := hub.New(nil)
	s := New(h, nil)
	defer s.Close()

	s.Connect("btc")
	h.Publish("rest", model.Prices{"btc": 1})
	next(t, s)

	s.Connect("btc")
	h.Publish("rest", model.Prices{"eth": 2})
	if got := next(t, s); got != 1 {
		t.Errorf("first price on new connection = %v, want 1", got)
	}
}

func TestStream_Disconnect(t *testing.T) {
	h := hub.New(nil)
	s := New(h, nil)
	defer s.Close()

	s.Connect("btc")
	s.Disconnect()
	s.Disconnect()

	h.Publish("rest", model.Prices{"btc": 1})
	expectSilence(t, s)

	if _, ok := s.Connected(); ok {
		t.Error("Connected() reported a connection after Disconnect")
	}
	if got := h.Stats().Subscribers; got != 0 {
		t.Errorf("hub subscribers = %d, want 0", got)
	}
}

func TestStream_DisconnectWhileBlocked(t *testing.T) {
	h := hub.New(nil)
	s := New(h, nil)
	defer s.Close()

	s.Connect("btc")
	h.Publish("rest", model.Prices{"btc": 1}) // nobody reads

	done := make(chan struct{})
	go func() {
		s.Disconnect()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Disconnect blocked on unread price")
	}
}

func TestStream_Errors(t *testing.T) {
	s := New(hub.New(nil), nil)

	if _, err := s.Connect("  "); !errors.Is(err, ErrEmptySymbol) {
		t.Errorf("Connect(blank) error = %v, want ErrEmptySymbol", err)
	}

	s.Close()
	s.Close()

	if _, err := s.Connect("btc"); !errors.Is(err, ErrClosed) {
		t.Errorf("Connect after Close error = %v, want ErrClosed", err)
	}
	if _, ok := <-s.Prices(); ok {
		t.Error("Prices() still open after Close")
	}
}
