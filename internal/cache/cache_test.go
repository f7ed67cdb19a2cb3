package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cryptosage/pricefeed/internal/hub"
	"github.com/cryptosage/pricefeed/internal/model"
)

type fakeStore struct {
	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	sets   int
	setErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.data[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeStore) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeStore) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

func TestKey(t *testing.T) {
	c := New(newFakeStore(), "", time.Minute, nil)
	if got := c.Key(" BTC "); got != "price:latest:btc" {
		t.Errorf("Key = %q, want price:latest:btc", got)
	}

	c = New(newFakeStore(), "test:", time.Minute, nil)
	if got := c.Key("eth"); got != "test:eth" {
		t.Errorf("Key = %q, want test:eth", got)
	}
}

func TestPutAndLatest(t *testing.T) {
	store := newFakeStore()
	c := New(store, "", 2*time.Minute, nil)
	ctx := context.Background()
	at := time.Date(2025, 5, 26, 12, 0, 0, 0, time.UTC)

	if err := c.Put(ctx, "BTC", 65000.5, at); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if ttl := store.ttls["price:latest:btc"]; ttl != 2*time.Minute {
		t.Errorf("ttl = %v, want 2m", ttl)
	}

	e, err := c.Latest(ctx, "btc")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if e.Symbol != "btc" || e.Price != 65000.5 || !e.UpdatedAt.Equal(at) {
		t.Errorf("entry = %+v", e)
	}

	if _, err := c.Latest(ctx, "doge"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMirror_OnlyChangedSymbols(t *testing.T) {
	store := newFakeStore()
	c := New(store, "", 0, nil)
	ctx := context.Background()
	now := time.Now()

	c.mirror(ctx, model.Prices{"btc": 1, "eth": 2}, now)
	c.mirror(ctx, model.Prices{"btc": 1, "eth": 3}, now)

	if got := store.setCount(); got != 3 {
		t.Errorf("sets = %d, want 3", got)
	}
	if got := c.Stats().Writes; got != 3 {
		t.Errorf("Writes = %d, want 3", got)
	}
}

func TestMirror_FailedWriteRetriedNextSnapshot(t *testing.T) {
	store := newFakeStore()
	store.setErr = errors.New("READONLY")
	c := New(store, "", 0, nil)
	ctx := context.Background()

	c.mirror(ctx, model.Prices{"btc": 1}, time.Now())
	if got := c.Stats().Errors; got != 1 {
		t.Errorf("Errors = %d, want 1", got)
	}

	store.mu.Lock()
	store.setErr = nil
	store.mu.Unlock()

	c.mirror(ctx, model.Prices{"btc": 1}, time.Now())
	if _, err := c.Latest(ctx, "btc"); err != nil {
		t.Errorf("Latest after recovery: %v", err)
	}
}

func TestStartStop_MirrorsHub(t *testing.T) {
	store := newFakeStore()
	h := hub.New(nil)
	c := New(store, "", time.Minute, nil)

	if err := c.Start(context.Background(), h); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	h.Publish("ws", model.Prices{"sol": 150})

	deadline := time.Now().Add(time.Second)
	for store.setCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	e, err := c.Latest(context.Background(), "sol")
	if err != nil || e.Price != 150 {
		t.Errorf("Latest(sol) = %+v, %v, want 150", e, err)
	}
	if got := h.Stats().Subscribers; got != 0 {
		t.Errorf("hub subscribers after Stop = %d, want 0", got)
	}
}
