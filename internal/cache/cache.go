// Package cache mirrors the latest known prices into Redis so other
// processes can read them without subscribing to the hub.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cryptosage/pricefeed/internal/hub"
	"github.com/cryptosage/pricefeed/internal/model"
)

// DefaultKeyPrefix namespaces latest-price keys.
const DefaultKeyPrefix = "price:latest:"

// ErrNotFound is returned by Latest when no price is cached for a symbol.
var ErrNotFound = errors.New("price not cached")

// Store is the subset of the Redis API the cache needs. *redis.Client
// implements it.
type Store interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Source provides snapshot subscriptions. *hub.Hub implements it.
type Source interface {
	Subscribe() *hub.Subscription
}

// Entry is the cached value of one symbol.
type Entry struct {
	Symbol    model.Symbol `json:"symbol"`
	Price     float64      `json:"price"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Stats holds mirror counters.
type Stats struct {
	Writes int64
	Errors int64
}

// RedisCache writes every changed price of every hub snapshot to Redis.
type RedisCache struct {
	store  Store
	prefix string
	ttl    time.Duration
	logger *slog.Logger

	sub  *hub.Subscription
	last model.Prices // consumer goroutine only

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	stats Stats
}

// New creates a cache. A zero ttl keeps keys forever; an empty prefix
// selects DefaultKeyPrefix.
func New(store Store, prefix string, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisCache{
		store:  store,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
		last:   make(model.Prices),
	}
}

// Key returns the Redis key holding sym's latest price.
func (c *RedisCache) Key(sym model.Symbol) string {
	return c.prefix + string(model.NormalizeSymbol(string(sym)))
}

// Start subscribes to source and mirrors snapshots until Stop or ctx ends.
func (c *RedisCache) Start(ctx context.Context, source Source) error {
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.sub = source.Subscribe()

	c.wg.Add(1)
	go c.consumeLoop()

	c.logger.Info("redis cache started", "prefix", c.prefix, "ttl", c.ttl)
	return nil
}

// Stop unsubscribes and waits for the mirror loop.
func (c *RedisCache) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.sub != nil {
		c.sub.Close()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("redis cache stopped")
		return nil
	case <-ctx.Done():
		c.logger.Warn("redis cache stop timed out")
		return ctx.Err()
	}
}

// Stats returns current counters.
func (c *RedisCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Put stores one price.
func (c *RedisCache) Put(ctx context.Context, sym model.Symbol, price float64, at time.Time) error {
	sym = model.NormalizeSymbol(string(sym))
	data, err := json.Marshal(Entry{Symbol: sym, Price: price, UpdatedAt: at})
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := c.store.Set(ctx, c.Key(sym), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", c.Key(sym), err)
	}
	return nil
}

// Latest reads sym's cached price.
func (c *RedisCache) Latest(ctx context.Context, sym model.Symbol) (Entry, error) {
	val, err := c.store.Get(ctx, c.Key(sym)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("get %s: %w", c.Key(sym), err)
	}

	var e Entry
	if err := json.Unmarshal([]byte(val), &e); err != nil {
		return Entry{}, fmt.Errorf("unmarshal entry: %w", err)
	}
	return e, nil
}

func (c *RedisCache) consumeLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case snap, ok := <-c.sub.C():
			if !ok {
				return
			}
			c.mirror(c.ctx, snap, time.Now())
		}
	}
}

// mirror writes the symbols of snap whose price changed since the last call.
func (c *RedisCache) mirror(ctx context.Context, snap model.Prices, at time.Time) {
	for sym, price := range snap {
		if prev, ok := c.last[sym]; ok && prev == price {
			continue
		}

		if err := c.Put(ctx, sym, price, at); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.mu.Lock()
			c.stats.Errors++
			c.mu.Unlock()
			c.logger.Warn("redis write failed", "symbol", sym, "error", err)
			continue
		}

		c.last[sym] = price
		c.mu.Lock()
		c.stats.Writes++
		c.mu.Unlock()
	}
}
