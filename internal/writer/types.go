package writer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cryptosage/pricefeed/internal/hub"
	"github.com/cryptosage/pricefeed/internal/model"
)

// WriterConfig holds batching settings.
type WriterConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     500,
		FlushInterval: time.Second,
	}
}

// WriterMetrics holds writer counters.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
}

// Source provides snapshot subscriptions. *hub.Hub implements it.
type Source interface {
	Subscribe() *hub.Subscription
}

// BatchSender sends a pgx batch. *pgxpool.Pool implements it.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// tickRow is one price_ticks row.
type tickRow struct {
	Time   time.Time
	Symbol model.Symbol
	Price  float64
}
