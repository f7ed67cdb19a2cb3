package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cryptosage/pricefeed/internal/hub"
	"github.com/cryptosage/pricefeed/internal/model"
)

const insertTickSQL = `
	INSERT INTO price_ticks (time, symbol, price)
	VALUES ($1, $2, $3)
	ON CONFLICT (symbol, time) DO NOTHING
`

// PriceWriter consumes hub snapshots and writes changed prices to price_ticks.
type PriceWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	source Source
	sub    *hub.Subscription

	db BatchSender

	// last is only touched by consumeLoop.
	last model.Prices

	batch       []tickRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// flushMu keeps flushes in row order.
	flushMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

// NewPriceWriter creates a new PriceWriter.
func NewPriceWriter(cfg WriterConfig, source Source, db BatchSender, logger *slog.Logger) *PriceWriter {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultWriterConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaults.FlushInterval
	}
	return &PriceWriter{
		cfg:    cfg,
		source: source,
		db:     db,
		logger: logger,
		last:   make(model.Prices),
		batch:  make([]tickRow, 0, cfg.BatchSize),
	}
}

// Start subscribes to the hub and begins writing.
func (w *PriceWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.sub = w.source.Subscribe()
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("price writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop unsubscribes, waits for the loops, and flushes what is left using ctx.
func (w *PriceWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping price writer")

	if w.cancel != nil {
		w.cancel()
	}
	if w.sub != nil {
		w.sub.Close()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("price writer stopped")
	case <-ctx.Done():
		w.logger.Warn("price writer stop timed out")
	}

	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *PriceWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *PriceWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case snap, ok := <-w.sub.C():
			if !ok {
				return
			}
			w.handleSnapshot(snap, time.Now())
		}
	}
}

func (w *PriceWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// handleSnapshot queues a row for every symbol whose price differs from
// the last one seen.
func (w *PriceWriter) handleSnapshot(snap model.Prices, at time.Time) {
	rows := w.transform(snap, at)
	if len(rows) == 0 {
		return
	}

	w.batchMu.Lock()
	w.batch = append(w.batch, rows...)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

func (w *PriceWriter) transform(snap model.Prices, at time.Time) []tickRow {
	var rows []tickRow
	for sym, price := range snap {
		if prev, ok := w.last[sym]; ok && prev == price {
			continue
		}
		w.last[sym] = price
		rows = append(rows, tickRow{
			Time:   at,
			Symbol: sym,
			Price:  price,
		})
	}
	return rows
}

func (w *PriceWriter) flush(ctx context.Context) {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	batch := w.batch
	w.batch = make([]tickRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil && ctx.Err() != nil {
		// Cancelled mid-flush; keep the rows for the final flush in Stop.
		w.batchMu.Lock()
		w.batch = append(batch, w.batch...)
		w.batchMu.Unlock()
		return
	}
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed price ticks",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *PriceWriter) batchInsert(ctx context.Context, rows []tickRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertTickSQL, r.Time, string(r.Symbol), r.Price)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
