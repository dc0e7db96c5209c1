package archive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

const insertPosition = `
	INSERT INTO vessel_positions (
		position_id, mmsi, vessel_name, message_type, latitude, longitude,
		speed_over_ground, course_over_ground, nav_status, observed_at, received_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (position_id) DO NOTHING
`

// BatchSender sends a pgx batch. *pgxpool.Pool satisfies it.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// WriterConfig contains configuration for the batch writer.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     500,
		FlushInterval: 5 * time.Second,
	}
}

// WriterMetrics tracks writer activity.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}

// Writer drains the buffer into vessel_positions.
type Writer struct {
	cfg    WriterConfig
	logger *slog.Logger

	input *Buffer[Row]
	db    BatchSender

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// flushMu serializes flushes; metricsMu guards metrics.
	flushMu   sync.Mutex
	metricsMu sync.Mutex
	metrics   WriterMetrics
}

// NewWriter creates a new Writer.
func NewWriter(cfg WriterConfig, input *Buffer[Row], db BatchSender, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultWriterConfig()
	if cfg.BatchSize < 1 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaults.FlushInterval
	}
	return &Writer{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
	}
}

// Start begins draining the buffer.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.run()

	w.logger.Info("archive writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts down the loop and flushes what remains using ctx.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping archive writer")

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("archive writer stop timed out")
		return ctx.Err()
	}

	w.input.Close()
	w.FlushAll(ctx)

	w.logger.Info("archive writer stopped")
	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() WriterMetrics {
	w.metricsMu.Lock()
	defer w.metricsMu.Unlock()
	return w.metrics
}

// BufferStats returns the input buffer statistics.
func (w *Writer) BufferStats() BufferStats {
	return w.input.Stats()
}

func (w *Writer) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.input.Notify():
			// Flush only full batches between ticks
			for w.input.Len() >= w.cfg.BatchSize {
				if !w.flushBatch(w.ctx) {
					break
				}
			}
		case <-ticker.C:
			w.FlushAll(w.ctx)
		}
	}
}

// FlushAll writes every buffered row in batches of BatchSize.
func (w *Writer) FlushAll(ctx context.Context) {
	for w.input.Len() > 0 {
		if !w.flushBatch(ctx) {
			return
		}
	}
}

// flushBatch writes one batch. It reports false when the batch failed.
func (w *Writer) flushBatch(ctx context.Context) bool {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	rows := w.input.DrainTo(w.cfg.BatchSize)
	if len(rows) == 0 {
		return true
	}

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, rows)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(rows))
		w.metricsMu.Lock()
		w.metrics.Errors++
		w.metricsMu.Unlock()
		return false
	}

	w.metricsMu.Lock()
	w.metrics.Inserts += int64(len(rows) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.metricsMu.Unlock()

	w.logger.Debug("flushed positions",
		"count", len(rows),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
	return true
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(ctx context.Context, rows []Row) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertPosition,
			r.PositionID, r.MMSI, r.VesselName, r.MessageType, r.Latitude, r.Longitude,
			r.Speed, r.Course, r.NavStatus, r.ObservedAt, r.ReceivedAt,
		)
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
