package usecase

import (
	"context"
	"fmt"
	"time"

	"fare-pipeline/internal/domain/entity"
	"fare-pipeline/internal/domain/repository"
	"fare-pipeline/pkg/logger"
	"fare-pipeline/pkg/metrics"
)

// DefaultBatchSize is the number of buffered upserts that triggers a bulk write
const DefaultBatchSize = 200

// BatchWriter buffers flight fare upserts and writes them in fixed-size bulks.
// It is not safe for concurrent use; one extraction run owns one writer.
type BatchWriter struct {
	repo    repository.FlightFareRecordRepository
	size    int
	dryRun  bool
	stats   *RunStats
	metrics *metrics.Metrics
	logger  logger.Logger

	buffer  []*entity.FlightFareUpdate
	index   map[string]int
	flushes int
}

// NewBatchWriter creates a writer. metrics may be nil.
func NewBatchWriter(
	repo repository.FlightFareRecordRepository,
	size int,
	dryRun bool,
	stats *RunStats,
	metrics *metrics.Metrics,
	logger logger.Logger,
) *BatchWriter {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &BatchWriter{
		repo:    repo,
		size:    size,
		dryRun:  dryRun,
		stats:   stats,
		metrics: metrics,
		logger:  logger,
		buffer:  make([]*entity.FlightFareUpdate, 0, size),
		index:   make(map[string]int, size),
	}
}

// Add buffers an update and flushes once the buffer holds a full chunk. An update for a
// flight key that is already pending replaces the pending one.
func (w *BatchWriter) Add(ctx context.Context, update *entity.FlightFareUpdate) error {
	key := update.Record.FlightKey
	if i, ok := w.index[key]; ok {
		update.IsNew = update.IsNew || w.buffer[i].IsNew
		w.buffer[i] = update
		return nil
	}

	w.index[key] = len(w.buffer)
	w.buffer = append(w.buffer, update)

	if len(w.buffer) >= w.size {
		return w.Flush(ctx)
	}
	return nil
}

// Pending returns the buffered update for a flight key, if any
func (w *BatchWriter) Pending(flightKey string) (*entity.FlightFareUpdate, bool) {
	i, ok := w.index[flightKey]
	if !ok {
		return nil, false
	}
	return w.buffer[i], true
}

// Buffered returns the number of updates waiting for a flush
func (w *BatchWriter) Buffered() int {
	return len(w.buffer)
}

// Flushes returns how many bulk writes were issued (or suppressed in dry run)
func (w *BatchWriter) Flushes() int {
	return w.flushes
}

// Flush writes everything buffered. It is a no-op on an empty buffer.
func (w *BatchWriter) Flush(ctx context.Context) error {
	if len(w.buffer) == 0 {
		return nil
	}

	batch := w.buffer
	w.flushes++
	w.stats.Flushes.Add(1)

	if w.dryRun {
		w.stats.Suppressed.Add(int64(len(batch)))
		w.observeWritten("suppressed", int64(len(batch)))
		w.logger.Info("Dry run: bulk write suppressed", "records", len(batch))
		w.reset()
		return nil
	}

	start := time.Now()
	result, err := w.repo.BulkUpsert(ctx, batch)
	if w.metrics != nil {
		w.metrics.Flushes.Inc()
		w.metrics.FlushTime.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return fmt.Errorf("bulk upsert of %d records failed: %w", len(batch), err)
	}

	w.stats.Inserted.Add(result.Inserted)
	w.stats.Updated.Add(result.Updated)
	w.observeWritten("inserted", result.Inserted)
	w.observeWritten("updated", result.Updated)

	w.logger.Debug("Bulk write complete",
		"records", len(batch),
		"inserted", result.Inserted,
		"updated", result.Updated)

	w.reset()
	return nil
}

func (w *BatchWriter) reset() {
	w.buffer = make([]*entity.FlightFareUpdate, 0, w.size)
	w.index = make(map[string]int, w.size)
}

func (w *BatchWriter) observeWritten(result string, n int64) {
	if w.metrics == nil || n == 0 {
		return
	}
	w.metrics.RecordsWritten.WithLabelValues(result).Add(float64(n))
}
