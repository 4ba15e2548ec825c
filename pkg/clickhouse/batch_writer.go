package clickhouse

import (
	"context"
	"sync"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/pkg/logger"
)

// FlushFunc performs the actual INSERT for one accumulated batch.
type FlushFunc func(ctx context.Context, batch []interface{}) error

// Defaults applied when the config leaves size or interval unset.
const (
	defaultBatchSize     = 500
	defaultFlushInterval = 5 * time.Second
)

// BatchWriterConfig configures a BatchWriter.
type BatchWriterConfig struct {
	FlushFunc FlushFunc
	TableName string
	// MaxBatchSize triggers a flush when the buffer reaches this many rows.
	MaxBatchSize int
	// MaxAge triggers a time-based flush for slow trickles of rows.
	MaxAge time.Duration
}

// BatchWriter accumulates rows in memory and hands them to FlushFunc in
// batches. ClickHouse penalizes single-row inserts heavily, so every
// writer in the repository layer funnels rows through one of these.
//
// A flush happens when the buffer fills, when the age ticker fires, or
// when the caller flushes explicitly. Stop drains whatever is left.
type BatchWriter struct {
	flush FlushFunc
	table string
	size  int
	age   time.Duration
	log   *logger.Logger

	mu        sync.Mutex
	pending   []interface{}
	lastFlush time.Time
	running   bool

	quit chan struct{}
	done chan struct{}
}

// NewBatchWriter builds a writer; it buffers nothing until Start.
func NewBatchWriter(cfg BatchWriterConfig) *BatchWriter {
	size := cfg.MaxBatchSize
	if size <= 0 {
		size = defaultBatchSize
	}
	age := cfg.MaxAge
	if age <= 0 {
		age = defaultFlushInterval
	}

	return &BatchWriter{
		flush:     cfg.FlushFunc,
		table:     cfg.TableName,
		size:      size,
		age:       age,
		pending:   make([]interface{}, 0, size),
		lastFlush: time.Now(),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		log:       logger.Get().With("component", "batch_writer", "table", cfg.TableName),
	}
}

// Start launches the age-based flush loop. Calling it twice is a no-op.
func (w *BatchWriter) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.loop(ctx)
	w.log.Infof("Batch writer started, size=%d age=%s", w.size, w.age)
}

// Add buffers one row, flushing inline if the buffer just filled.
func (w *BatchWriter) Add(ctx context.Context, row interface{}) error {
	w.mu.Lock()
	w.pending = append(w.pending, row)
	full := len(w.pending) >= w.size
	w.mu.Unlock()

	if full {
		return w.Flush(ctx)
	}
	return nil
}

// Flush sends everything buffered so far. The buffer is swapped out under
// the lock and the INSERT runs outside it, so concurrent Adds keep going
// while a batch is in flight.
func (w *BatchWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return nil
	}
	batch := w.pending
	w.pending = make([]interface{}, 0, w.size)
	w.lastFlush = time.Now()
	w.mu.Unlock()

	start := time.Now()
	if err := w.flush(ctx, batch); err != nil {
		w.log.Errorf("Flush of %d rows to %s failed after %s: %v",
			len(batch), w.table, time.Since(start), err)
		return err
	}

	w.log.Debugf("Flushed %d rows to %s in %s", len(batch), w.table, time.Since(start))
	return nil
}

// Len reports the number of buffered rows.
func (w *BatchWriter) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Stop halts the loop and drains the buffer, waiting up to the context
// deadline for the loop to exit.
func (w *BatchWriter) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.quit)

	select {
	case <-w.done:
		w.log.Info("Batch writer stopped")
		return nil
	case <-ctx.Done():
		w.log.Warn("Batch writer stop timed out")
		return ctx.Err()
	}
}

func (w *BatchWriter) loop(ctx context.Context) {
	defer close(w.done)

	tick := time.NewTicker(w.age)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			// Drain on a fresh context; the parent one is already dead.
			w.drain()
			return
		case <-w.quit:
			w.drain()
			return
		case <-tick.C:
			if w.Len() == 0 {
				continue
			}
			if err := w.Flush(ctx); err != nil {
				w.log.Errorf("Periodic flush failed: %v", err)
			}
		}
	}
}

func (w *BatchWriter) drain() {
	if err := w.Flush(context.Background()); err != nil {
		w.log.Errorf("Final flush failed: %v", err)
	}
}
