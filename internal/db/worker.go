package db

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"time"
)

// TxFn runs inside a write transaction owned by the Worker. Returning an
// error rolls the transaction back.
type TxFn func(ctx context.Context, tx *sql.Tx) error

const (
	defaultQueueDepth = 256

	// Writes slower than this get logged; on a healthy local disk a cardea
	// transaction is sub-millisecond, so anything near this is worth seeing.
	slowTxThreshold = 250 * time.Millisecond
)

// WorkerOptions tunes the write worker. The zero value is usable.
type WorkerOptions struct {
	// QueueDepth caps how many writes may be pending before Do blocks the
	// caller. Zero means the default.
	QueueDepth int
	Logger     *slog.Logger
}

// Worker funnels every write transaction through one goroutine. With sqlite
// on a single connection, concurrent writers only produce SQLITE_BUSY churn;
// a serialized queue turns that contention into plain backpressure.
type Worker struct {
	db     *sql.DB
	jobs   chan job
	done   chan struct{}
	logger *slog.Logger
}

type job struct {
	ctx context.Context
	fn  TxFn
	ch  chan error
}

func NewWorker(db *sql.DB, opts WorkerOptions) *Worker {
	depth := opts.QueueDepth
	if depth <= 0 {
		depth = defaultQueueDepth
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	w := &Worker{
		db:     db,
		jobs:   make(chan job, depth),
		done:   make(chan struct{}),
		logger: logger,
	}
	go w.loop()
	return w
}

// Close drains the queue and stops the worker. Pending writes still commit.
func (w *Worker) Close() {
	close(w.jobs)
	<-w.done
}

// Do runs fn in a write transaction and returns its outcome. If the caller's
// context expires while the job is queued or running, Do returns early; the
// worker still finishes the transaction and drops the result into the
// buffered channel, so an abandoned write is committed, never half-done.
func (w *Worker) Do(ctx context.Context, fn TxFn) error {
	ch := make(chan error, 1)

	select {
	case w.jobs <- job{ctx: ctx, fn: fn, ch: ch}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer close(w.done)

	for j := range w.jobs {
		j.ch <- w.run(j)
	}
}

func (w *Worker) run(j job) error {
	start := time.Now()

	tx, err := w.db.BeginTx(j.ctx, nil)
	if err != nil {
		w.logger.Warn("db write: begin failed", "error", err)
		return err
	}

	if err := j.fn(j.ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			w.logger.Warn("db write: rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		w.logger.Warn("db write: commit failed", "error", err)
		return err
	}

	if d := time.Since(start); d > slowTxThreshold {
		w.logger.Warn("db write: slow transaction", "duration", d, "queued", len(w.jobs))
	}
	return nil
}
