package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
)

// Dispatcher runs ingestion in the background on a bounded worker pool.
// Callers get no handle on the run; results land in the store and the
// execution store.
type Dispatcher struct {
	pool   *ants.Pool
	orch   *Orchestrator
	logger *slog.Logger

	wg     sync.WaitGroup
	closed atomic.Bool
}

func NewDispatcher(orch *Orchestrator, workers int, logger *slog.Logger) (*Dispatcher, error) {
	if workers <= 0 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{pool: pool, orch: orch, logger: logger}, nil
}

// Submit schedules ingestion of documentID and returns at once, even when
// every worker is busy. Waiting for a free worker happens on a detached
// goroutine, so the pool still bounds how many runs execute together. The
// run gets a fresh context and its own store scope, independent of the
// caller's request.
func (d *Dispatcher) Submit(documentID int64) error {
	if d.closed.Load() {
		return ErrDispatcherClosed
	}

	d.wg.Add(1)
	go func() {
		err := d.pool.Submit(func() {
			defer d.wg.Done()
			d.run(documentID)
		})
		if err != nil {
			d.wg.Done()
			d.logger.Error("Ingestion was not scheduled",
				slog.Int64("document_id", documentID),
				slog.String("error", err.Error()))
		}
	}()

	d.logger.Debug("Ingestion dispatched", slog.Int64("document_id", documentID))
	return nil
}

func (d *Dispatcher) run(documentID int64) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Recovered from panic during ingestion",
				slog.Int64("document_id", documentID),
				slog.Any("panic", r))
		}
	}()

	if err := d.orch.Ingest(context.Background(), documentID); err != nil {
		d.logger.Warn("Background ingestion ended with error",
			slog.Int64("document_id", documentID),
			slog.String("error", err.Error()))
	}
}

// Wait blocks until every submitted run has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops accepting work and waits up to timeout for running
// ingestions.
func (d *Dispatcher) Close(timeout time.Duration) error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	return d.pool.ReleaseTimeout(timeout)
}
