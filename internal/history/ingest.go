// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package history

import (
	"context"
	"time"

	"code.hybscloud.com/lfq"
	"code.hybscloud.com/once/internal/benchlab"
	"code.hybscloud.com/once/internal/labmetrics"
	"code.hybscloud.com/once/internal/log"
	"github.com/rs/zerolog"
	"code.hybscloud.com/iox"
)

const saveTimeout = 10 * time.Second

// Ingestor decouples accepting a run from writing it. Submit is a
// lock-free enqueue callers can treat as fire-and-forget; a single
// writer goroutine owns the database.
type Ingestor struct {
	store  *Store
	queue  *lfq.MPSC[benchlab.Run]
	done   chan struct{}
	logger zerolog.Logger
}

// NewIngestor wraps store with a bounded queue of the given capacity.
func NewIngestor(store *Store, capacity int) *Ingestor {
	return &Ingestor{
		store:  store,
		queue:  lfq.NewMPSC[benchlab.Run](capacity),
		done:   make(chan struct{}),
		logger: log.WithComponent("history"),
	}
}

// Submit queues run for persistence. It returns iox.ErrWouldBlock when
// the queue is full; the run is dropped, not retried.
func (in *Ingestor) Submit(run benchlab.Run) error {
	if err := in.queue.Enqueue(&run); err != nil {
		labmetrics.IncIngest(labmetrics.OutcomeDropped)
		in.logger.Warn().Str("run", run.ID).Msg("ingest queue full, run dropped")
		return err
	}
	return nil
}

// Start launches the writer goroutine. After ctx is canceled the writer
// drains what is already queued, then exits; Wait blocks until then.
// Runs submitted after cancellation may be dropped.
func (in *Ingestor) Start(ctx context.Context) {
	go in.writeLoop(ctx)
}

// Wait blocks until the writer has drained and exited.
func (in *Ingestor) Wait() {
	<-in.done
}

func (in *Ingestor) writeLoop(ctx context.Context) {
	defer close(in.done)

	backoff := iox.Backoff{}
	for {
		run, err := in.queue.Dequeue()
		if err != nil {
			select {
			case <-ctx.Done():
				in.queue.Drain()
				in.flush()
				return
			default:
			}
			backoff.Wait()
			continue
		}
		backoff.Reset()
		in.save(run)
	}
}

// flush writes everything still queued. Only the writer calls it, after
// producers have been told to stop.
func (in *Ingestor) flush() {
	for {
		run, err := in.queue.Dequeue()
		if err != nil {
			return
		}
		in.save(run)
	}
}

func (in *Ingestor) save(run benchlab.Run) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := in.store.SaveRun(ctx, run); err != nil {
		labmetrics.IncIngest(labmetrics.OutcomeError)
		in.logger.Error().Err(err).Str("run", run.ID).Msg("persist failed")
		return
	}
	labmetrics.IncIngest(labmetrics.OutcomeSaved)
	if n, err := in.store.CountRuns(ctx); err == nil {
		labmetrics.StoredRuns.Set(float64(n))
	}
	in.logger.Info().
		Str("run", run.ID).
		Str("commit", run.Commit).
		Int("results", len(run.Results)).
		Msg("run persisted")
}
