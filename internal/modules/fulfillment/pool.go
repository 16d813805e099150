package fulfillment

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Pool feeds queued tasks to a Worker.
type Pool struct {
	queue       Queue
	worker      *Worker
	concurrency int
	log         zerolog.Logger
}

func NewPool(queue Queue, worker *Worker, concurrency int, logger zerolog.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pool{
		queue:       queue,
		worker:      worker,
		concurrency: concurrency,
		log:         logger.With().Str("component", "fulfillment_pool").Logger(),
	}
}

// Run reclaims orphaned orders, then blocks until ctx is cancelled and every
// in-flight task has finished.
func (p *Pool) Run(ctx context.Context) error {
	p.log.Info().Int("concurrency", p.concurrency).Msg("fulfillment pool started")
	if ctx.Err() == nil {
		if err := p.Reclaim(ctx); err != nil {
			p.log.Error().Err(err).Msg("reclaim of stale orders failed")
		}
	}
	err := p.queue.Consume(ctx, p.concurrency, p.worker.Handle)
	p.log.Info().Msg("fulfillment pool stopped")
	return err
}

// Reclaim re-enqueues orders that have been processing for longer than the
// worker's retry budget, such as tasks lost with a previous process. A task
// that does not fit in the queue is handled inline. Duplicate deliveries are
// harmless because only one transition out of processing can win.
func (p *Pool) Reclaim(ctx context.Context) error {
	cutoff := time.Now().Add(-p.worker.Budget())
	stale, err := p.worker.store.Orders().ListStale(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, o := range stale {
		task := NewTask(o.ID, o.UserID)
		err := p.queue.Enqueue(ctx, task)
		if errors.Is(err, ErrQueueFull) {
			p.worker.Handle(ctx, task)
			continue
		}
		if err != nil {
			return err
		}
	}
	if len(stale) > 0 {
		p.log.Warn().Int("orders", len(stale)).Time("cutoff", cutoff).Msg("stale processing orders reclaimed")
	}
	return nil
}
