package fulfillment

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// MemoryQueue is an in-process queue over a buffered channel. Tasks are lost
// if the process dies before a worker picks them up.
type MemoryQueue struct {
	mu     sync.RWMutex
	tasks  chan Task
	closed bool
}

// NewMemoryQueue creates a queue holding up to buffer pending tasks.
func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 1
	}
	return &MemoryQueue{tasks: make(chan Task, buffer)}
}

// Enqueue never blocks: a full buffer fails with ErrQueueFull.
func (q *MemoryQueue) Enqueue(ctx context.Context, task Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Len reports the number of buffered tasks.
func (q *MemoryQueue) Len() int { return len(q.tasks) }

// Consume closes the queue once ctx is cancelled, drains whatever is still
// buffered and returns. Enqueue fails with ErrQueueClosed from that point on.
func (q *MemoryQueue) Consume(ctx context.Context, concurrency int, handler TaskHandler) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	detached := context.WithoutCancel(ctx)

	var g errgroup.Group
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			for {
				select {
				case task, ok := <-q.tasks:
					if !ok {
						return nil
					}
					handler(detached, task)
				case <-ctx.Done():
					q.Close()
					q.drain(detached, handler)
					return nil
				}
			}
		})
	}
	return g.Wait()
}

func (q *MemoryQueue) drain(ctx context.Context, handler TaskHandler) {
	for task := range q.tasks {
		handler(ctx, task)
	}
}

// Close stops accepting tasks. Consumers finish the buffered ones.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	return nil
}
