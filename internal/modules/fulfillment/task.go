package fulfillment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrQueueFull    = errors.New("fulfillment queue is full")
	ErrQueueClosed  = errors.New("fulfillment queue is closed")
	ErrTaskTimeout  = errors.New("fulfillment attempt timed out")
	ErrTaskDelivery = errors.New("fulfillment task could not be delivered")
)

// Task asks a worker to fulfil one order for the user who placed it.
type Task struct {
	OrderID    uuid.UUID `json:"order_id"`
	UserID     uuid.UUID `json:"user_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewTask stamps a task for order and user.
func NewTask(orderID, userID uuid.UUID) Task {
	return Task{OrderID: orderID, UserID: userID, EnqueuedAt: time.Now().UTC()}
}

// TaskHandler processes one delivered task. The queue acknowledges the task
// once the handler returns, whatever the result.
type TaskHandler func(ctx context.Context, task Task) error

// Enqueuer is the request-path side of the queue. Enqueue must not block on
// workers.
type Enqueuer interface {
	Enqueue(ctx context.Context, task Task) error
}

// Queue carries tasks from checkout to workers.
type Queue interface {
	Enqueuer
	// Consume runs concurrency handlers until ctx is cancelled. Tasks already
	// handed to a handler run to completion on a context detached from ctx.
	Consume(ctx context.Context, concurrency int, handler TaskHandler) error
	Close() error
}
