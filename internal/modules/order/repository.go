package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines data access for orders.
type Repository interface {
	// Create inserts the order header. A duplicate order number fails with
	// ErrDuplicateNumber so the caller can retry with a fresh number.
	Create(ctx context.Context, o *Order) error

	// GetByID retrieves an order with its lines.
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// GetStatus reads only the status column.
	GetStatus(ctx context.Context, id uuid.UUID) (Status, error)

	// ListByUser returns a user's orders, newest first, without lines.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error)

	// ListStale returns orders still processing that were created before
	// cutoff, oldest first.
	ListStale(ctx context.Context, cutoff time.Time) ([]*Order, error)

	// LockForFulfillment reads the header holding a row lock until the
	// enclosing transaction ends.
	LockForFulfillment(ctx context.Context, id uuid.UUID) (*Order, error)

	// AddLine appends a line snapshot.
	AddLine(ctx context.Context, l *Line) error

	// Transition moves the order out of processing. It reports false when the
	// order had already left processing, so only one caller ever wins.
	Transition(ctx context.Context, id uuid.UUID, to Status, reason string) (bool, error)
}
