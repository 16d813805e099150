package inventory

import (
	"context"

	"github.com/google/uuid"
)

// Ledger owns the per-product stock counters.
type Ledger interface {
	// CheckAvailability is a plain read and is not authoritative under
	// concurrency; Decrement re-checks under the row lock.
	CheckAvailability(ctx context.Context, productID uuid.UUID, qty int) (bool, error)

	// Decrement locks the product row and lowers its stock by qty. It fails
	// with *InsufficientStockError when stock < qty. It must run on a
	// transaction-bound ledger so the caller can roll back its other writes.
	Decrement(ctx context.Context, productID uuid.UUID, qty int) (*Adjustment, error)

	// Increment raises stock by qty. Used for restocking, never by fulfillment.
	Increment(ctx context.Context, productID uuid.UUID, qty int) (*Adjustment, error)

	// SetStock overwrites stock, clamping negative values to zero.
	SetStock(ctx context.Context, productID uuid.UUID, qty int) (*Adjustment, error)

	// LowStock lists products with 0 < stock <= threshold.
	LowStock(ctx context.Context, threshold int) ([]*StockLevel, error)
}
