package cart

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines cart line storage.
type Repository interface {
	// ListWithProducts returns the user's lines joined with their products in
	// insertion order.
	ListWithProducts(ctx context.Context, userID uuid.UUID) ([]*Line, error)

	// ListForFulfillment is ListWithProducts holding row locks on the cart
	// lines until the enclosing transaction ends. Lines deleted by a
	// concurrent transaction that commits first are not returned.
	ListForFulfillment(ctx context.Context, userID uuid.UUID) ([]*Line, error)

	// GetLine returns a line with its product, or ErrLineNotFound.
	GetLine(ctx context.Context, lineID uuid.UUID) (*Line, error)

	// FindLine returns the user's line for productID, or ErrLineNotFound.
	FindLine(ctx context.Context, userID, productID uuid.UUID) (*Line, error)

	// Upsert sets the quantity of the (user, product) line, creating it if needed.
	Upsert(ctx context.Context, userID, productID uuid.UUID, qty int) (*Line, error)

	UpdateQuantity(ctx context.Context, lineID uuid.UUID, qty int) error
	Delete(ctx context.Context, lineID uuid.UUID) error

	// Clear removes every line the user owns and reports how many were removed.
	Clear(ctx context.Context, userID uuid.UUID) (int64, error)
}
