package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrProductNotFound = errors.New("product not found")

// Repository defines product data storage.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	List(ctx context.Context, activeOnly bool) ([]*Product, error)
	// Update changes descriptive fields and price. Stock is left untouched.
	Update(ctx context.Context, p *Product) error
}
