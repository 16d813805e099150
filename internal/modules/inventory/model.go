package inventory

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be greater than 0")
)

// InsufficientStockError names the product that could not cover a request.
// It matches ErrInsufficientStock through errors.Is.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.ProductID.String()
	}
	return fmt.Sprintf("insufficient stock for %s. Available: %d", name, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// Adjustment describes one committed change to a product's stock counter.
type Adjustment struct {
	ProductID       uuid.UUID `json:"product_id"`
	Name            string    `json:"name"`
	SKU             string    `json:"sku"`
	Previous        int       `json:"previous_stock"`
	Current         int       `json:"stock"`
	Threshold       int       `json:"threshold"`
	CrossedLowStock bool      `json:"crossed_low_stock"`
}

// StockLevel is a product's current stock as reported by low stock listings.
type StockLevel struct {
	ProductID     uuid.UUID `json:"product_id"`
	Name          string    `json:"name"`
	SKU           string    `json:"sku"`
	StockQuantity int       `json:"stock_quantity"`
}

// CrossedLowStock reports whether a move from previous to current stock
// crosses from above the threshold to at-or-below it while staying positive.
func CrossedLowStock(previous, current, threshold int) bool {
	return previous > threshold && current <= threshold && current > 0
}

// NewAdjustment fills in the derived crossing flag.
func NewAdjustment(productID uuid.UUID, name, sku string, previous, current, threshold int) *Adjustment {
	return &Adjustment{
		ProductID:       productID,
		Name:            name,
		SKU:             sku,
		Previous:        previous,
		Current:         current,
		Threshold:       threshold,
		CrossedLowStock: CrossedLowStock(previous, current, threshold),
	}
}

func clamp(qty int) int {
	if qty < 0 {
		return 0
	}
	return qty
}
