package cart

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrLineNotFound    = errors.New("cart item not found")
	ErrNotOwner        = errors.New("cart item belongs to another user")
	ErrOutOfStock      = errors.New("product is out of stock")
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 999")
)

// MaxQuantity caps a single cart line.
const MaxQuantity = 999

// ProductSnapshot is the product row as joined at read time.
type ProductSnapshot struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	IsActive      bool            `json:"is_active"`
}

// Line is one product in a user's cart. A user has at most one line per product.
type Line struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	ProductID uuid.UUID        `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Product   *ProductSnapshot `json:"product,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Subtotal is quantity times the joined unit price.
func (l *Line) Subtotal() decimal.Decimal {
	if l.Product == nil {
		return decimal.Zero
	}
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Amounts holds the monetary figures shared by the cart view and checkout.
type Amounts struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Totals sums lines and applies taxRate, rounding tax half-up to cents.
func Totals(lines []*Line, taxRate decimal.Decimal) Amounts {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(taxRate).Round(2)
	return Amounts{Subtotal: subtotal, Tax: tax, Total: subtotal.Add(tax)}
}

// Cart is the rendered view of a user's lines.
type Cart struct {
	Lines []*Line `json:"items"`
	Amounts
	Count int `json:"count"`
}

// Count sums line quantities.
func Count(lines []*Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}
