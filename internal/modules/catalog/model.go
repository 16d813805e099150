package catalog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable item. Stock is owned by the inventory ledger and is
// read-only from the catalog's point of view.
type Product struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	SKU           string          `json:"sku"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	ImageURL      string          `json:"image_url,omitempty"`
	IsActive      bool            `json:"is_active"`

	// An unset start or end leaves that side of the discount window open.
	DiscountPercentage decimal.NullDecimal `json:"discount_percentage"`
	DiscountStartsAt   *time.Time          `json:"discount_start_date"`
	DiscountEndsAt     *time.Time          `json:"discount_end_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InStock reports whether at least one unit is available.
func (p *Product) InStock() bool { return p.StockQuantity > 0 }

// HasActiveDiscount reports whether a positive discount applies at now.
func (p *Product) HasActiveDiscount(now time.Time) bool {
	if !p.DiscountPercentage.Valid || !p.DiscountPercentage.Decimal.IsPositive() {
		return false
	}
	if p.DiscountStartsAt != nil && now.Before(*p.DiscountStartsAt) {
		return false
	}
	if p.DiscountEndsAt != nil && now.After(*p.DiscountEndsAt) {
		return false
	}
	return true
}

// DiscountedPrice is the display price at now. Carts and orders are priced
// from Price.
func (p *Product) DiscountedPrice(now time.Time) decimal.Decimal {
	if !p.HasActiveDiscount(now) {
		return p.Price
	}
	off := p.Price.Mul(p.DiscountPercentage.Decimal).Div(decimal.NewFromInt(100))
	return p.Price.Sub(off).Round(2)
}

// MarshalJSON adds the discount fields derived at encoding time.
func (p Product) MarshalJSON() ([]byte, error) {
	type plain Product
	now := time.Now()
	discounted := p.DiscountedPrice(now)
	return json.Marshal(struct {
		plain
		HasActiveDiscount bool            `json:"has_active_discount"`
		DiscountedPrice   decimal.Decimal `json:"discounted_price"`
		DiscountAmount    decimal.Decimal `json:"discount_amount"`
	}{plain(p), p.HasActiveDiscount(now), discounted, p.Price.Sub(discounted)})
}
