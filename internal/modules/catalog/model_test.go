package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func discounted(pct string, starts, ends *time.Time) *Product {
	return &Product{
		Price:              decimal.RequireFromString("80.00"),
		DiscountPercentage: decimal.NewNullDecimal(decimal.RequireFromString(pct)),
		DiscountStartsAt:   starts,
		DiscountEndsAt:     ends,
	}
}

func TestDiscountWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	before, after := now.Add(-time.Hour), now.Add(time.Hour)

	if p := discounted("25", &before, &after); !p.HasActiveDiscount(now) || !p.DiscountedPrice(now).Equal(decimal.RequireFromString("60.00")) {
		t.Fatalf("unexpected discounted price: %s", p.DiscountedPrice(now))
	}
	if p := discounted("25", nil, nil); !p.HasActiveDiscount(now) {
		t.Fatalf("an open window should be active")
	}
	if p := discounted("25", &after, nil); p.HasActiveDiscount(now) || !p.DiscountedPrice(now).Equal(p.Price) {
		t.Fatalf("a future discount should not apply")
	}
	if p := discounted("25", nil, &before); p.HasActiveDiscount(now) {
		t.Fatalf("an expired discount should not apply")
	}
	if p := discounted("0", nil, nil); p.HasActiveDiscount(now) {
		t.Fatalf("a zero discount should not be active")
	}
	if p := (&Product{Price: decimal.RequireFromString("5.00")}); p.HasActiveDiscount(now) {
		t.Fatalf("no discount should not be active")
	}
}

func TestProductJSONCarriesDerivedPrice(t *testing.T) {
	data, err := json.Marshal(discounted("10", nil, nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var body struct {
		Price             string  `json:"price"`
		DiscountedPrice   string  `json:"discounted_price"`
		DiscountAmount    string  `json:"discount_amount"`
		HasActiveDiscount bool    `json:"has_active_discount"`
		Percentage        *string `json:"discount_percentage"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !body.HasActiveDiscount || body.DiscountedPrice != "72" || body.DiscountAmount != "8" || body.Percentage == nil {
		t.Fatalf("unexpected json: %s", data)
	}

	var back Product
	if err := json.Unmarshal(data, &back); err != nil || !back.DiscountPercentage.Valid {
		t.Fatalf("product should decode from its own json: %v %+v", err, back)
	}
}

func TestProductRequestRejectsBadDiscount(t *testing.T) {
	svc := NewService(&stubRepo{})
	pct := decimal.RequireFromString("120")
	_, err := svc.CreateProduct(context.Background(), ProductRequest{Name: "Mug", SKU: "MUG", DiscountPercentage: &pct})
	if !errors.Is(err, ErrInvalidProduct) {
		t.Fatalf("expected invalid product, got %v", err)
	}

	starts := time.Now()
	ends := starts.Add(-time.Hour)
	_, err = svc.CreateProduct(context.Background(), ProductRequest{Name: "Mug", SKU: "MUG", DiscountStartsAt: &starts, DiscountEndsAt: &ends})
	if !errors.Is(err, ErrInvalidProduct) {
		t.Fatalf("expected invalid product, got %v", err)
	}

	ok := decimal.RequireFromString("15")
	p, err := svc.CreateProduct(context.Background(), ProductRequest{Name: "Mug", SKU: "MUG", Price: decimal.RequireFromString("8"), DiscountPercentage: &ok})
	if err != nil || !p.DiscountPercentage.Valid || !p.DiscountPercentage.Decimal.Equal(ok) {
		t.Fatalf("unexpected product: %+v, %v", p, err)
	}
}
