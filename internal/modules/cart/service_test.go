package cart_test

import (
	"context"
	"errors"
	"testing"

	"github.com/georgemunganga/storefront/internal/modules/cart"
	"github.com/georgemunganga/storefront/internal/modules/inventory"
	"github.com/georgemunganga/storefront/internal/testutil/memstore"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newCart() (*memstore.Store, cart.Service) {
	st := memstore.New(0)
	return st, cart.NewService(st.Carts(), st.Products(), decimal.RequireFromString("0.10"))
}

func TestAddMergesAndClampsToStock(t *testing.T) {
	st, svc := newCart()
	p := st.AddProduct("Mug", "MUG", "8.00", 5)
	user := uuid.New()
	ctx := context.Background()

	if _, err := svc.Add(ctx, user, p.ID.String(), 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	line, err := svc.Add(ctx, user, p.ID.String(), 4)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if line.Quantity != 5 {
		t.Fatalf("merged quantity should clamp to stock 5, got %d", line.Quantity)
	}
	if st.CartSize(user) != 1 {
		t.Fatalf("at most one line per product")
	}
}

func TestAddRejections(t *testing.T) {
	st, svc := newCart()
	ctx := context.Background()
	user := uuid.New()

	empty := st.AddProduct("Sold out", "OUT", "1.00", 0)
	if _, err := svc.Add(ctx, user, empty.ID.String(), 1); !errors.Is(err, cart.ErrOutOfStock) {
		t.Fatalf("expected out of stock, got %v", err)
	}

	few := st.AddProduct("Few", "FEW", "1.00", 2)
	if _, err := svc.Add(ctx, user, few.ID.String(), 3); !errors.Is(err, inventory.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	hidden := st.AddProduct("Hidden", "HID", "1.00", 9)
	st.SetActive(hidden.ID, false)
	if _, err := svc.Add(ctx, user, hidden.ID.String(), 1); !errors.Is(err, inventory.ErrProductNotFound) {
		t.Fatalf("expected product not found, got %v", err)
	}
	if _, err := svc.Add(ctx, user, uuid.NewString(), 1); !errors.Is(err, inventory.ErrProductNotFound) {
		t.Fatalf("expected product not found, got %v", err)
	}
	if _, err := svc.Add(ctx, user, few.ID.String(), 0); !errors.Is(err, cart.ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}
}

func TestUpdateAndRemoveEnforceOwnership(t *testing.T) {
	st, svc := newCart()
	ctx := context.Background()
	p := st.AddProduct("Mug", "MUG", "8.00", 5)
	owner, stranger := uuid.New(), uuid.New()

	line, err := svc.Add(ctx, owner, p.ID.String(), 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := svc.Update(ctx, stranger, line.ID.String(), 2); !errors.Is(err, cart.ErrNotOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
	if _, err := svc.Update(ctx, owner, line.ID.String(), 1000); !errors.Is(err, cart.ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}
	if _, err := svc.Update(ctx, owner, line.ID.String(), 6); !errors.Is(err, inventory.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	updated, err := svc.Update(ctx, owner, line.ID.String(), 4)
	if err != nil || updated.Quantity != 4 {
		t.Fatalf("update: %+v, %v", updated, err)
	}

	if err := svc.Remove(ctx, stranger, line.ID.String()); !errors.Is(err, cart.ErrNotOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
	if err := svc.Remove(ctx, owner, line.ID.String()); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.Remove(ctx, owner, line.ID.String()); !errors.Is(err, cart.ErrLineNotFound) {
		t.Fatalf("expected line not found, got %v", err)
	}
}

func TestViewComputesTotals(t *testing.T) {
	st, svc := newCart()
	ctx := context.Background()
	a := st.AddProduct("A", "A", "10.00", 9)
	b := st.AddProduct("B", "B", "5.00", 9)
	user := uuid.New()
	st.AddToCart(user, a.ID, 2)
	st.AddToCart(user, b.ID, 1)

	c, err := svc.View(ctx, user)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(c.Lines) != 2 || c.Lines[0].ProductID != a.ID {
		t.Fatalf("lines should come back in insertion order: %+v", c.Lines)
	}
	if c.Total.StringFixed(2) != "27.50" || c.Count != 3 {
		t.Fatalf("unexpected cart: total=%s count=%d", c.Total, c.Count)
	}
}
