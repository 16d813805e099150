package inventory

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func newMockLedger(t *testing.T, threshold int) (Ledger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresLedger(db, threshold), mock
}

func TestDecrementLocksAndReportsCrossing(t *testing.T) {
	ledger, mock := newMockLedger(t, 5)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name, sku, stock_quantity FROM products WHERE id=$1 FOR UPDATE`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"name", "sku", "stock_quantity"}).AddRow("Mug", "MUG-1", 7))
	mock.ExpectQuery(`UPDATE products SET stock_quantity = stock_quantity - \$1`).
		WithArgs(2, id).
		WillReturnRows(sqlmock.NewRows([]string{"stock_quantity"}).AddRow(5))

	adj, err := ledger.Decrement(context.Background(), id, 2)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if adj.Previous != 7 || adj.Current != 5 {
		t.Fatalf("unexpected adjustment: %+v", adj)
	}
	if !adj.CrossedLowStock {
		t.Fatalf("7 -> 5 with threshold 5 should cross")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDecrementRejectsWhenStockShort(t *testing.T) {
	ledger, mock := newMockLedger(t, 5)
	id := uuid.New()

	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"name", "sku", "stock_quantity"}).AddRow("Mug", "MUG-1", 3))

	_, err := ledger.Decrement(context.Background(), id, 10)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	var short *InsufficientStockError
	if !errors.As(err, &short) || short.Available != 3 || short.Requested != 10 {
		t.Fatalf("unexpected error detail: %+v", short)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no update should run: %v", err)
	}
}

func TestDecrementUnknownProduct(t *testing.T) {
	ledger, mock := newMockLedger(t, 5)
	id := uuid.New()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"name", "sku", "stock_quantity"}))

	if _, err := ledger.Decrement(context.Background(), id, 1); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetStockClampsNegative(t *testing.T) {
	ledger, mock := newMockLedger(t, 5)
	id := uuid.New()

	mock.ExpectQuery(`UPDATE products p SET stock_quantity = \$1`).
		WithArgs(0, id).
		WillReturnRows(sqlmock.NewRows([]string{"name", "sku", "previous", "stock_quantity"}).
			AddRow("Mug", "MUG-1", 8, 0))

	adj, err := ledger.SetStock(context.Background(), id, -4)
	if err != nil {
		t.Fatalf("set stock: %v", err)
	}
	if adj.Current != 0 || adj.CrossedLowStock {
		t.Fatalf("dropping to zero is not a low stock crossing: %+v", adj)
	}
}

func TestIncrementDerivesPrevious(t *testing.T) {
	ledger, mock := newMockLedger(t, 5)
	id := uuid.New()

	mock.ExpectQuery(`UPDATE products SET stock_quantity = stock_quantity \+ \$1`).
		WithArgs(10, id).
		WillReturnRows(sqlmock.NewRows([]string{"name", "sku", "stock_quantity"}).AddRow("Mug", "MUG-1", 12))

	adj, err := ledger.Increment(context.Background(), id, 10)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if adj.Previous != 2 || adj.Current != 12 || adj.CrossedLowStock {
		t.Fatalf("unexpected adjustment: %+v", adj)
	}

	if _, err := ledger.Increment(context.Background(), id, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}
}

func TestLowStockFiltersByThreshold(t *testing.T) {
	ledger, mock := newMockLedger(t, 5)
	mock.ExpectQuery(`WHERE stock_quantity > 0 AND stock_quantity <= \$1`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "sku", "stock_quantity"}).
			AddRow(uuid.NewString(), "Mug", "MUG-1", 1).
			AddRow(uuid.NewString(), "Cap", "CAP-1", 4))

	levels, err := ledger.LowStock(context.Background(), 5)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(levels) != 2 || levels[0].SKU != "MUG-1" {
		t.Fatalf("unexpected levels: %+v", levels)
	}
}

func TestCrossedLowStock(t *testing.T) {
	cases := []struct {
		previous, current int
		want              bool
	}{
		{10, 5, true},
		{6, 1, true},
		{5, 4, false}, // already at threshold
		{6, 0, false}, // sold out
		{10, 6, false},
		{3, 8, false},
	}
	for _, c := range cases {
		if got := CrossedLowStock(c.previous, c.current, 5); got != c.want {
			t.Fatalf("CrossedLowStock(%d, %d, 5) = %v, want %v", c.previous, c.current, got, c.want)
		}
	}
}
