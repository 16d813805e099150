package inventory

import (
	"context"
	"fmt"

	"github.com/georgemunganga/storefront/internal/database"
	"github.com/google/uuid"
)

type postgresLedger struct {
	db        database.Querier
	threshold int
}

// NewPostgresLedger binds a ledger to db, which is either the pool or an open
// transaction. threshold is the low stock threshold used for crossings.
func NewPostgresLedger(db database.Querier, threshold int) Ledger {
	return &postgresLedger{db: db, threshold: threshold}
}

func (l *postgresLedger) CheckAvailability(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	var stock int
	err := l.db.QueryRowContext(ctx,
		`SELECT stock_quantity FROM products WHERE id=$1`, productID).Scan(&stock)
	if database.IsNoRows(err) {
		return false, ErrProductNotFound
	}
	if err != nil {
		return false, err
	}
	return stock >= qty, nil
}

func (l *postgresLedger) Decrement(ctx context.Context, productID uuid.UUID, qty int) (*Adjustment, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	var name, sku string
	var stock int
	err := l.db.QueryRowContext(ctx,
		`SELECT name, sku, stock_quantity FROM products WHERE id=$1 FOR UPDATE`, productID).
		Scan(&name, &sku, &stock)
	if database.IsNoRows(err) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock product %s: %w", productID, err)
	}
	if stock < qty {
		return nil, &InsufficientStockError{ProductID: productID, Name: name, Available: stock, Requested: qty}
	}

	var current int
	err = l.db.QueryRowContext(ctx, `
		UPDATE products SET stock_quantity = stock_quantity - $1, updated_at = NOW()
		WHERE id = $2
		RETURNING stock_quantity`, qty, productID).Scan(&current)
	if err != nil {
		return nil, fmt.Errorf("decrement product %s: %w", productID, err)
	}
	return NewAdjustment(productID, name, sku, stock, current, l.threshold), nil
}

func (l *postgresLedger) Increment(ctx context.Context, productID uuid.UUID, qty int) (*Adjustment, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	var name, sku string
	var current int
	err := l.db.QueryRowContext(ctx, `
		UPDATE products SET stock_quantity = stock_quantity + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING name, sku, stock_quantity`, qty, productID).Scan(&name, &sku, &current)
	if database.IsNoRows(err) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("increment product %s: %w", productID, err)
	}
	return NewAdjustment(productID, name, sku, current-qty, current, l.threshold), nil
}

func (l *postgresLedger) SetStock(ctx context.Context, productID uuid.UUID, qty int) (*Adjustment, error) {
	var name, sku string
	var previous, current int
	err := l.db.QueryRowContext(ctx, `
		UPDATE products p SET stock_quantity = $1, updated_at = NOW()
		FROM (SELECT id, stock_quantity AS previous FROM products WHERE id = $2 FOR UPDATE) old
		WHERE p.id = old.id
		RETURNING p.name, p.sku, old.previous, p.stock_quantity`, clamp(qty), productID).
		Scan(&name, &sku, &previous, &current)
	if database.IsNoRows(err) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set stock for product %s: %w", productID, err)
	}
	return NewAdjustment(productID, name, sku, previous, current, l.threshold), nil
}

func (l *postgresLedger) LowStock(ctx context.Context, threshold int) ([]*StockLevel, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, name, sku, stock_quantity FROM products
		WHERE stock_quantity > 0 AND stock_quantity <= $1
		ORDER BY stock_quantity ASC, name ASC`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var levels []*StockLevel
	for rows.Next() {
		s := &StockLevel{}
		if err := rows.Scan(&s.ProductID, &s.Name, &s.SKU, &s.StockQuantity); err != nil {
			return nil, err
		}
		levels = append(levels, s)
	}
	return levels, rows.Err()
}
