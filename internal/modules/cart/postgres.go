package cart

import (
	"context"
	"fmt"

	"github.com/georgemunganga/storefront/internal/database"
	"github.com/google/uuid"
)

type postgresRepo struct{ db database.Querier }

// NewPostgresRepository binds the cart repository to the pool or a transaction.
func NewPostgresRepository(db database.Querier) Repository { return &postgresRepo{db: db} }

const lineSelect = `
	SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at, c.updated_at,
	       p.id, p.name, p.sku, p.price, p.stock_quantity, p.is_active
	FROM cart_items c
	JOIN products p ON p.id = c.product_id`

func scanLine(scan func(...interface{}) error) (*Line, error) {
	l := &Line{Product: &ProductSnapshot{}}
	err := scan(&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt,
		&l.Product.ID, &l.Product.Name, &l.Product.SKU, &l.Product.Price,
		&l.Product.StockQuantity, &l.Product.IsActive)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *postgresRepo) ListWithProducts(ctx context.Context, userID uuid.UUID) ([]*Line, error) {
	return r.list(ctx, lineSelect+` WHERE c.user_id=$1 ORDER BY c.seq ASC`, userID)
}

func (r *postgresRepo) ListForFulfillment(ctx context.Context, userID uuid.UUID) ([]*Line, error) {
	return r.list(ctx, lineSelect+` WHERE c.user_id=$1 ORDER BY c.seq ASC FOR UPDATE OF c`, userID)
}

func (r *postgresRepo) list(ctx context.Context, query string, userID uuid.UUID) ([]*Line, error) {
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	defer rows.Close()

	var lines []*Line
	for rows.Next() {
		l, err := scanLine(rows.Scan)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *postgresRepo) GetLine(ctx context.Context, lineID uuid.UUID) (*Line, error) {
	l, err := scanLine(r.db.QueryRowContext(ctx, lineSelect+` WHERE c.id=$1`, lineID).Scan)
	if database.IsNoRows(err) {
		return nil, ErrLineNotFound
	}
	return l, err
}

func (r *postgresRepo) FindLine(ctx context.Context, userID, productID uuid.UUID) (*Line, error) {
	l, err := scanLine(r.db.QueryRowContext(ctx,
		lineSelect+` WHERE c.user_id=$1 AND c.product_id=$2`, userID, productID).Scan)
	if database.IsNoRows(err) {
		return nil, ErrLineNotFound
	}
	return l, err
}

func (r *postgresRepo) Upsert(ctx context.Context, userID, productID uuid.UUID, qty int) (*Line, error) {
	l := &Line{UserID: userID, ProductID: productID, Quantity: qty}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO cart_items (id, user_id, product_id, quantity)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		uuid.New(), userID, productID, qty).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}
	return l, nil
}

func (r *postgresRepo) UpdateQuantity(ctx context.Context, lineID uuid.UUID, qty int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity=$1, updated_at=NOW() WHERE id=$2`, qty, lineID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, lineID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id=$1`, lineID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (r *postgresRepo) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}
	return res.RowsAffected()
}
