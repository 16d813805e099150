package order

import (
	"context"
	"fmt"
	"time"

	"github.com/georgemunganga/storefront/internal/database"
	"github.com/google/uuid"
)

type postgresRepo struct{ db database.Querier }

// NewPostgresRepository binds the order repository to the pool or a transaction.
func NewPostgresRepository(db database.Querier) Repository { return &postgresRepo{db: db} }

const orderColumns = `id,user_id,order_number,status,subtotal,tax,total,
	shipping_name,shipping_email,shipping_phone,shipping_address,shipping_city,shipping_state,shipping_postal_code,shipping_country,
	billing_name,billing_email,billing_phone,billing_address,billing_city,billing_state,billing_postal_code,billing_country,
	failure_reason,created_at,updated_at`

func (r *postgresRepo) Create(ctx context.Context, o *Order) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO orders
		  (id, user_id, order_number, status, subtotal, tax, total,
		   shipping_name, shipping_email, shipping_phone, shipping_address, shipping_city,
		   shipping_state, shipping_postal_code, shipping_country,
		   billing_name, billing_email, billing_phone, billing_address, billing_city,
		   billing_state, billing_postal_code, billing_country)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
		RETURNING created_at, updated_at`,
		o.ID, o.UserID, o.OrderNumber, o.Status, o.Subtotal, o.Tax, o.Total,
		o.Shipping.Name, o.Shipping.Email, o.Shipping.Phone, o.Shipping.Address, o.Shipping.City,
		o.Shipping.State, o.Shipping.PostalCode, o.Shipping.Country,
		o.Billing.Name, o.Billing.Email, o.Billing.Phone, o.Billing.Address, o.Billing.City,
		o.Billing.State, o.Billing.PostalCode, o.Billing.Country).
		Scan(&o.CreatedAt, &o.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return ErrDuplicateNumber
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func scanOrder(scan func(...interface{}) error) (*Order, error) {
	o := &Order{}
	err := scan(&o.ID, &o.UserID, &o.OrderNumber, &o.Status, &o.Subtotal, &o.Tax, &o.Total,
		&o.Shipping.Name, &o.Shipping.Email, &o.Shipping.Phone, &o.Shipping.Address, &o.Shipping.City,
		&o.Shipping.State, &o.Shipping.PostalCode, &o.Shipping.Country,
		&o.Billing.Name, &o.Billing.Email, &o.Billing.Phone, &o.Billing.Address, &o.Billing.City,
		&o.Billing.State, &o.Billing.PostalCode, &o.Billing.Country,
		&o.FailureReason, &o.CreatedAt, &o.UpdatedAt)
	if database.IsNoRows(err) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id=$1`, id).Scan)
	if err != nil {
		return nil, err
	}
	o.Lines, err = r.listLines(ctx, o.ID)
	return o, err
}

func (r *postgresRepo) GetStatus(ctx context.Context, id uuid.UUID) (Status, error) {
	var s Status
	err := r.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id=$1`, id).Scan(&s)
	if database.IsNoRows(err) {
		return "", ErrOrderNotFound
	}
	return s, err
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *postgresRepo) ListStale(ctx context.Context, cutoff time.Time) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+`
		FROM orders WHERE status=$1 AND created_at < $2 ORDER BY created_at ASC`, StatusProcessing, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *postgresRepo) LockForFulfillment(ctx context.Context, id uuid.UUID) (*Order, error) {
	return scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id).Scan)
}

func (r *postgresRepo) AddLine(ctx context.Context, l *Line) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO order_items
		  (id, order_id, product_id, product_name, product_sku, unit_price, quantity, line_total)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at`,
		l.ID, l.OrderID, l.ProductID, l.ProductName, l.ProductSKU, l.UnitPrice, l.Quantity, l.LineTotal).
		Scan(&l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order_item: %w", err)
	}
	return nil
}

func (r *postgresRepo) Transition(ctx context.Context, id uuid.UUID, to Status, reason string) (bool, error) {
	if !CanTransition(StatusProcessing, to) {
		return false, ErrInvalidTransition
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status=$1, failure_reason=$2, updated_at=NOW()
		WHERE id=$3 AND status=$4`, to, reason, id, StatusProcessing)
	if err != nil {
		return false, fmt.Errorf("transition order %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *postgresRepo) listLines(ctx context.Context, orderID uuid.UUID) ([]*Line, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, COALESCE(product_id, '00000000-0000-0000-0000-000000000000'),
		       product_name, product_sku, unit_price, quantity, line_total, created_at
		FROM order_items WHERE order_id=$1 ORDER BY seq ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []*Line
	for rows.Next() {
		l := &Line{}
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.ProductSKU,
			&l.UnitPrice, &l.Quantity, &l.LineTotal, &l.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
