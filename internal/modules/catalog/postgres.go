package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/georgemunganga/storefront/internal/database"
	"github.com/google/uuid"
)

type postgresRepo struct{ db database.Querier }

func NewPostgresRepository(db database.Querier) Repository { return &postgresRepo{db: db} }

const productColumns = `id,name,description,sku,price,stock_quantity,image_url,is_active,
	discount_percentage,discount_start_date,discount_end_date,created_at,updated_at`

func (r *postgresRepo) Create(ctx context.Context, p *Product) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (id, name, description, sku, price, stock_quantity, image_url, is_active,
		                      discount_percentage, discount_start_date, discount_end_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description, p.SKU, p.Price, p.StockQuantity, p.ImageURL, p.IsActive,
		p.DiscountPercentage, p.DiscountStartsAt, p.DiscountEndsAt).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func scanProduct(scan func(...interface{}) error) (*Product, error) {
	p := &Product{}
	var starts, ends sql.NullTime
	err := scan(&p.ID, &p.Name, &p.Description, &p.SKU, &p.Price,
		&p.StockQuantity, &p.ImageURL, &p.IsActive,
		&p.DiscountPercentage, &starts, &ends, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if starts.Valid {
		p.DiscountStartsAt = &starts.Time
	}
	if ends.Valid {
		p.DiscountEndsAt = &ends.Time
	}
	return p, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
	p, err := scanProduct(row.Scan)
	if database.IsNoRows(err) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (r *postgresRepo) List(ctx context.Context, activeOnly bool) ([]*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	if activeOnly {
		query += ` WHERE is_active=true`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *postgresRepo) Update(ctx context.Context, p *Product) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name=$1, description=$2, sku=$3, price=$4, image_url=$5, is_active=$6,
		    discount_percentage=$7, discount_start_date=$8, discount_end_date=$9, updated_at=NOW()
		WHERE id=$10`,
		p.Name, p.Description, p.SKU, p.Price, p.ImageURL, p.IsActive,
		p.DiscountPercentage, p.DiscountStartsAt, p.DiscountEndsAt, p.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}
