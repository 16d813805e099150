package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service defines catalog business logic.
type Service interface {
	CreateProduct(ctx context.Context, req ProductRequest) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, activeOnly bool) ([]*Product, error)
	UpdateProduct(ctx context.Context, id string, req ProductRequest) (*Product, error)
}

// ErrInvalidProduct wraps every validation failure of a ProductRequest.
var ErrInvalidProduct = errors.New("invalid product")

// ProductRequest holds the data for creating or updating a product.
type ProductRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	SKU           string          `json:"sku"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	ImageURL      string          `json:"image_url"`
	IsActive      *bool           `json:"is_active,omitempty"`

	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	DiscountStartsAt   *time.Time       `json:"discount_start_date,omitempty"`
	DiscountEndsAt     *time.Time       `json:"discount_end_date,omitempty"`
}

var hundred = decimal.NewFromInt(100)

func (r ProductRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if strings.TrimSpace(r.SKU) == "" {
		return fmt.Errorf("%w: sku is required", ErrInvalidProduct)
	}
	if r.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if d := r.DiscountPercentage; d != nil && (d.IsNegative() || d.GreaterThan(hundred)) {
		return fmt.Errorf("%w: discount_percentage must be between 0 and 100", ErrInvalidProduct)
	}
	if r.DiscountStartsAt != nil && r.DiscountEndsAt != nil && r.DiscountEndsAt.Before(*r.DiscountStartsAt) {
		return fmt.Errorf("%w: discount_end_date must not precede discount_start_date", ErrInvalidProduct)
	}
	return nil
}

func (r ProductRequest) applyDiscount(p *Product) {
	p.DiscountPercentage = decimal.NullDecimal{}
	if r.DiscountPercentage != nil {
		p.DiscountPercentage = decimal.NewNullDecimal(r.DiscountPercentage.Round(2))
	}
	p.DiscountStartsAt = r.DiscountStartsAt
	p.DiscountEndsAt = r.DiscountEndsAt
}

type service struct{ repo Repository }

func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) CreateProduct(ctx context.Context, req ProductRequest) (*Product, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	stock := req.StockQuantity
	if stock < 0 {
		stock = 0
	}
	p := &Product{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		SKU:           strings.TrimSpace(req.SKU),
		Price:         req.Price.Round(2),
		StockQuantity: stock,
		ImageURL:      req.ImageURL,
		IsActive:      req.IsActive == nil || *req.IsActive,
	}
	req.applyDiscount(p)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrProductNotFound
	}
	return s.repo.GetByID(ctx, uid)
}

func (s *service) ListProducts(ctx context.Context, activeOnly bool) ([]*Product, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *service) UpdateProduct(ctx context.Context, id string, req ProductRequest) (*Product, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(req.Name)
	p.Description = req.Description
	p.SKU = strings.TrimSpace(req.SKU)
	p.Price = req.Price.Round(2)
	p.ImageURL = req.ImageURL
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	req.applyDiscount(p)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
