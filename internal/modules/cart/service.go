package cart

import (
	"context"
	"errors"

	"github.com/georgemunganga/storefront/internal/modules/catalog"
	"github.com/georgemunganga/storefront/internal/modules/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductReader is the catalog lookup the cart needs.
type ProductReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

// Service defines cart operations for an authenticated user.
type Service interface {
	View(ctx context.Context, userID uuid.UUID) (*Cart, error)
	Add(ctx context.Context, userID uuid.UUID, productID string, qty int) (*Line, error)
	Update(ctx context.Context, userID uuid.UUID, lineID string, qty int) (*Line, error)
	Remove(ctx context.Context, userID uuid.UUID, lineID string) error
}

type service struct {
	repo     Repository
	products ProductReader
	taxRate  decimal.Decimal
}

// NewService creates a cart service.
func NewService(repo Repository, products ProductReader, taxRate decimal.Decimal) Service {
	return &service{repo: repo, products: products, taxRate: taxRate}
}

func (s *service) View(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	lines, err := s.repo.ListWithProducts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []*Line{}
	}
	return &Cart{Lines: lines, Amounts: Totals(lines, s.taxRate), Count: Count(lines)}, nil
}

func (s *service) Add(ctx context.Context, userID uuid.UUID, productID string, qty int) (*Line, error) {
	if qty < 1 || qty > MaxQuantity {
		return nil, ErrInvalidQuantity
	}
	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, inventory.ErrProductNotFound
	}
	p, err := s.products.GetByID(ctx, pid)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return nil, inventory.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, inventory.ErrProductNotFound
	}
	if !p.InStock() {
		return nil, ErrOutOfStock
	}

	existing, err := s.repo.FindLine(ctx, userID, pid)
	switch {
	case err == nil:
		// Merging never fails on stock; it is capped at what is available.
		qty = existing.Quantity + qty
		if qty > p.StockQuantity {
			qty = p.StockQuantity
		}
		if qty > MaxQuantity {
			qty = MaxQuantity
		}
	case errors.Is(err, ErrLineNotFound):
		if qty > p.StockQuantity {
			return nil, &inventory.InsufficientStockError{
				ProductID: p.ID, Name: p.Name, Available: p.StockQuantity, Requested: qty,
			}
		}
	default:
		return nil, err
	}

	line, err := s.repo.Upsert(ctx, userID, pid, qty)
	if err != nil {
		return nil, err
	}
	line.Product = snapshot(p)
	return line, nil
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, lineID string, qty int) (*Line, error) {
	if qty < 1 || qty > MaxQuantity {
		return nil, ErrInvalidQuantity
	}
	line, err := s.ownedLine(ctx, userID, lineID)
	if err != nil {
		return nil, err
	}
	if qty > line.Product.StockQuantity {
		return nil, &inventory.InsufficientStockError{
			ProductID: line.ProductID, Name: line.Product.Name,
			Available: line.Product.StockQuantity, Requested: qty,
		}
	}
	if err := s.repo.UpdateQuantity(ctx, line.ID, qty); err != nil {
		return nil, err
	}
	line.Quantity = qty
	return line, nil
}

func (s *service) Remove(ctx context.Context, userID uuid.UUID, lineID string) error {
	line, err := s.ownedLine(ctx, userID, lineID)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, line.ID)
}

func (s *service) ownedLine(ctx context.Context, userID uuid.UUID, lineID string) (*Line, error) {
	id, err := uuid.Parse(lineID)
	if err != nil {
		return nil, ErrLineNotFound
	}
	line, err := s.repo.GetLine(ctx, id)
	if err != nil {
		return nil, err
	}
	if line.UserID != userID {
		return nil, ErrNotOwner
	}
	return line, nil
}

func snapshot(p *catalog.Product) *ProductSnapshot {
	return &ProductSnapshot{
		ID:            p.ID,
		Name:          p.Name,
		SKU:           p.SKU,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		IsActive:      p.IsActive,
	}
}
