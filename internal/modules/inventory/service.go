package inventory

import (
	"context"
	"time"

	"github.com/georgemunganga/storefront/internal/modules/notify"
	"github.com/georgemunganga/storefront/internal/observability"
	"github.com/google/uuid"
)

// Service exposes stock administration outside the fulfillment path.
type Service interface {
	CheckAvailability(ctx context.Context, productID string, qty int) (bool, error)
	Restock(ctx context.Context, productID string, qty int) (*Adjustment, error)
	SetStock(ctx context.Context, productID string, qty int) (*Adjustment, error)
	LowStock(ctx context.Context, threshold int) ([]*StockLevel, error)
}

type service struct {
	ledger    Ledger
	notifier  notify.Notifier
	threshold int
}

// NewService creates the inventory service. threshold is the default used by
// LowStock when the caller passes a non-positive value.
func NewService(ledger Ledger, notifier notify.Notifier, threshold int) Service {
	return &service{ledger: ledger, notifier: notifier, threshold: threshold}
}

func (s *service) CheckAvailability(ctx context.Context, productID string, qty int) (bool, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return false, ErrProductNotFound
	}
	if qty <= 0 {
		return false, ErrInvalidQuantity
	}
	return s.ledger.CheckAvailability(ctx, id, qty)
}

func (s *service) Restock(ctx context.Context, productID string, qty int) (*Adjustment, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return nil, ErrProductNotFound
	}
	adj, err := s.ledger.Increment(ctx, id, qty)
	if err != nil {
		return nil, err
	}
	return adj, nil
}

func (s *service) SetStock(ctx context.Context, productID string, qty int) (*Adjustment, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return nil, ErrProductNotFound
	}
	adj, err := s.ledger.SetStock(ctx, id, qty)
	if err != nil {
		return nil, err
	}
	NotifyCrossing(ctx, s.notifier, adj)
	return adj, nil
}

func (s *service) LowStock(ctx context.Context, threshold int) ([]*StockLevel, error) {
	if threshold <= 0 {
		threshold = s.threshold
	}
	return s.ledger.LowStock(ctx, threshold)
}

// NotifyCrossing fires the low stock notification for adj if it crossed the
// threshold. Call it only once the adjustment is committed.
func NotifyCrossing(ctx context.Context, n notify.Notifier, adj *Adjustment) {
	if adj == nil || !adj.CrossedLowStock {
		return
	}
	observability.RecordLowStockCrossing()
	n.LowStock(ctx, notify.LowStockEvent{
		ProductID: adj.ProductID,
		Name:      adj.Name,
		SKU:       adj.SKU,
		Previous:  adj.Previous,
		Stock:     adj.Current,
		Threshold: adj.Threshold,
		At:        time.Now().UTC(),
	})
}
