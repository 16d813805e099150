package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/georgemunganga/storefront/internal/modules/notify"
	"github.com/google/uuid"
)

type fakeLedger struct {
	Ledger
	adj       *Adjustment
	threshold int
}

func (f *fakeLedger) SetStock(_ context.Context, id uuid.UUID, qty int) (*Adjustment, error) {
	f.adj.ProductID = id
	return f.adj, nil
}

func (f *fakeLedger) LowStock(_ context.Context, threshold int) ([]*StockLevel, error) {
	f.threshold = threshold
	return nil, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	lowStock []notify.LowStockEvent
}

func (r *recordingNotifier) LowStock(_ context.Context, e notify.LowStockEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lowStock = append(r.lowStock, e)
}

func (r *recordingNotifier) OrderFailed(context.Context, notify.OrderFailedEvent) {}

func TestSetStockNotifiesOnCrossing(t *testing.T) {
	rec := &recordingNotifier{}
	ledger := &fakeLedger{adj: &Adjustment{Previous: 9, Current: 2, Threshold: 5, CrossedLowStock: true}}
	svc := NewService(ledger, rec, 5)

	if _, err := svc.SetStock(context.Background(), uuid.NewString(), 2); err != nil {
		t.Fatalf("set stock: %v", err)
	}
	if len(rec.lowStock) != 1 || rec.lowStock[0].Stock != 2 {
		t.Fatalf("expected one low stock event, got %+v", rec.lowStock)
	}

	ledger.adj = &Adjustment{Previous: 2, Current: 1, Threshold: 5}
	if _, err := svc.SetStock(context.Background(), uuid.NewString(), 1); err != nil {
		t.Fatalf("set stock: %v", err)
	}
	if len(rec.lowStock) != 1 {
		t.Fatalf("no crossing should not notify, got %d events", len(rec.lowStock))
	}
}

func TestServiceRejectsBadProductID(t *testing.T) {
	svc := NewService(&fakeLedger{}, notify.Nop{}, 5)
	if _, err := svc.SetStock(context.Background(), "not-a-uuid", 1); err != ErrProductNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLowStockUsesDefaultThreshold(t *testing.T) {
	ledger := &fakeLedger{}
	svc := NewService(ledger, notify.Nop{}, 7)
	if _, err := svc.LowStock(context.Background(), 0); err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if ledger.threshold != 7 {
		t.Fatalf("expected default threshold 7, got %d", ledger.threshold)
	}
}
