package order

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stubRepo struct {
	Repository
	orders map[uuid.UUID]*Order
}

func (s *stubRepo) GetByID(_ context.Context, id uuid.UUID) (*Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func TestCanTransition(t *testing.T) {
	if !CanTransition(StatusProcessing, StatusCompleted) || !CanTransition(StatusProcessing, StatusFailed) {
		t.Fatalf("processing must reach both terminal states")
	}
	for _, from := range []Status{StatusCompleted, StatusFailed} {
		for _, to := range []Status{StatusProcessing, StatusCompleted, StatusFailed} {
			if CanTransition(from, to) {
				t.Fatalf("terminal %s must not move to %s", from, to)
			}
		}
	}
}

func TestConfirmation(t *testing.T) {
	owner := uuid.New()
	mk := func(status Status, lines int) *Order {
		o := &Order{ID: uuid.New(), UserID: owner, Status: status}
		for i := 0; i < lines; i++ {
			o.Lines = append(o.Lines, &Line{ID: uuid.New(), Quantity: 1, UnitPrice: decimal.NewFromInt(5)})
		}
		return o
	}
	processing := mk(StatusProcessing, 0)
	failed := mk(StatusFailed, 0)
	completed := mk(StatusCompleted, 2)
	empty := mk(StatusCompleted, 0)

	repo := &stubRepo{orders: map[uuid.UUID]*Order{}}
	for _, o := range []*Order{processing, failed, completed, empty} {
		repo.orders[o.ID] = o
	}
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.Confirmation(ctx, owner, processing.ID.String()); !errors.Is(err, ErrStillProcessing) {
		t.Fatalf("processing: unexpected error %v", err)
	}
	if _, err := svc.Confirmation(ctx, owner, failed.ID.String()); !errors.Is(err, ErrProcessingFailed) {
		t.Fatalf("failed: unexpected error %v", err)
	}
	if _, err := svc.Confirmation(ctx, owner, empty.ID.String()); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("empty: unexpected error %v", err)
	}
	o, err := svc.Confirmation(ctx, owner, completed.ID.String())
	if err != nil || len(o.Lines) != 2 {
		t.Fatalf("completed: unexpected result %+v, %v", o, err)
	}
	if _, err := svc.Confirmation(ctx, uuid.New(), completed.ID.String()); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("foreign order must read as not found, got %v", err)
	}
}

func TestGenerateOrderNumber(t *testing.T) {
	now := time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC)
	n := GenerateOrderNumber(now)
	if !regexp.MustCompile(`^ORD-20240309-[0-9A-F]{8}$`).MatchString(n) {
		t.Fatalf("unexpected order number: %s", n)
	}
	if GenerateOrderNumber(now) == n {
		t.Fatalf("order numbers should differ")
	}
}
