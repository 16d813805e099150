package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service defines order reads for the owning user.
type Service interface {
	// Get returns the order with its lines. Orders owned by someone else are
	// reported as ErrOrderNotFound.
	Get(ctx context.Context, userID uuid.UUID, id string) (*Order, error)

	// List returns all orders placed by the user.
	List(ctx context.Context, userID uuid.UUID) ([]*Order, error)

	// Confirmation returns a terminal, completed order with its lines. It
	// returns ErrStillProcessing, ErrProcessingFailed or ErrIncomplete otherwise.
	Confirmation(ctx context.Context, userID uuid.UUID, id string) (*Order, error)
}

type service struct {
	repo Repository
}

// NewService creates a new order service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Get(ctx context.Context, userID uuid.UUID, id string) (*Order, error) {
	oid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrOrderNotFound
	}
	o, err := s.repo.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) Confirmation(ctx context.Context, userID uuid.UUID, id string) (*Order, error) {
	o, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	switch o.Status {
	case StatusProcessing:
		return o, ErrStillProcessing
	case StatusFailed:
		return o, ErrProcessingFailed
	}
	if len(o.Lines) == 0 {
		return o, ErrIncomplete
	}
	return o, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// GenerateOrderNumber creates a human-readable order number: ORD-YYYYMMDD-XXXXXXXX
func GenerateOrderNumber(now time.Time) string {
	date := now.UTC().Format("20060102")
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", date, suffix)
}

// StatusURL is the status stream location for an order.
func StatusURL(id uuid.UUID) string { return "/api/v1/orders/" + id.String() + "/status" }

// ConfirmationURL is the confirmation read location for an order.
func ConfirmationURL(id uuid.UUID) string {
	return "/api/v1/orders/" + id.String() + "/confirmation"
}
