package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LowStockEvent is raised when a stock adjustment moves a product from above
// the low stock threshold to at-or-below it while stock stays positive.
type LowStockEvent struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku"`
	Previous  int       `json:"previous_stock"`
	Stock     int       `json:"stock"`
	Threshold int       `json:"threshold"`
	At        time.Time `json:"at"`
}

// OrderFailedEvent is raised when an order reaches the failed status.
type OrderFailedEvent struct {
	OrderID  uuid.UUID `json:"order_id"`
	UserID   uuid.UUID `json:"user_id"`
	Reason   string    `json:"reason"`
	Attempts int       `json:"attempts,omitempty"`
	At       time.Time `json:"at"`
}

// Notifier is fire-and-forget: implementations never block the caller on
// delivery and never report failures back.
type Notifier interface {
	LowStock(ctx context.Context, e LowStockEvent)
	OrderFailed(ctx context.Context, e OrderFailedEvent)
}

type logNotifier struct{ log zerolog.Logger }

// NewLogNotifier writes every event to the structured log.
func NewLogNotifier(logger zerolog.Logger) Notifier {
	return &logNotifier{log: logger.With().Str("component", "notify").Logger()}
}

func (n *logNotifier) LowStock(_ context.Context, e LowStockEvent) {
	n.log.Warn().
		Str("product_id", e.ProductID.String()).
		Str("sku", e.SKU).
		Int("previous_stock", e.Previous).
		Int("stock", e.Stock).
		Int("threshold", e.Threshold).
		Msg("low stock")
}

func (n *logNotifier) OrderFailed(_ context.Context, e OrderFailedEvent) {
	n.log.Error().
		Str("order_id", e.OrderID.String()).
		Str("user_id", e.UserID.String()).
		Int("attempts", e.Attempts).
		Str("reason", e.Reason).
		Msg("order failed")
}

// Multi fans every event out to all notifiers.
type Multi []Notifier

func (m Multi) LowStock(ctx context.Context, e LowStockEvent) {
	for _, n := range m {
		n.LowStock(ctx, e)
	}
}

func (m Multi) OrderFailed(ctx context.Context, e OrderFailedEvent) {
	for _, n := range m {
		n.OrderFailed(ctx, e)
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) LowStock(context.Context, LowStockEvent)       {}
func (Nop) OrderFailed(context.Context, OrderFailedEvent) {}
