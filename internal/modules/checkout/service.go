package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgemunganga/storefront/internal/modules/cart"
	"github.com/georgemunganga/storefront/internal/modules/fulfillment"
	"github.com/georgemunganga/storefront/internal/modules/inventory"
	"github.com/georgemunganga/storefront/internal/modules/notify"
	"github.com/georgemunganga/storefront/internal/modules/order"
	"github.com/georgemunganga/storefront/internal/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const orderNumberAttempts = 3

// Service is the synchronous request-path half of checkout. It never waits
// for fulfillment and never touches stock.
type Service interface {
	Summary(ctx context.Context, userID uuid.UUID) (*Summary, error)
	CreateOrder(ctx context.Context, userID uuid.UUID, req Request) (*order.Order, error)
}

// Config holds checkout pricing and address defaults.
type Config struct {
	TaxRate        decimal.Decimal
	DefaultCountry string
}

type service struct {
	carts    cart.Repository
	orders   order.Repository
	queue    fulfillment.Enqueuer
	failures fulfillment.FailureLog
	notifier notify.Notifier
	cfg      Config
	log      zerolog.Logger
}

func NewService(
	carts cart.Repository,
	orders order.Repository,
	queue fulfillment.Enqueuer,
	failures fulfillment.FailureLog,
	notifier notify.Notifier,
	cfg Config,
	logger zerolog.Logger,
) Service {
	return &service{
		carts:    carts,
		orders:   orders,
		queue:    queue,
		failures: failures,
		notifier: notifier,
		cfg:      cfg,
		log:      logger.With().Str("component", "checkout").Logger(),
	}
}

func (s *service) Summary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	lines, err := s.carts.ListWithProducts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, cart.ErrEmptyCart
	}
	return &Summary{Lines: lines, Amounts: cart.Totals(lines, s.cfg.TaxRate), Count: cart.Count(lines)}, nil
}

func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID, req Request) (*order.Order, error) {
	o, err := s.createOrder(ctx, userID, req)
	observability.RecordCheckout(checkoutResult(err))
	return o, err
}

func (s *service) createOrder(ctx context.Context, userID uuid.UUID, req Request) (*order.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lines, err := s.carts.ListWithProducts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, cart.ErrEmptyCart
	}
	for _, l := range lines {
		if !l.Product.IsActive {
			return nil, fmt.Errorf("%s: %w", l.Product.Name, inventory.ErrProductNotFound)
		}
		if l.Quantity > l.Product.StockQuantity {
			return nil, &inventory.InsufficientStockError{
				ProductID: l.ProductID,
				Name:      l.Product.Name,
				Available: l.Product.StockQuantity,
				Requested: l.Quantity,
			}
		}
	}

	amounts := cart.Totals(lines, s.cfg.TaxRate)
	shipping, billing := req.Addresses(s.cfg.DefaultCountry)
	o := &order.Order{
		UserID:   userID,
		Status:   order.StatusProcessing,
		Subtotal: amounts.Subtotal,
		Tax:      amounts.Tax,
		Total:    amounts.Total,
		Shipping: shipping,
		Billing:  billing,
	}

	for i := 0; i < orderNumberAttempts; i++ {
		o.ID = uuid.New()
		o.OrderNumber = order.GenerateOrderNumber(time.Now())
		err = s.orders.Create(ctx, o)
		if !errors.Is(err, order.ErrDuplicateNumber) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	log := s.log.With().Str("order_id", o.ID.String()).Str("user_id", userID.String()).Logger()
	if err := s.queue.Enqueue(ctx, fulfillment.NewTask(o.ID, userID)); err != nil {
		return o, s.abandon(ctx, o, err, log)
	}

	log.Info().Str("order_number", o.OrderNumber).Str("total", o.Total.StringFixed(2)).Msg("order accepted")
	return o, nil
}

// abandon fails an order whose task never reached the queue.
func (s *service) abandon(ctx context.Context, o *order.Order, cause error, log zerolog.Logger) error {
	reason := fmt.Errorf("%w: %v", fulfillment.ErrTaskDelivery, cause)

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	won, err := s.orders.Transition(dctx, o.ID, order.StatusFailed, reason.Error())
	if err != nil {
		log.Error().Err(err).Msg("could not fail undeliverable order")
	}
	if won {
		o.Status = order.StatusFailed
		o.FailureReason = reason.Error()
		s.notifier.OrderFailed(dctx, notify.OrderFailedEvent{
			OrderID: o.ID, UserID: o.UserID, Reason: reason.Error(), At: time.Now().UTC(),
		})
	}
	if err := s.failures.Record(dctx, &fulfillment.Failure{
		OrderID: o.ID, UserID: o.UserID, Reason: reason.Error(),
	}); err != nil {
		log.Error().Err(err).Msg("could not record fulfillment failure")
	}
	log.Error().Err(reason).Msg("fulfillment task not enqueued")
	return reason
}

func checkoutResult(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return "accepted"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, cart.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, inventory.ErrInsufficientStock), errors.Is(err, inventory.ErrProductNotFound):
		return "rejected"
	case errors.Is(err, fulfillment.ErrTaskDelivery):
		return "delivery_failed"
	default:
		return "error"
	}
}
