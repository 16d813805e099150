package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgemunganga/storefront/internal/modules/cart"
	"github.com/georgemunganga/storefront/internal/modules/inventory"
	"github.com/georgemunganga/storefront/internal/modules/notify"
	"github.com/georgemunganga/storefront/internal/modules/order"
	"github.com/georgemunganga/storefront/internal/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Outcome is the result of one processed task.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Config is the retry policy applied by Handle.
type Config struct {
	Attempts       int
	AttemptTimeout time.Duration
	RetryDelay     time.Duration
}

// DefaultConfig is three attempts of sixty seconds each.
func DefaultConfig() Config {
	return Config{Attempts: 3, AttemptTimeout: 60 * time.Second, RetryDelay: time.Second}
}

// Worker turns a processing order into a completed or failed one.
type Worker struct {
	store    Store
	failures FailureLog
	notifier notify.Notifier
	cfg      Config
	log      zerolog.Logger
}

func NewWorker(store Store, failures FailureLog, notifier notify.Notifier, cfg Config, logger zerolog.Logger) *Worker {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultConfig().AttemptTimeout
	}
	return &Worker{
		store:    store,
		failures: failures,
		notifier: notifier,
		cfg:      cfg,
		log:      logger.With().Str("component", "fulfillment").Logger(),
	}
}

// Budget is the longest Handle can keep an order processing.
func (w *Worker) Budget() time.Duration {
	return time.Duration(w.cfg.Attempts)*w.cfg.AttemptTimeout + time.Duration(w.cfg.Attempts-1)*w.cfg.RetryDelay
}

// businessFailure reports errors that retrying cannot fix.
func businessFailure(err error) bool {
	return errors.Is(err, cart.ErrEmptyCart) ||
		errors.Is(err, inventory.ErrInsufficientStock) ||
		errors.Is(err, inventory.ErrProductNotFound)
}

// Process runs a single attempt. A business failure returns OutcomeFailed
// with the cause; the order is already failed when it returns. Any other
// error comes back with an empty outcome and leaves the order processing.
func (w *Worker) Process(ctx context.Context, task Task) (Outcome, error) {
	var (
		outcome   Outcome
		cause     error
		crossings []*inventory.Adjustment
	)

	err := w.store.InTx(ctx, func(uow UnitOfWork) error {
		crossings = crossings[:0]

		o, err := uow.Orders().LockForFulfillment(ctx, task.OrderID)
		if err != nil {
			return err
		}
		if o.Status != order.StatusProcessing {
			outcome = OutcomeSkipped
			return nil
		}

		lines, err := uow.Carts().ListForFulfillment(ctx, task.UserID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			// Only the status change is committed.
			if _, err := uow.Orders().Transition(ctx, o.ID, order.StatusFailed, cart.ErrEmptyCart.Error()); err != nil {
				return err
			}
			outcome, cause = OutcomeFailed, cart.ErrEmptyCart
			return nil
		}

		for _, l := range lines {
			adj, err := uow.Ledger().Decrement(ctx, l.ProductID, l.Quantity)
			if err != nil {
				return err
			}
			if adj.CrossedLowStock {
				crossings = append(crossings, adj)
			}
			line := &order.Line{
				ID:          uuid.New(),
				OrderID:     o.ID,
				ProductID:   l.ProductID,
				ProductName: adj.Name,
				ProductSKU:  adj.SKU,
				UnitPrice:   l.Product.Price,
				Quantity:    l.Quantity,
				LineTotal:   l.Subtotal(),
			}
			if err := uow.Orders().AddLine(ctx, line); err != nil {
				return err
			}
		}

		cleared, err := uow.Carts().Clear(ctx, task.UserID)
		if err != nil {
			return err
		}
		if cleared != int64(len(lines)) {
			// Another order consumed these lines first.
			return fmt.Errorf("cart changed during fulfillment (read %d lines, cleared %d): %w",
				len(lines), cleared, cart.ErrEmptyCart)
		}
		won, err := uow.Orders().Transition(ctx, o.ID, order.StatusCompleted, "")
		if err != nil {
			return err
		}
		if !won {
			return fmt.Errorf("complete order %s: %w", o.ID, order.ErrInvalidTransition)
		}
		outcome = OutcomeCompleted
		return nil
	})

	log := w.log.With().Str("order_id", task.OrderID.String()).Str("user_id", task.UserID.String()).Logger()
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		log.Warn().Msg("task for unknown order discarded")
		return OutcomeSkipped, nil
	case err != nil && businessFailure(err):
		// Partial writes are rolled back; record the terminal state outside the transaction.
		if ferr := w.fail(ctx, task, err.Error(), 0); ferr != nil {
			return "", ferr
		}
		return OutcomeFailed, err
	case err != nil:
		return "", err
	}

	switch outcome {
	case OutcomeSkipped:
		log.Warn().Str("outcome", string(outcome)).Msg("order already left processing, task discarded")
	case OutcomeFailed:
		w.notifyFailed(ctx, task, cause.Error(), 0)
	case OutcomeCompleted:
		for _, adj := range crossings {
			inventory.NotifyCrossing(ctx, w.notifier, adj)
		}
	}
	return outcome, cause
}

// Handle applies the retry policy to task. It always leaves the order in a
// terminal state unless another delivery already did; the returned error is
// the reason the order was forced to failed.
func (w *Worker) Handle(ctx context.Context, task Task) error {
	start := time.Now()
	log := w.log.With().Str("order_id", task.OrderID.String()).Str("user_id", task.UserID.String()).Logger()

	var lastErr error
	attempt := 0
	for attempt < w.cfg.Attempts {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, w.cfg.AttemptTimeout)
		outcome, err := w.Process(attemptCtx, task)
		timedOut := errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
		cancel()

		if outcome != "" {
			observability.RecordFulfillmentAttempt(string(outcome))
			observability.RecordFulfillmentOutcome(string(outcome), time.Since(start))
			ev := log.Info()
			if err != nil {
				ev = log.Warn().Str("reason", err.Error())
			}
			ev.Int("attempt", attempt).Str("outcome", string(outcome)).Msg("fulfillment finished")
			return nil
		}

		if timedOut {
			err = fmt.Errorf("%w: %v", ErrTaskTimeout, err)
		}
		lastErr = err
		observability.RecordFulfillmentAttempt("error")
		log.Warn().Err(err).Int("attempt", attempt).Msg("fulfillment attempt failed")

		if attempt < w.cfg.Attempts && w.cfg.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				lastErr = fmt.Errorf("%w: %v", ErrTaskDelivery, ctx.Err())
				attempt = w.cfg.Attempts
			case <-time.After(w.cfg.RetryDelay):
			}
		}
	}

	final := lastErr
	if !errors.Is(final, ErrTaskTimeout) && !errors.Is(final, ErrTaskDelivery) {
		final = fmt.Errorf("%w: %v", ErrTaskDelivery, lastErr)
	}
	final = fmt.Errorf("gave up after %d attempts: %w", attempt, final)

	// The caller's context may be the one that expired.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := w.fail(fctx, task, final.Error(), attempt); err != nil {
		log.Error().Err(err).Msg("could not force order to failed")
	}
	if err := w.failures.Record(fctx, &Failure{
		OrderID:  task.OrderID,
		UserID:   task.UserID,
		Attempts: attempt,
		Reason:   final.Error(),
	}); err != nil {
		log.Error().Err(err).Msg("could not record fulfillment failure")
	}

	observability.RecordFulfillmentOutcome("abandoned", time.Since(start))
	log.Error().Err(final).Int("attempts", attempt).Str("outcome", string(OutcomeFailed)).
		Msg("fulfillment abandoned, order forced to failed")
	return final
}

// fail moves the order to failed if it is still processing and notifies only
// when this call made the transition.
func (w *Worker) fail(ctx context.Context, task Task, reason string, attempts int) error {
	won, err := w.store.Orders().Transition(ctx, task.OrderID, order.StatusFailed, reason)
	if err != nil {
		return err
	}
	if won {
		w.notifyFailed(ctx, task, reason, attempts)
	}
	return nil
}

func (w *Worker) notifyFailed(ctx context.Context, task Task, reason string, attempts int) {
	w.notifier.OrderFailed(ctx, notify.OrderFailedEvent{
		OrderID:  task.OrderID,
		UserID:   task.UserID,
		Reason:   reason,
		Attempts: attempts,
		At:       time.Now().UTC(),
	})
}
