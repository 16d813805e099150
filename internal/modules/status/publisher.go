package status

import (
	"context"
	"time"

	"github.com/georgemunganga/storefront/internal/modules/order"
	"github.com/google/uuid"
)

// Timeout is pushed when the wait budget runs out. The order may still
// complete later.
const Timeout = "timeout"

// Event is one status frame.
type Event struct {
	Status  string    `json:"status"`
	OrderID uuid.UUID `json:"order_id"`
}

// Reader is the order lookup the publisher polls.
type Reader interface {
	GetStatus(ctx context.Context, id uuid.UUID) (order.Status, error)
}

// Config sets the poll cadence and how many polls to make before giving up.
type Config struct {
	PollInterval time.Duration
	MaxPolls     int
}

// Publisher bridges order status changes to a long-lived client by polling.
type Publisher struct {
	reader Reader
	cfg    Config
}

func NewPublisher(reader Reader, cfg Config) *Publisher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = 60
	}
	return &Publisher{reader: reader, cfg: cfg}
}

// Stream emits the current status once per poll. It returns after emitting a
// terminal status or the timeout event, when emit fails, or with ctx.Err()
// once the client goes away.
func (p *Publisher) Stream(ctx context.Context, orderID uuid.UUID, emit func(Event) error) error {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for poll := 0; poll < p.cfg.MaxPolls; poll++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s, err := p.reader.GetStatus(ctx, orderID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if err := emit(Event{Status: string(s), OrderID: orderID}); err != nil {
			return err
		}
		if s.Terminal() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return emit(Event{Status: Timeout, OrderID: orderID})
}
