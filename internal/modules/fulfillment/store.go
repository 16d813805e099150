package fulfillment

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/georgemunganga/storefront/internal/database"
	"github.com/georgemunganga/storefront/internal/modules/cart"
	"github.com/georgemunganga/storefront/internal/modules/inventory"
	"github.com/georgemunganga/storefront/internal/modules/order"
	"github.com/google/uuid"
)

// UnitOfWork exposes repositories bound to one open transaction.
type UnitOfWork interface {
	Orders() order.Repository
	Carts() cart.Repository
	Ledger() inventory.Ledger
}

// Store runs fulfillment transactions. Orders is bound outside any
// transaction and is used for terminal writes after a rollback.
type Store interface {
	InTx(ctx context.Context, fn func(UnitOfWork) error) error
	Orders() order.Repository
}

type postgresStore struct {
	db        *sql.DB
	threshold int
}

// NewPostgresStore creates a Store over db. threshold is the low stock
// threshold the ledger reports crossings against.
func NewPostgresStore(db *sql.DB, threshold int) Store {
	return &postgresStore{db: db, threshold: threshold}
}

func (s *postgresStore) InTx(ctx context.Context, fn func(UnitOfWork) error) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&postgresUnit{tx: tx, threshold: s.threshold})
	})
}

func (s *postgresStore) Orders() order.Repository { return order.NewPostgresRepository(s.db) }

type postgresUnit struct {
	tx        *sql.Tx
	threshold int
}

func (u *postgresUnit) Orders() order.Repository { return order.NewPostgresRepository(u.tx) }
func (u *postgresUnit) Carts() cart.Repository    { return cart.NewPostgresRepository(u.tx) }
func (u *postgresUnit) Ledger() inventory.Ledger  { return inventory.NewPostgresLedger(u.tx, u.threshold) }

// Failure is the durable record of a task that never reached a normal outcome.
type Failure struct {
	ID       int64     `json:"id"`
	OrderID  uuid.UUID `json:"order_id"`
	UserID   uuid.UUID `json:"user_id"`
	Attempts int       `json:"attempts"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// FailureLog stores Failure records.
type FailureLog interface {
	Record(ctx context.Context, f *Failure) error
	List(ctx context.Context, limit int) ([]*Failure, error)
}

type postgresFailureLog struct{ db database.Querier }

func NewPostgresFailureLog(db database.Querier) FailureLog { return &postgresFailureLog{db: db} }

func (l *postgresFailureLog) Record(ctx context.Context, f *Failure) error {
	if f.FailedAt.IsZero() {
		f.FailedAt = time.Now().UTC()
	}
	err := l.db.QueryRowContext(ctx, `
		INSERT INTO fulfillment_failures (order_id, user_id, attempts, reason, failed_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id`, f.OrderID, f.UserID, f.Attempts, f.Reason, f.FailedAt).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("record fulfillment failure: %w", err)
	}
	return nil
}

func (l *postgresFailureLog) List(ctx context.Context, limit int) ([]*Failure, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, order_id, user_id, attempts, reason, failed_at
		FROM fulfillment_failures ORDER BY failed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Failure
	for rows.Next() {
		f := &Failure{}
		if err := rows.Scan(&f.ID, &f.OrderID, &f.UserID, &f.Attempts, &f.Reason, &f.FailedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
