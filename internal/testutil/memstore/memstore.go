// Package memstore is an in-memory implementation of the storefront
// repositories. Transactions are serialised behind one mutex and rolled back
// by restoring a snapshot, which gives tests the same all-or-nothing and
// row-lock ordering behaviour as Postgres.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/georgemunganga/storefront/internal/modules/cart"
	"github.com/georgemunganga/storefront/internal/modules/catalog"
	"github.com/georgemunganga/storefront/internal/modules/fulfillment"
	"github.com/georgemunganga/storefront/internal/modules/inventory"
	"github.com/georgemunganga/storefront/internal/modules/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type cartRow struct {
	line cart.Line
	seq  int64
}

type data struct {
	products   map[uuid.UUID]catalog.Product
	cart       map[uuid.UUID]cartRow
	orders     map[uuid.UUID]order.Order
	orderLines map[uuid.UUID][]order.Line
	failures   []fulfillment.Failure
	seq        int64
}

func newData() *data {
	return &data{
		products:   map[uuid.UUID]catalog.Product{},
		cart:       map[uuid.UUID]cartRow{},
		orders:     map[uuid.UUID]order.Order{},
		orderLines: map[uuid.UUID][]order.Line{},
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.cart {
		c.cart[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for k, v := range d.orderLines {
		c.orderLines[k] = append([]order.Line(nil), v...)
	}
	c.failures = append([]fulfillment.Failure(nil), d.failures...)
	c.seq = d.seq
	return c
}

// Store holds every table. The zero value is not usable; call New.
type Store struct {
	mu        sync.Mutex
	d         *data
	threshold int

	hookMu   sync.Mutex
	beforeTx func(ctx context.Context) error
}

// New creates an empty store reporting low stock crossings against threshold.
func New(threshold int) *Store {
	return &Store{d: newData(), threshold: threshold}
}

// SetBeforeTx installs a hook run before every transaction starts. A non-nil
// error aborts the transaction with that error.
func (s *Store) SetBeforeTx(fn func(ctx context.Context) error) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.beforeTx = fn
}

func (s *Store) hook() func(ctx context.Context) error {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	return s.beforeTx
}

// InTx implements fulfillment.Store.
func (s *Store) InTx(ctx context.Context, fn func(fulfillment.UnitOfWork) error) error {
	if h := s.hook(); h != nil {
		if err := h(ctx); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.d.clone()
	if err := fn(unit{view{s: s, inTx: true}}); err != nil {
		s.d = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		s.d = snapshot
		return err
	}
	return nil
}

func (s *Store) Orders() order.Repository     { return orderRepo{view{s: s}} }
func (s *Store) Carts() cart.Repository       { return cartRepo{view{s: s}} }
func (s *Store) Ledger() inventory.Ledger     { return ledger{view{s: s}} }
func (s *Store) Products() catalog.Repository { return productRepo{view{s: s}} }
func (s *Store) Failures() fulfillment.FailureLog {
	return failureLog{view{s: s}}
}

type unit struct{ v view }

func (u unit) Orders() order.Repository { return orderRepo{u.v} }
func (u unit) Carts() cart.Repository   { return cartRepo{u.v} }
func (u unit) Ledger() inventory.Ledger { return ledger{u.v} }

// view is a handle on the store. Inside InTx the store mutex is already held.
type view struct {
	s    *Store
	inTx bool
}

func (v view) lock() func() {
	if v.inTx {
		return func() {}
	}
	v.s.mu.Lock()
	return v.s.mu.Unlock
}

// ── test helpers ─────────────────────────────────────────────────────────────

// AddProduct seeds an active product.
func (s *Store) AddProduct(name, sku, price string, stock int) *catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	p := catalog.Product{
		ID:            uuid.New(),
		Name:          name,
		SKU:           sku,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.d.products[p.ID] = p
	return &p
}

// SetActive toggles a product's active flag.
func (s *Store) SetActive(productID uuid.UUID, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.d.products[productID]
	p.IsActive = active
	s.d.products[productID] = p
}

// AddToCart seeds a cart line, bypassing the cart service's checks.
func (s *Store) AddToCart(userID, productID uuid.UUID, qty int) {
	if _, err := s.Carts().Upsert(context.Background(), userID, productID, qty); err != nil {
		panic(err)
	}
}

// Stock reads a product's current stock.
func (s *Store) Stock(productID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.products[productID].StockQuantity
}

// Order reads an order header with its lines.
func (s *Store) Order(orderID uuid.UUID) (*order.Order, bool) {
	o, err := s.Orders().GetByID(context.Background(), orderID)
	return o, err == nil
}

// Backdate moves an order's creation time age into the past.
func (s *Store) Backdate(orderID uuid.UUID, age time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.d.orders[orderID]
	o.CreatedAt = o.CreatedAt.Add(-age)
	s.d.orders[orderID] = o
}

// OrderCount reports how many orders exist.
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.d.orders)
}

// CartSize reports how many lines the user has.
func (s *Store) CartSize(userID uuid.UUID) int {
	lines, _ := s.Carts().ListWithProducts(context.Background(), userID)
	return len(lines)
}

// FailureRecords returns every recorded fulfillment failure.
func (s *Store) FailureRecords() []fulfillment.Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]fulfillment.Failure(nil), s.d.failures...)
}

// ── catalog ──────────────────────────────────────────────────────────────────

type productRepo struct{ v view }

func (r productRepo) Create(_ context.Context, p *catalog.Product) error {
	defer r.v.lock()()
	for _, existing := range r.v.s.d.products {
		if existing.SKU == p.SKU {
			return errors.New("duplicate sku")
		}
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.v.s.d.products[p.ID] = *p
	return nil
}

func (r productRepo) GetByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	defer r.v.lock()()
	p, ok := r.v.s.d.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return &p, nil
}

func (r productRepo) List(_ context.Context, activeOnly bool) ([]*catalog.Product, error) {
	defer r.v.lock()()
	var out []*catalog.Product
	for _, p := range r.v.s.d.products {
		if activeOnly && !p.IsActive {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r productRepo) Update(_ context.Context, p *catalog.Product) error {
	defer r.v.lock()()
	existing, ok := r.v.s.d.products[p.ID]
	if !ok {
		return catalog.ErrProductNotFound
	}
	p.StockQuantity = existing.StockQuantity
	p.UpdatedAt = time.Now().UTC()
	r.v.s.d.products[p.ID] = *p
	return nil
}

// ── cart ─────────────────────────────────────────────────────────────────────

type cartRepo struct{ v view }

func (r cartRepo) withProduct(row cartRow) (*cart.Line, bool) {
	p, ok := r.v.s.d.products[row.line.ProductID]
	if !ok {
		return nil, false
	}
	l := row.line
	l.Product = &cart.ProductSnapshot{
		ID:            p.ID,
		Name:          p.Name,
		SKU:           p.SKU,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		IsActive:      p.IsActive,
	}
	return &l, true
}

func (r cartRepo) ListWithProducts(_ context.Context, userID uuid.UUID) ([]*cart.Line, error) {
	defer r.v.lock()()
	var rows []cartRow
	for _, row := range r.v.s.d.cart {
		if row.line.UserID == userID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	var lines []*cart.Line
	for _, row := range rows {
		if l, ok := r.withProduct(row); ok {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

func (r cartRepo) ListForFulfillment(ctx context.Context, userID uuid.UUID) ([]*cart.Line, error) {
	return r.ListWithProducts(ctx, userID)
}

func (r cartRepo) GetLine(_ context.Context, lineID uuid.UUID) (*cart.Line, error) {
	defer r.v.lock()()
	row, ok := r.v.s.d.cart[lineID]
	if !ok {
		return nil, cart.ErrLineNotFound
	}
	l, ok := r.withProduct(row)
	if !ok {
		return nil, cart.ErrLineNotFound
	}
	return l, nil
}

func (r cartRepo) FindLine(_ context.Context, userID, productID uuid.UUID) (*cart.Line, error) {
	defer r.v.lock()()
	for _, row := range r.v.s.d.cart {
		if row.line.UserID == userID && row.line.ProductID == productID {
			if l, ok := r.withProduct(row); ok {
				return l, nil
			}
		}
	}
	return nil, cart.ErrLineNotFound
}

func (r cartRepo) Upsert(_ context.Context, userID, productID uuid.UUID, qty int) (*cart.Line, error) {
	defer r.v.lock()()
	if qty <= 0 {
		return nil, errors.New("quantity must be positive")
	}
	if _, ok := r.v.s.d.products[productID]; !ok {
		return nil, errors.New("foreign key violation: product")
	}
	now := time.Now().UTC()
	for id, row := range r.v.s.d.cart {
		if row.line.UserID == userID && row.line.ProductID == productID {
			row.line.Quantity = qty
			row.line.UpdatedAt = now
			r.v.s.d.cart[id] = row
			l := row.line
			return &l, nil
		}
	}
	r.v.s.d.seq++
	row := cartRow{
		line: cart.Line{ID: uuid.New(), UserID: userID, ProductID: productID, Quantity: qty, CreatedAt: now, UpdatedAt: now},
		seq:  r.v.s.d.seq,
	}
	r.v.s.d.cart[row.line.ID] = row
	l := row.line
	return &l, nil
}

func (r cartRepo) UpdateQuantity(_ context.Context, lineID uuid.UUID, qty int) error {
	defer r.v.lock()()
	row, ok := r.v.s.d.cart[lineID]
	if !ok {
		return cart.ErrLineNotFound
	}
	row.line.Quantity = qty
	row.line.UpdatedAt = time.Now().UTC()
	r.v.s.d.cart[lineID] = row
	return nil
}

func (r cartRepo) Delete(_ context.Context, lineID uuid.UUID) error {
	defer r.v.lock()()
	if _, ok := r.v.s.d.cart[lineID]; !ok {
		return cart.ErrLineNotFound
	}
	delete(r.v.s.d.cart, lineID)
	return nil
}

func (r cartRepo) Clear(_ context.Context, userID uuid.UUID) (int64, error) {
	defer r.v.lock()()
	var n int64
	for id, row := range r.v.s.d.cart {
		if row.line.UserID == userID {
			delete(r.v.s.d.cart, id)
			n++
		}
	}
	return n, nil
}

// ── order ────────────────────────────────────────────────────────────────────

type orderRepo struct{ v view }

func (r orderRepo) Create(_ context.Context, o *order.Order) error {
	defer r.v.lock()()
	for _, existing := range r.v.s.d.orders {
		if existing.OrderNumber == o.OrderNumber {
			return order.ErrDuplicateNumber
		}
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	stored := *o
	stored.Lines = nil
	r.v.s.d.orders[o.ID] = stored
	return nil
}

func (r orderRepo) get(id uuid.UUID) (*order.Order, error) {
	o, ok := r.v.s.d.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return &o, nil
}

func (r orderRepo) GetByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	defer r.v.lock()()
	o, err := r.get(id)
	if err != nil {
		return nil, err
	}
	for _, l := range r.v.s.d.orderLines[id] {
		l := l
		o.Lines = append(o.Lines, &l)
	}
	return o, nil
}

func (r orderRepo) GetStatus(_ context.Context, id uuid.UUID) (order.Status, error) {
	defer r.v.lock()()
	o, err := r.get(id)
	if err != nil {
		return "", err
	}
	return o.Status, nil
}

func (r orderRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*order.Order, error) {
	defer r.v.lock()()
	var out []*order.Order
	for _, o := range r.v.s.d.orders {
		if o.UserID == userID {
			o := o
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r orderRepo) ListStale(_ context.Context, cutoff time.Time) ([]*order.Order, error) {
	defer r.v.lock()()
	var out []*order.Order
	for _, o := range r.v.s.d.orders {
		if o.Status == order.StatusProcessing && o.CreatedAt.Before(cutoff) {
			o := o
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r orderRepo) LockForFulfillment(_ context.Context, id uuid.UUID) (*order.Order, error) {
	defer r.v.lock()()
	return r.get(id)
}

func (r orderRepo) AddLine(_ context.Context, l *order.Line) error {
	defer r.v.lock()()
	if _, ok := r.v.s.d.orders[l.OrderID]; !ok {
		return errors.New("foreign key violation: order")
	}
	l.CreatedAt = time.Now().UTC()
	r.v.s.d.orderLines[l.OrderID] = append(r.v.s.d.orderLines[l.OrderID], *l)
	return nil
}

func (r orderRepo) Transition(_ context.Context, id uuid.UUID, to order.Status, reason string) (bool, error) {
	defer r.v.lock()()
	if !order.CanTransition(order.StatusProcessing, to) {
		return false, order.ErrInvalidTransition
	}
	o, ok := r.v.s.d.orders[id]
	if !ok || o.Status != order.StatusProcessing {
		return false, nil
	}
	o.Status = to
	o.FailureReason = reason
	o.UpdatedAt = time.Now().UTC()
	r.v.s.d.orders[id] = o
	return true, nil
}

// ── inventory ────────────────────────────────────────────────────────────────

type ledger struct{ v view }

func (l ledger) CheckAvailability(_ context.Context, productID uuid.UUID, qty int) (bool, error) {
	defer l.v.lock()()
	p, ok := l.v.s.d.products[productID]
	if !ok {
		return false, inventory.ErrProductNotFound
	}
	return p.StockQuantity >= qty, nil
}

func (l ledger) adjust(productID uuid.UUID, next func(stock int) (int, error)) (*inventory.Adjustment, error) {
	p, ok := l.v.s.d.products[productID]
	if !ok {
		return nil, inventory.ErrProductNotFound
	}
	current, err := next(p.StockQuantity)
	if err != nil {
		return nil, err
	}
	previous := p.StockQuantity
	p.StockQuantity = current
	p.UpdatedAt = time.Now().UTC()
	l.v.s.d.products[productID] = p
	return inventory.NewAdjustment(p.ID, p.Name, p.SKU, previous, current, l.v.s.threshold), nil
}

func (l ledger) Decrement(_ context.Context, productID uuid.UUID, qty int) (*inventory.Adjustment, error) {
	defer l.v.lock()()
	if qty <= 0 {
		return nil, inventory.ErrInvalidQuantity
	}
	return l.adjust(productID, func(stock int) (int, error) {
		if stock < qty {
			p := l.v.s.d.products[productID]
			return 0, &inventory.InsufficientStockError{ProductID: productID, Name: p.Name, Available: stock, Requested: qty}
		}
		return stock - qty, nil
	})
}

func (l ledger) Increment(_ context.Context, productID uuid.UUID, qty int) (*inventory.Adjustment, error) {
	defer l.v.lock()()
	if qty <= 0 {
		return nil, inventory.ErrInvalidQuantity
	}
	return l.adjust(productID, func(stock int) (int, error) { return stock + qty, nil })
}

func (l ledger) SetStock(_ context.Context, productID uuid.UUID, qty int) (*inventory.Adjustment, error) {
	defer l.v.lock()()
	if qty < 0 {
		qty = 0
	}
	return l.adjust(productID, func(int) (int, error) { return qty, nil })
}

func (l ledger) LowStock(_ context.Context, threshold int) ([]*inventory.StockLevel, error) {
	defer l.v.lock()()
	var out []*inventory.StockLevel
	for _, p := range l.v.s.d.products {
		if p.StockQuantity > 0 && p.StockQuantity <= threshold {
			out = append(out, &inventory.StockLevel{ProductID: p.ID, Name: p.Name, SKU: p.SKU, StockQuantity: p.StockQuantity})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StockQuantity < out[j].StockQuantity })
	return out, nil
}

// ── failures ─────────────────────────────────────────────────────────────────

type failureLog struct{ v view }

func (f failureLog) Record(_ context.Context, rec *fulfillment.Failure) error {
	defer f.v.lock()()
	if rec.FailedAt.IsZero() {
		rec.FailedAt = time.Now().UTC()
	}
	rec.ID = int64(len(f.v.s.d.failures) + 1)
	f.v.s.d.failures = append(f.v.s.d.failures, *rec)
	return nil
}

func (f failureLog) List(_ context.Context, limit int) ([]*fulfillment.Failure, error) {
	defer f.v.lock()()
	var out []*fulfillment.Failure
	for i := len(f.v.s.d.failures) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		rec := f.v.s.d.failures[i]
		out = append(out, &rec)
	}
	return out, nil
}
