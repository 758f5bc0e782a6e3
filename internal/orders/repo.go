package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/postgres"
)

const orderColumns = `id, user_id, status, subtotal_cents, shipping_cents, total_cents,
	shipping_address, created_at, updated_at`

type Repo struct {
	DB      postgres.DB
	Pricing cart.Pricing
}

func scanOrder(row pgx.Row, o *Order) error {
	var (
		status string
		addr   []byte
	)
	if err := row.Scan(&o.ID, &o.UserID, &status, &o.SubtotalCents, &o.ShippingCents, &o.TotalCents,
		&addr, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return err
	}
	o.Status = Status(status)
	if len(addr) > 0 {
		if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
			return fmt.Errorf("decode shipping address: %w", err)
		}
	}
	return nil
}

type lockedProduct struct {
	name   string
	price  int
	stock  int
	active bool
}

// Checkout turns the given items, or the user's stored cart when none are
// given, into a pending order. Stock is checked and decremented under row
// locks in the same transaction that inserts the order, so either all of it
// happens or none does. A repeated idempotency key returns the order it
// created first with existed=true.
func (r *Repo) Checkout(ctx context.Context, in CheckoutInput) (order Order, existed bool, err error) {
	if err := in.ShippingAddress.Validate(); err != nil {
		return Order{}, false, err
	}
	for _, l := range in.Items {
		if l.ProductID == "" || l.Quantity <= 0 {
			return Order{}, false, apperr.Invalidf("each item needs a product_id and a positive quantity")
		}
	}
	if in.IdempotencyKey != "" {
		if o, ok, err := r.byIdempotencyKey(ctx, in.UserID, in.IdempotencyKey); err != nil || ok {
			return o, ok, err
		}
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lines := cart.Coalesce(in.Items)
	if len(in.Items) == 0 {
		if lines, err = cartLines(ctx, tx, in.UserID); err != nil {
			return Order{}, false, err
		}
	}
	if len(lines) == 0 {
		return Order{}, false, ErrEmptyCart
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	sort.Strings(ids)

	// lock in id order so concurrent checkouts cannot deadlock
	rows, err := tx.Query(ctx, `
		SELECT id, name, price_cents, stock_quantity, is_active FROM products
		 WHERE id = ANY($1)
		 ORDER BY id
		   FOR UPDATE`, ids)
	if err != nil {
		return Order{}, false, err
	}
	locked := make(map[string]lockedProduct, len(ids))
	for rows.Next() {
		var (
			id string
			p  lockedProduct
		)
		if err := rows.Scan(&id, &p.name, &p.price, &p.stock, &p.active); err != nil {
			rows.Close()
			return Order{}, false, err
		}
		locked[id] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Order{}, false, err
	}

	var (
		shortages []catalog.Shortage
		subtotal  int
		items     = make([]OrderItem, 0, len(lines))
	)
	for _, l := range lines {
		p, ok := locked[l.ProductID]
		if !ok || !p.active {
			return Order{}, false, apperr.NotFoundf("product %s is not available", l.ProductID)
		}
		if l.Quantity > p.stock {
			shortages = append(shortages, catalog.Shortage{ProductID: l.ProductID, Requested: l.Quantity, Available: p.stock})
			continue
		}
		subtotal += p.price * l.Quantity
		items = append(items, OrderItem{ProductID: l.ProductID, ProductName: p.name, UnitPriceCents: p.price, Quantity: l.Quantity})
	}
	if len(shortages) > 0 {
		return Order{}, false, &catalog.StockError{Shortages: shortages}
	}

	for _, it := range items {
		if _, err := tx.Exec(ctx, `
			UPDATE products SET stock_quantity = stock_quantity - $2, updated_at = now()
			 WHERE id=$1`, it.ProductID, it.Quantity); err != nil {
			return Order{}, false, err
		}
	}

	addr, err := json.Marshal(in.ShippingAddress)
	if err != nil {
		return Order{}, false, err
	}
	shipping := r.Pricing.Shipping(subtotal)
	order = Order{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		Status:          StatusPending,
		SubtotalCents:   subtotal,
		ShippingCents:   shipping,
		TotalCents:      subtotal + shipping,
		ShippingAddress: in.ShippingAddress,
		Items:           items,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, status, subtotal_cents, shipping_cents, total_cents,
		                   shipping_address, idempotency_key)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''))
		RETURNING created_at, updated_at`,
		order.ID, order.UserID, string(order.Status), order.SubtotalCents, order.ShippingCents,
		order.TotalCents, addr, in.IdempotencyKey).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if in.IdempotencyKey != "" && postgres.IsUniqueViolation(err) {
			// lost a race with a replay of the same request
			_ = tx.Rollback(ctx)
			return r.byIdempotencyKey(ctx, in.UserID, in.IdempotencyKey)
		}
		return Order{}, false, err
	}

	for _, it := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, product_name, unit_price_cents, quantity)
			VALUES ($1,$2,$3,$4,$5)`,
			order.ID, it.ProductID, it.ProductName, it.UnitPriceCents, it.Quantity); err != nil {
			return Order{}, false, err
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1 AND product_id = ANY($2)`,
		in.UserID, ids); err != nil {
		return Order{}, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, false, err
	}
	return order, false, nil
}

func cartLines(ctx context.Context, tx pgx.Tx, userID string) ([]cart.Line, error) {
	rows, err := tx.Query(ctx, `
		SELECT product_id, quantity FROM cart_items
		 WHERE user_id=$1
		 ORDER BY created_at, product_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []cart.Line
	for rows.Next() {
		var l cart.Line
		if err := rows.Scan(&l.ProductID, &l.Quantity); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repo) byIdempotencyKey(ctx context.Context, userID, key string) (Order, bool, error) {
	var id, owner string
	err := r.DB.QueryRow(ctx, `SELECT id, user_id FROM orders WHERE idempotency_key=$1`, key).Scan(&id, &owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, false, nil
	}
	if err != nil {
		return Order{}, false, err
	}
	if owner != userID {
		return Order{}, false, apperr.New(apperr.ErrConflict, "idempotency key already used")
	}
	o, err := r.Get(ctx, id)
	if err != nil {
		return Order{}, false, err
	}
	return o, true, nil
}

// Get returns the order with its items.
func (r *Repo) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id), &o)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	items, err := r.items(ctx, []string{id})
	if err != nil {
		return Order{}, err
	}
	o.Items = items[id]
	return o, nil
}

func (r *Repo) items(ctx context.Context, orderIDs []string) (map[string][]OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, COALESCE(product_id, ''), product_name, unit_price_cents, quantity
		  FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY id`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("order items: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			it      OrderItem
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.ProductName, &it.UnitPriceCents, &it.Quantity); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}

// List returns orders newest first, with items. UserID and Status narrow it.
func (r *Repo) List(ctx context.Context, f ListFilter) ([]Order, error) {
	if err := f.normalize(); err != nil {
		return nil, err
	}
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`, f.UserID, string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := []Order{}
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(out))
	for _, o := range out {
		ids = append(ids, o.ID)
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

// UpdateStatus moves an order along the status flow. Cancelling returns the
// items' stock in the same transaction.
func (r *Repo) UpdateStatus(ctx context.Context, id string, to Status) (from Status, err error) {
	if !to.Valid() {
		return "", apperr.Invalidf("unknown status %q", to)
	}
	return r.transition(ctx, id, to, func(from Status, _ string) error {
		if from.Terminal() {
			return fmt.Errorf("%w: order is already %s", ErrInvalidTransition, from)
		}
		if !CanTransition(from, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
		}
		return nil
	})
}

// Cancel is the customer-facing cancel: own orders only, pending only.
func (r *Repo) Cancel(ctx context.Context, userID, id string) error {
	_, err := r.transition(ctx, id, StatusCancelled, func(from Status, owner string) error {
		if owner != userID {
			return ErrNotFound
		}
		if from != StatusPending {
			return ErrNotCancellable
		}
		return nil
	})
	return err
}

func (r *Repo) transition(ctx context.Context, id string, to Status, check func(from Status, owner string) error) (Status, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status, owner string
	err = tx.QueryRow(ctx, `SELECT status, user_id FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&status, &owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	from := Status(status)
	if err := check(from, owner); err != nil {
		return from, err
	}

	if to == StatusCancelled {
		if _, err := tx.Exec(ctx, `
			UPDATE products p
			   SET stock_quantity = p.stock_quantity + oi.quantity, updated_at = now()
			  FROM order_items oi
			 WHERE oi.order_id = $1 AND oi.product_id = p.id`, id); err != nil {
			return from, fmt.Errorf("restock: %w", err)
		}
	}

	ct, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1 AND status=$3`,
		id, string(to), status)
	if err != nil {
		return from, err
	}
	if ct.RowsAffected() != 1 {
		return from, fmt.Errorf("%w: %s changed concurrently", ErrInvalidTransition, id)
	}
	return from, tx.Commit(ctx)
}

// ExpireStale cancels pending orders created before cutoff and returns the
// ids it cancelled. Orders that left pending after the scan are skipped.
func (r *Repo) ExpireStale(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id FROM orders
		 WHERE status = 'pending' AND created_at < $1
		 ORDER BY created_at
		 LIMIT 500`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("stale orders: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var cancelled []string
	for _, id := range ids {
		_, err := r.transition(ctx, id, StatusCancelled, func(from Status, _ string) error {
			if from != StatusPending {
				return ErrNotCancellable
			}
			return nil
		})
		if errors.Is(err, ErrNotCancellable) || errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return cancelled, err
		}
		cancelled = append(cancelled, id)
	}
	return cancelled, nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats summarizes orders and stock for the admin dashboard. Revenue leaves
// cancelled orders out.
func (r *Repo) Stats(ctx context.Context, lowStockThreshold int) (Stats, error) {
	st := Stats{OrdersByStatus: make(map[Status]int, len(validNext))}
	for _, s := range Statuses() {
		st.OrdersByStatus[s] = 0
	}

	rows, err := r.DB.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(total_cents), 0)
		  FROM orders
		 GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("order stats: %w", err)
	}
	for rows.Next() {
		var (
			status       string
			count, total int
		)
		if err := rows.Scan(&status, &count, &total); err != nil {
			rows.Close()
			return Stats{}, err
		}
		st.OrdersByStatus[Status(status)] = count
		if Status(status) != StatusCancelled {
			st.RevenueCents += total
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	err = r.DB.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active AND stock_quantity <= $1)
		  FROM products`, lowStockThreshold).Scan(&st.ProductCount, &st.LowStockCount)
	if err != nil {
		return Stats{}, fmt.Errorf("product stats: %w", err)
	}
	return st, nil
}
