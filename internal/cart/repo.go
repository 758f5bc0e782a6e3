package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ariefcatur/go-storefront/internal/postgres"
)

// errOverLimit means an increment would push a line past its limit.
var errOverLimit = errors.New("cart line over limit")

type Repo struct{ DB postgres.DB }

func (r *Repo) Lines(ctx context.Context, userID string) ([]Line, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, quantity FROM cart_items
		 WHERE user_id=$1
		 ORDER BY created_at, product_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("cart lines: %w", err)
	}
	defer rows.Close()

	out := []Line{}
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.Quantity); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Quantity returns the stored quantity for a line, 0 when absent.
func (r *Repo) Quantity(ctx context.Context, userID, productID string) (int, error) {
	var q int
	err := r.DB.QueryRow(ctx, `SELECT quantity FROM cart_items WHERE user_id=$1 AND product_id=$2`,
		userID, productID).Scan(&q)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return q, err
}

// Increment adds qty to a line, creating it when missing. The update only
// applies while the resulting quantity stays within limit; otherwise it
// returns errOverLimit and leaves the row untouched.
func (r *Repo) Increment(ctx context.Context, userID, productID string, qty, limit int) (int, error) {
	var total int
	err := r.DB.QueryRow(ctx, `
		INSERT INTO cart_items(user_id, product_id, quantity)
		VALUES ($1,$2,$3)
		ON CONFLICT (user_id, product_id) DO UPDATE
		   SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
		 WHERE cart_items.quantity + EXCLUDED.quantity <= $4
		RETURNING quantity`, userID, productID, qty, limit).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errOverLimit
	}
	if err != nil {
		return 0, fmt.Errorf("increment cart line: %w", err)
	}
	return total, nil
}

func (r *Repo) Set(ctx context.Context, userID, productID string, qty int) error {
	return set(ctx, r.DB, userID, productID, qty)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func set(ctx context.Context, db execer, userID, productID string, qty int) error {
	_, err := db.Exec(ctx, `
		INSERT INTO cart_items(user_id, product_id, quantity)
		VALUES ($1,$2,$3)
		ON CONFLICT (user_id, product_id) DO UPDATE
		   SET quantity = EXCLUDED.quantity, updated_at = now()`, userID, productID, qty)
	if err != nil {
		return fmt.Errorf("set cart line: %w", err)
	}
	return nil
}

// SetMany writes every line in one transaction.
func (r *Repo) SetMany(ctx context.Context, userID string, lines []Line) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, l := range lines {
		if err := set(ctx, tx, userID, l.ProductID, l.Quantity); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repo) Remove(ctx context.Context, userID, productID string) error {
	if _, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1 AND product_id=$2`, userID, productID); err != nil {
		return fmt.Errorf("remove cart line: %w", err)
	}
	return nil
}

func (r *Repo) Clear(ctx context.Context, userID string) error {
	if _, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
