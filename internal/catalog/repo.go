package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-storefront/internal/postgres"
)

const productColumns = `id, name, description, price_cents, image_url, category,
	stock_quantity, is_featured, is_active, created_at, updated_at`

type Repo struct{ DB postgres.DB }

func scanProduct(row pgx.Row, p *Product) error {
	return row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.ImageURL, &p.Category,
		&p.StockQuantity, &p.Featured, &p.Active, &p.CreatedAt, &p.UpdatedAt)
}

func collect(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()
	out := []Product{}
	for rows.Next() {
		var p Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// List expects a normalized filter.
func (r *Repo) List(ctx context.Context, f Filter) ([]Product, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !f.IncludeInactive {
		where = append(where, "is_active")
	}
	if f.Category != "" {
		where = append(where, "category = "+arg(f.Category))
	}
	if f.Featured != nil {
		where = append(where, "is_featured = "+arg(*f.Featured))
	}
	if f.Query != "" {
		p := arg("%" + f.Query + "%")
		where = append(where, "(name ILIKE "+p+" OR description ILIKE "+p+")")
	}

	q := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	sort, ok := orderBy[f.Sort]
	if !ok {
		sort = orderBy[SortNewest]
	}
	q += ` ORDER BY ` + sort + ` LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(f.Offset)

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return collect(rows)
}

func (r *Repo) Get(ctx context.Context, id string) (Product, error) {
	var p Product
	err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id), &p)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetMany returns the products found among ids, keyed by id.
func (r *Repo) GetMany(ctx context.Context, ids []string) (map[string]Product, error) {
	out := make(map[string]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	ps, err := collect(rows)
	if err != nil {
		return nil, err
	}
	for _, p := range ps {
		out[p.ID] = p
	}
	return out, nil
}

func (r *Repo) Create(ctx context.Context, in ProductInput) (Product, error) {
	if err := in.Validate(); err != nil {
		return Product{}, err
	}
	var p Product
	err := scanProduct(r.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, description, price_cents, image_url, category,
		                     stock_quantity, is_featured, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING `+productColumns,
		uuid.NewString(), in.Name, in.Description, in.PriceCents, in.ImageURL, in.Category,
		in.StockQuantity, in.Featured, in.active()), &p)
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

func (r *Repo) Update(ctx context.Context, id string, in ProductInput) (Product, error) {
	if err := in.Validate(); err != nil {
		return Product{}, err
	}
	var p Product
	err := scanProduct(r.DB.QueryRow(ctx, `
		UPDATE products
		   SET name=$2, description=$3, price_cents=$4, image_url=$5, category=$6,
		       stock_quantity=$7, is_featured=$8, is_active=$9, updated_at=now()
		 WHERE id=$1
		RETURNING `+productColumns,
		id, in.Name, in.Description, in.PriceCents, in.ImageURL, in.Category,
		in.StockQuantity, in.Featured, in.active()), &p)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT DISTINCT category FROM products
		 WHERE is_active AND category <> ''
		 ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LowStock lists active products at or below threshold, emptiest first.
func (r *Repo) LowStock(ctx context.Context, threshold int) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products
		WHERE is_active AND stock_quantity <= $1
		ORDER BY stock_quantity, name`, threshold)
	if err != nil {
		return nil, fmt.Errorf("low stock: %w", err)
	}
	return collect(rows)
}
