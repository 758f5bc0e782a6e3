package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
)

type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	PriceCents    int       `json:"price_cents"`
	ImageURL      string    `json:"image_url"`
	Category      string    `json:"category"`
	StockQuantity int       `json:"stock_quantity"`
	Featured      bool      `json:"is_featured"`
	Active        bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Purchasable reports whether qty units can be sold right now.
func (p Product) Purchasable(qty int) bool {
	return p.Active && qty > 0 && qty <= p.StockQuantity
}

// ProductInput is the admin payload for create and update.
type ProductInput struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	PriceCents    int    `json:"price_cents"`
	ImageURL      string `json:"image_url"`
	Category      string `json:"category"`
	StockQuantity int    `json:"stock_quantity"`
	Featured      bool   `json:"is_featured"`
	Active        *bool  `json:"is_active"`
}

func (in *ProductInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if in.Name == "" {
		return apperr.Invalidf("name is required")
	}
	if in.PriceCents < 0 {
		return apperr.Invalidf("price_cents must not be negative")
	}
	if in.StockQuantity < 0 {
		return apperr.Invalidf("stock_quantity must not be negative")
	}
	return nil
}

func (in ProductInput) active() bool {
	return in.Active == nil || *in.Active
}

const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortName      = "name"

	DefaultLimit = 24
	MaxLimit     = 100
)

var orderBy = map[string]string{
	SortNewest:    "created_at DESC, id",
	SortPriceAsc:  "price_cents ASC, id",
	SortPriceDesc: "price_cents DESC, id",
	SortName:      "name ASC, id",
}

type Filter struct {
	Category        string
	Featured        *bool
	Query           string
	Sort            string
	IncludeInactive bool
	Limit           int
	Offset          int
}

// Normalize fills defaults and clamps paging.
func (f Filter) Normalize() (Filter, error) {
	f.Category = strings.TrimSpace(f.Category)
	f.Query = strings.TrimSpace(f.Query)
	if f.Sort == "" {
		f.Sort = SortNewest
	}
	if _, ok := orderBy[f.Sort]; !ok {
		return f, apperr.Invalidf("unknown sort %q", f.Sort)
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f, nil
}

// Key identifies a normalized filter in the list cache.
func (f Filter) Key() string {
	featured := "any"
	if f.Featured != nil {
		featured = fmt.Sprint(*f.Featured)
	}
	return fmt.Sprintf("c=%s|f=%s|q=%s|s=%s|i=%t|l=%d|o=%d",
		f.Category, featured, strings.ToLower(f.Query), f.Sort, f.IncludeInactive, f.Limit, f.Offset)
}
