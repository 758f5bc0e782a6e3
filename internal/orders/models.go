package orders

import (
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/cart"
)

var (
	ErrNotFound          error = apperr.New(apperr.ErrNotFound, "order not found")
	ErrEmptyCart         error = apperr.New(apperr.ErrInvalid, "cart is empty")
	ErrInvalidTransition error = apperr.New(apperr.ErrConflict, "invalid status transition")
	ErrNotCancellable    error = apperr.New(apperr.ErrConflict, "order can no longer be cancelled")
	ErrInvalidAddress    error = apperr.New(apperr.ErrInvalid, "invalid shipping address")
)

type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

func (a *Address) Validate() error {
	a.Name = strings.TrimSpace(a.Name)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.City = strings.TrimSpace(a.City)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"name", a.Name}, {"line1", a.Line1}, {"city", a.City},
		{"postal_code", a.PostalCode}, {"country", a.Country},
	} {
		if f.v == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &apperr.Error{Kind: ErrInvalidAddress, Msg: "shipping_address missing " + strings.Join(missing, ", ")}
	}
	return nil
}

type Order struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	Status          Status      `json:"status"`
	SubtotalCents   int         `json:"subtotal_cents"`
	ShippingCents   int         `json:"shipping_cents"`
	TotalCents      int         `json:"total_cents"`
	ShippingAddress Address     `json:"shipping_address"`
	Items           []OrderItem `json:"items,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ProductID      string `json:"product_id,omitempty"`
	ProductName    string `json:"product_name"`
	UnitPriceCents int    `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
}

type CheckoutInput struct {
	UserID          string
	Items           []cart.Line
	ShippingAddress Address
	IdempotencyKey  string
}

type ListFilter struct {
	UserID string
	Status Status
	Limit  int
	Offset int
}

func (f *ListFilter) normalize() error {
	if f.Status != "" && !f.Status.Valid() {
		return apperr.Invalidf("unknown status %q", f.Status)
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return nil
}

type Stats struct {
	OrdersByStatus map[Status]int `json:"orders_by_status"`
	RevenueCents   int            `json:"revenue_cents"`
	ProductCount   int            `json:"product_count"`
	LowStockCount  int            `json:"low_stock_count"`
}
