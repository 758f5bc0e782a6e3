package cart

import (
	"github.com/ariefcatur/go-storefront/internal/catalog"
)

// Line is one cart row as stored, or as sent by a browser guest cart.
type Line struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type Pricing struct {
	ShippingFlatCents          int
	FreeShippingThresholdCents int
}

// Shipping returns the shipping charge for a non-empty cart.
func (p Pricing) Shipping(subtotal int) int {
	if subtotal >= p.FreeShippingThresholdCents {
		return 0
	}
	return p.ShippingFlatCents
}

type SummaryLine struct {
	Product        catalog.Product `json:"product"`
	Quantity       int             `json:"quantity"`
	LineTotalCents int             `json:"line_total_cents"`
}

type Adjustment struct {
	ProductID string `json:"product_id"`
	From      int    `json:"from"`
	To        int    `json:"to"`
}

type Summary struct {
	Items         []SummaryLine `json:"items"`
	ItemCount     int           `json:"item_count"`
	SubtotalCents int           `json:"subtotal_cents"`
	ShippingCents int           `json:"shipping_cents"`
	TotalCents    int           `json:"total_cents"`
	Unavailable   []string      `json:"unavailable,omitempty"`
	Adjusted      []Adjustment  `json:"adjusted,omitempty"`
}

// Summarize prices lines against the current catalog. Lines whose product
// is gone, inactive or sold out are reported as unavailable; quantities above
// stock are clamped and reported as adjusted.
func Summarize(lines []Line, products map[string]catalog.Product, pricing Pricing) Summary {
	s := Summary{Items: []SummaryLine{}}
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok || !p.Active || p.StockQuantity <= 0 || l.Quantity <= 0 {
			s.Unavailable = append(s.Unavailable, l.ProductID)
			continue
		}
		qty := l.Quantity
		if qty > p.StockQuantity {
			s.Adjusted = append(s.Adjusted, Adjustment{ProductID: l.ProductID, From: qty, To: p.StockQuantity})
			qty = p.StockQuantity
		}
		lineTotal := p.PriceCents * qty
		s.Items = append(s.Items, SummaryLine{Product: p, Quantity: qty, LineTotalCents: lineTotal})
		s.ItemCount += qty
		s.SubtotalCents += lineTotal
	}
	if s.ItemCount > 0 {
		s.ShippingCents = pricing.Shipping(s.SubtotalCents)
	}
	s.TotalCents = s.SubtotalCents + s.ShippingCents
	return s
}

// Coalesce sums duplicate product lines and drops non-positive quantities,
// keeping first-seen order.
func Coalesce(lines []Line) []Line {
	idx := make(map[string]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity <= 0 {
			continue
		}
		if i, ok := idx[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}
