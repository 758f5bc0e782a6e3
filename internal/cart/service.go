package cart

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
)

// Products is the catalog lookup the cart needs.
type Products interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

// Store is the persistence the cart service needs; *Repo implements it.
type Store interface {
	Lines(ctx context.Context, userID string) ([]Line, error)
	Quantity(ctx context.Context, userID, productID string) (int, error)
	Increment(ctx context.Context, userID, productID string, qty, limit int) (int, error)
	Set(ctx context.Context, userID, productID string, qty int) error
	SetMany(ctx context.Context, userID string, lines []Line) error
	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}

type Service struct {
	Store    Store
	Products Products
	Pricing  Pricing
}

func (s *Service) Summary(ctx context.Context, userID string) (Summary, error) {
	lines, err := s.Store.Lines(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.Products.GetMany(ctx, ids)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(lines, products, s.Pricing), nil
}

func (s *Service) purchasable(ctx context.Context, productID string) (catalog.Product, error) {
	p, err := s.Products.Get(ctx, productID)
	if err != nil {
		return catalog.Product{}, err
	}
	if !p.Active {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (s *Service) Add(ctx context.Context, userID, productID string, qty int) (Summary, error) {
	if qty <= 0 {
		return Summary{}, apperr.Invalidf("quantity must be positive")
	}
	p, err := s.purchasable(ctx, productID)
	if err != nil {
		return Summary{}, err
	}
	if !p.Purchasable(qty) {
		return Summary{}, shortage(p, qty)
	}
	if _, err := s.Store.Increment(ctx, userID, productID, qty, p.StockQuantity); err != nil {
		if errors.Is(err, errOverLimit) {
			current, qerr := s.Store.Quantity(ctx, userID, productID)
			if qerr != nil {
				return Summary{}, qerr
			}
			return Summary{}, shortage(p, current+qty)
		}
		return Summary{}, err
	}
	return s.Summary(ctx, userID)
}

// SetQuantity replaces a line's quantity; zero or less removes the line.
func (s *Service) SetQuantity(ctx context.Context, userID, productID string, qty int) (Summary, error) {
	if qty <= 0 {
		return s.Remove(ctx, userID, productID)
	}
	p, err := s.purchasable(ctx, productID)
	if err != nil {
		return Summary{}, err
	}
	if !p.Purchasable(qty) {
		return Summary{}, shortage(p, qty)
	}
	if err := s.Store.Set(ctx, userID, productID, qty); err != nil {
		return Summary{}, err
	}
	return s.Summary(ctx, userID)
}

func (s *Service) Remove(ctx context.Context, userID, productID string) (Summary, error) {
	if err := s.Store.Remove(ctx, userID, productID); err != nil {
		return Summary{}, err
	}
	return s.Summary(ctx, userID)
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.Store.Clear(ctx, userID)
}

// Merge folds a guest cart into the stored one. Quantities add up and are
// clamped to stock; unknown, inactive and sold-out products are skipped.
func (s *Service) Merge(ctx context.Context, userID string, guest []Line) (Summary, error) {
	guest = Coalesce(guest)
	if len(guest) == 0 {
		return s.Summary(ctx, userID)
	}
	stored, err := s.Store.Lines(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	have := make(map[string]int, len(stored))
	for _, l := range stored {
		have[l.ProductID] = l.Quantity
	}

	ids := make([]string, 0, len(guest))
	for _, l := range guest {
		ids = append(ids, l.ProductID)
	}
	products, err := s.Products.GetMany(ctx, ids)
	if err != nil {
		return Summary{}, err
	}

	merged := make([]Line, 0, len(guest))
	for _, l := range guest {
		p, ok := products[l.ProductID]
		if !ok || !p.Purchasable(1) {
			continue
		}
		qty := min(have[l.ProductID]+l.Quantity, p.StockQuantity)
		if qty == have[l.ProductID] {
			continue
		}
		merged = append(merged, Line{ProductID: l.ProductID, Quantity: qty})
	}
	if len(merged) > 0 {
		if err := s.Store.SetMany(ctx, userID, merged); err != nil {
			return Summary{}, err
		}
	}
	return s.Summary(ctx, userID)
}

func shortage(p catalog.Product, requested int) error {
	return &catalog.StockError{Shortages: []catalog.Shortage{{
		ProductID: p.ID, Requested: requested, Available: p.StockQuantity,
	}}}
}
