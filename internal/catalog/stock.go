package catalog

import (
	"fmt"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/apperr"
)

var (
	ErrNotFound          error = apperr.New(apperr.ErrNotFound, "product not found")
	ErrInsufficientStock error = apperr.New(apperr.ErrConflict, "insufficient stock")
)

type Shortage struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// StockError lists every product a request asked too much of.
type StockError struct {
	Shortages []Shortage
}

func (e *StockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s (requested %d, available %d)", s.ProductID, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock || target == apperr.ErrConflict
}
