package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// SampleProducts is the demo catalog loaded by `storectl seed`.
var SampleProducts = []ProductInput{
	{Name: "Classic Blue T-Shirt", Description: "Soft cotton tee in navy blue.", PriceCents: 1999, Category: "shirts", StockQuantity: 40, Featured: true},
	{Name: "Red Hoodie", Description: "Heavyweight fleece hoodie.", PriceCents: 4599, Category: "hoodies", StockQuantity: 15, Featured: true},
	{Name: "Canvas Tote", Description: "Everyday tote bag, natural canvas.", PriceCents: 1499, Category: "accessories", StockQuantity: 60},
	{Name: "Wool Beanie", Description: "Ribbed merino beanie.", PriceCents: 2199, Category: "accessories", StockQuantity: 25},
	{Name: "Denim Jacket", Description: "Stonewashed denim, regular fit.", PriceCents: 7999, Category: "jackets", StockQuantity: 8, Featured: true},
	{Name: "Striped Socks", Description: "Pack of three cotton socks.", PriceCents: 999, Category: "accessories", StockQuantity: 3},
}

// Seed inserts the products whose name is not in the catalog yet and
// returns how many it added. Running it twice adds nothing.
func (r *Repo) Seed(ctx context.Context, ps []ProductInput) (int, error) {
	added := 0
	for _, in := range ps {
		if err := in.Validate(); err != nil {
			return added, err
		}
		ct, err := r.DB.Exec(ctx, `
			INSERT INTO products(id, name, description, price_cents, image_url, category,
			                     stock_quantity, is_featured, is_active)
			SELECT $1,$2,$3,$4,$5,$6,$7,$8,$9
			 WHERE NOT EXISTS (SELECT 1 FROM products WHERE name=$2)`,
			uuid.NewString(), in.Name, in.Description, in.PriceCents, in.ImageURL, in.Category,
			in.StockQuantity, in.Featured, in.active())
		if err != nil {
			return added, fmt.Errorf("seed %q: %w", in.Name, err)
		}
		added += int(ct.RowsAffected())
	}
	return added, nil
}
