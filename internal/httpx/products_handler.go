package httpx

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/ariefcatur/go-storefront/internal/redisx"
)

type ProductsHandler struct {
	Catalog Catalog
	Cache   Cache
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Get("/products", h.list)
	r.Get("/products/{id}", h.get)
	r.Get("/categories", h.categories)
}

func parseFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	f := catalog.Filter{Category: q.Get("category"), Query: q.Get("q"), Sort: q.Get("sort")}
	if v := q.Get("featured"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, apperr.Invalidf("featured must be true or false")
		}
		f.Featured = &b
	}
	var err error
	if f.Limit, err = queryInt(r, "limit", 0); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(r, "offset", 0); err != nil {
		return f, err
	}
	return f.Normalize()
}

// list serves active products. Pages are cached under the current catalog
// version; admin writes bump it.
func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	log := logger.FromCtx(ctx)

	ver, err := h.Cache.Version(ctx, redisx.KeyProductVersion)
	cacheOK := err == nil
	if err != nil {
		log.Warn("product cache version", "err", err)
	}
	key := fmt.Sprintf(redisx.KeyProductList, ver, f.Key())
	if cacheOK {
		var cached []catalog.Product
		if hit, err := h.Cache.GetJSON(ctx, key, &cached); err == nil && hit {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	ps, err := h.Catalog.List(ctx, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cacheOK {
		if err := h.Cache.SetJSON(ctx, key, ps, redisx.TTLProductCache); err != nil {
			log.Warn("product cache set", "err", err)
		}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err == nil && !p.Active {
		err = catalog.ErrNotFound
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) categories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Catalog.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}
