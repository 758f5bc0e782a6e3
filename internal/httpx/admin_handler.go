package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/redisx"
)

type AdminHandler struct {
	Catalog           Catalog
	Orders            Orders
	Cache             Cache
	Events            Events
	LowStockThreshold int
}

type statusReq struct {
	Status orders.Status `json:"status"`
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Put("/products/{id}", h.updateProduct)
	r.Delete("/products/{id}", h.deleteProduct)

	r.Get("/orders", h.listOrders)
	r.Patch("/orders/{id}/status", h.updateStatus)
	r.Delete("/orders/{id}", h.deleteOrder)

	r.Get("/stats", h.stats)
}

func (h *AdminHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.IncludeInactive = true
	ps, err := h.Catalog.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// catalogChanged orphans every cached product page.
func (h *AdminHandler) catalogChanged(r *http.Request) {
	if err := h.Cache.Bump(r.Context(), redisx.KeyProductVersion); err != nil {
		logger.FromCtx(r.Context()).Warn("product cache bump", "err", err)
	}
}

func (h *AdminHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Catalog.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.catalogChanged(r)
	writeJSON(w, http.StatusCreated, p)
}

func (h *AdminHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Catalog.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.catalogChanged(r)
	writeJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	h.catalogChanged(r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	f := orders.ListFilter{Status: orders.Status(r.URL.Query().Get("status"))}
	var err error
	if f.Limit, err = queryInt(r, "limit", 0); err == nil {
		f.Offset, err = queryInt(r, "offset", 0)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.Orders.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	from, err := h.Orders.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Orders.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	statusChanged(ctx, h.Cache, h.Events, o, from)
	writeJSON(w, http.StatusOK, o)
}

func (h *AdminHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Orders.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Cache.Delete(r.Context(), redisx.OrderStatusKey(id)); err != nil {
		logger.FromCtx(r.Context()).Warn("order status cache delete", "order_id", id, "err", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Orders.Stats(r.Context(), h.LowStockThreshold)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
