package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-storefront/internal/cart"
)

type CartHandler struct {
	Cart Carts
}

type addReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type setReq struct {
	Quantity int `json:"quantity"`
}

type mergeReq struct {
	Items []cart.Line `json:"items"`
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/cart", h.summary)
	r.Post("/cart", h.add)
	r.Delete("/cart", h.clear)
	r.Post("/cart/merge", h.merge)
	r.Put("/cart/{productID}", h.set)
	r.Delete("/cart/{productID}", h.remove)
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, s cart.Summary, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *CartHandler) summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.Cart.Summary(r.Context(), principal(r).UserID)
	h.respond(w, r, s, err)
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req addReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	s, err := h.Cart.Add(r.Context(), principal(r).UserID, req.ProductID, req.Quantity)
	h.respond(w, r, s, err)
}

func (h *CartHandler) set(w http.ResponseWriter, r *http.Request) {
	var req setReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.Cart.SetQuantity(r.Context(), principal(r).UserID, chi.URLParam(r, "productID"), req.Quantity)
	h.respond(w, r, s, err)
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	s, err := h.Cart.Remove(r.Context(), principal(r).UserID, chi.URLParam(r, "productID"))
	h.respond(w, r, s, err)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Cart.Clear(r.Context(), principal(r).UserID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) merge(w http.ResponseWriter, r *http.Request) {
	var req mergeReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.Cart.Merge(r.Context(), principal(r).UserID, req.Items)
	h.respond(w, r, s, err)
}
