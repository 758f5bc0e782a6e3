package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/ariefcatur/go-storefront/internal/metrics"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/redisx"
)

const maxIdempotencyKey = 128

type OrdersHandler struct {
	Orders Orders
	Cache  Cache
	Events Events
}

type createOrderReq struct {
	Items           []cart.Line    `json:"items"`
	ShippingAddress orders.Address `json:"shipping_address"`
}

type createOrderResp struct {
	orders.Order
	Idempotent bool `json:"idempotent"`
}

// orderStatus is the cached shape behind GET /orders/{id}/status.
type orderStatus struct {
	OrderID   string        `json:"order_id"`
	UserID    string        `json:"user_id"`
	Status    orders.Status `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getStatus)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if len(key) > maxIdempotencyKey {
		writeError(w, r, apperr.Invalidf("Idempotency-Key is longer than %d characters", maxIdempotencyKey))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, existed, err := h.Orders.Checkout(ctx, orders.CheckoutInput{
		UserID:          principal(r).UserID,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		IdempotencyKey:  key,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if existed {
		writeJSON(w, http.StatusOK, createOrderResp{Order: o, Idempotent: true})
		return
	}

	metrics.OrdersCreated.Inc()
	cacheStatus(ctx, h.Cache, o)
	if err := h.Events.Created(middleware.GetReqID(ctx), o); err != nil {
		logger.FromCtx(ctx).Error("publish order created", "order_id", o.ID, "err", err)
	}
	writeJSON(w, http.StatusCreated, createOrderResp{Order: o})
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	f := orders.ListFilter{UserID: principal(r).UserID, Status: orders.Status(r.URL.Query().Get("status"))}
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

// owned loads an order the caller may see: their own, or any for admins.
// Someone else's order reads as not found.
func (h *OrdersHandler) owned(r *http.Request, id string) (orders.Order, error) {
	o, err := h.Orders.Get(r.Context(), id)
	if err != nil {
		return orders.Order{}, err
	}
	if p := principal(r); o.UserID != p.UserID && !p.IsAdmin() {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, nil
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.owned(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p := principal(r)
	var st orderStatus
	if hit, err := h.Cache.GetJSON(ctx, redisx.OrderStatusKey(id), &st); err == nil && hit {
		if st.UserID != p.UserID && !p.IsAdmin() {
			writeError(w, r, orders.ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, st)
		return
	}

	o, err := h.owned(r, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cacheStatus(ctx, h.Cache, o))
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()
	p := principal(r)

	if err := h.Orders.Cancel(ctx, p.UserID, id); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Orders.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	statusChanged(ctx, h.Cache, h.Events, o, orders.StatusPending)
	writeJSON(w, http.StatusOK, o)
}

func cacheStatus(ctx context.Context, c Cache, o orders.Order) orderStatus {
	st := orderStatus{OrderID: o.ID, UserID: o.UserID, Status: o.Status, UpdatedAt: o.UpdatedAt}
	if err := c.SetJSON(ctx, redisx.OrderStatusKey(o.ID), st, redisx.TTLStatusCache); err != nil {
		logger.FromCtx(ctx).Warn("order status cache set", "order_id", o.ID, "err", err)
	}
	return st
}

// statusChanged runs the side effects of a committed transition.
func statusChanged(ctx context.Context, c Cache, ev Events, o orders.Order, from orders.Status) {
	metrics.StatusTransitions.WithLabelValues(string(o.Status)).Inc()
	cacheStatus(ctx, c, o)
	if err := ev.StatusChanged(middleware.GetReqID(ctx), o, from); err != nil {
		logger.FromCtx(ctx).Error("publish status changed", "order_id", o.ID, "err", err)
	}
}
