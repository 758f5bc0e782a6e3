package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/metrics"
	"github.com/ariefcatur/go-storefront/internal/orders"
)

type Catalog interface {
	List(ctx context.Context, f catalog.Filter) ([]catalog.Product, error)
	Get(ctx context.Context, id string) (catalog.Product, error)
	Create(ctx context.Context, in catalog.ProductInput) (catalog.Product, error)
	Update(ctx context.Context, id string, in catalog.ProductInput) (catalog.Product, error)
	Delete(ctx context.Context, id string) error
	Categories(ctx context.Context) ([]string, error)
}

type Carts interface {
	Summary(ctx context.Context, userID string) (cart.Summary, error)
	Add(ctx context.Context, userID, productID string, qty int) (cart.Summary, error)
	SetQuantity(ctx context.Context, userID, productID string, qty int) (cart.Summary, error)
	Remove(ctx context.Context, userID, productID string) (cart.Summary, error)
	Clear(ctx context.Context, userID string) error
	Merge(ctx context.Context, userID string, guest []cart.Line) (cart.Summary, error)
}

type Orders interface {
	Checkout(ctx context.Context, in orders.CheckoutInput) (orders.Order, bool, error)
	Get(ctx context.Context, id string) (orders.Order, error)
	List(ctx context.Context, f orders.ListFilter) ([]orders.Order, error)
	UpdateStatus(ctx context.Context, id string, to orders.Status) (orders.Status, error)
	Cancel(ctx context.Context, userID, id string) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, lowStockThreshold int) (orders.Stats, error)
}

type Accounts interface {
	Register(ctx context.Context, email, password string) (auth.User, error)
	Login(ctx context.Context, email, password string) (string, auth.User, error)
	Me(ctx context.Context, p auth.Principal) (auth.User, error)
	ParseToken(token string) (auth.Principal, error)
}

// Cache is the best-effort JSON cache; *redisx.Cache implements it.
type Cache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Version(ctx context.Context, key string) (int64, error)
	Bump(ctx context.Context, key string) error
}

// Events is satisfied by orders.Events.
type Events interface {
	Created(traceID string, o orders.Order) error
	StatusChanged(traceID string, o orders.Order, from orders.Status) error
}

type Deps struct {
	Log               *slog.Logger
	Catalog           Catalog
	Cart              Carts
	Orders            Orders
	Accounts          Accounts
	Cache             Cache
	Events            Events
	CORSOrigins       []string
	LowStockThreshold int
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(d.Log), middleware.Recoverer)
	r.Use(metrics.Middleware, cors(d.CORSOrigins))
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	products := &ProductsHandler{Catalog: d.Catalog, Cache: d.Cache}
	accounts := &AuthHandler{Accounts: d.Accounts}
	carts := &CartHandler{Cart: d.Cart}
	ords := &OrdersHandler{Orders: d.Orders, Cache: d.Cache, Events: d.Events}
	admin := &AdminHandler{
		Catalog: d.Catalog, Orders: d.Orders, Cache: d.Cache, Events: d.Events,
		LowStockThreshold: d.LowStockThreshold,
	}

	requireUser := auth.RequireUser(d.Accounts, writeError)
	r.Route("/api", func(r chi.Router) {
		products.Register(r)
		accounts.RegisterPublic(r)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			accounts.Register(r)
			carts.Register(r)
			ords.Register(r)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireUser, auth.RequireAdmin(writeError))
			admin.Register(r)
		})
	})
	return r
}

// principal is only called behind RequireUser.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}
