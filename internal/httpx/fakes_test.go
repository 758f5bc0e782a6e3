package httpx

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/orders"
)

type MockCatalog struct{ mock.Mock }

func (m *MockCatalog) List(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockCatalog) Get(ctx context.Context, id string) (catalog.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(catalog.Product), args.Error(1)
}

func (m *MockCatalog) Create(ctx context.Context, in catalog.ProductInput) (catalog.Product, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(catalog.Product), args.Error(1)
}

func (m *MockCatalog) Update(ctx context.Context, id string, in catalog.ProductInput) (catalog.Product, error) {
	args := m.Called(ctx, id, in)
	return args.Get(0).(catalog.Product), args.Error(1)
}

func (m *MockCatalog) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalog) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

type MockCarts struct{ mock.Mock }

func (m *MockCarts) Summary(ctx context.Context, userID string) (cart.Summary, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(cart.Summary), args.Error(1)
}

func (m *MockCarts) Add(ctx context.Context, userID, productID string, qty int) (cart.Summary, error) {
	args := m.Called(ctx, userID, productID, qty)
	return args.Get(0).(cart.Summary), args.Error(1)
}

func (m *MockCarts) SetQuantity(ctx context.Context, userID, productID string, qty int) (cart.Summary, error) {
	args := m.Called(ctx, userID, productID, qty)
	return args.Get(0).(cart.Summary), args.Error(1)
}

func (m *MockCarts) Remove(ctx context.Context, userID, productID string) (cart.Summary, error) {
	args := m.Called(ctx, userID, productID)
	return args.Get(0).(cart.Summary), args.Error(1)
}

func (m *MockCarts) Clear(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockCarts) Merge(ctx context.Context, userID string, guest []cart.Line) (cart.Summary, error) {
	args := m.Called(ctx, userID, guest)
	return args.Get(0).(cart.Summary), args.Error(1)
}

type MockOrders struct{ mock.Mock }

func (m *MockOrders) Checkout(ctx context.Context, in orders.CheckoutInput) (orders.Order, bool, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(orders.Order), args.Bool(1), args.Error(2)
}

func (m *MockOrders) Get(ctx context.Context, id string) (orders.Order, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(orders.Order), args.Error(1)
}

func (m *MockOrders) List(ctx context.Context, f orders.ListFilter) ([]orders.Order, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]orders.Order), args.Error(1)
}

func (m *MockOrders) UpdateStatus(ctx context.Context, id string, to orders.Status) (orders.Status, error) {
	args := m.Called(ctx, id, to)
	return args.Get(0).(orders.Status), args.Error(1)
}

func (m *MockOrders) Cancel(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockOrders) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOrders) Stats(ctx context.Context, lowStockThreshold int) (orders.Stats, error) {
	args := m.Called(ctx, lowStockThreshold)
	return args.Get(0).(orders.Stats), args.Error(1)
}

// MockAccounts mocks the user store calls and signs real tokens.
type MockAccounts struct {
	mock.Mock
	tokens *auth.Service
}

func (m *MockAccounts) Register(ctx context.Context, email, password string) (auth.User, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(auth.User), args.Error(1)
}

func (m *MockAccounts) Login(ctx context.Context, email, password string) (string, auth.User, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Get(1).(auth.User), args.Error(2)
}

func (m *MockAccounts) Me(ctx context.Context, p auth.Principal) (auth.User, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(auth.User), args.Error(1)
}

func (m *MockAccounts) ParseToken(token string) (auth.Principal, error) {
	return m.tokens.ParseToken(token)
}

type memCache struct {
	mu       sync.Mutex
	data     map[string][]byte
	versions map[string]int64
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, versions: map[string]int64{}}
}

func (c *memCache) GetJSON(_ context.Context, key string, out any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, out)
}

func (c *memCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) Version(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[key], nil
}

func (c *memCache) Bump(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[key]++
	return nil
}

type published struct {
	event string
	order orders.Order
	from  orders.Status
}

type recordingEvents struct {
	mu   sync.Mutex
	sent []published
}

func (e *recordingEvents) Created(_ string, o orders.Order) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, published{event: orders.EventOrderCreated, order: o})
	return nil
}

func (e *recordingEvents) StatusChanged(_ string, o orders.Order, from orders.Status) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, published{event: orders.EventOrderStatusChanged, order: o, from: from})
	return nil
}
