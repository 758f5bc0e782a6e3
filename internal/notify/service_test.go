package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/auth"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/orders"
)

type memDedup struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (d *memDedup) MarkOnce(_ context.Context, key string, _ time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.keys[key] {
		return false, nil
	}
	d.keys[key] = true
	return true, nil
}

func (d *memDedup) Delete(_ context.Context, keys ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, k := range keys {
		delete(d.keys, k)
	}
	return nil
}

type MockUsers struct{ mock.Mock }

func (m *MockUsers) ByID(ctx context.Context, id string) (auth.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(auth.User), args.Error(1)
}

type mail struct{ to, subject, body string }

type fakeMailer struct {
	sent []mail
	err  error
}

func (f *fakeMailer) Send(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, mail{to, subject, body})
	return nil
}

func newService() (*Service, *memDedup, *MockUsers, *fakeMailer) {
	d, u, m := &memDedup{keys: map[string]bool{}}, new(MockUsers), &fakeMailer{}
	return &Service{
		Dedup: d, Users: u, Mail: m,
		Log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		ServiceName: "storefront-notify",
	}, d, u, m
}

func message(t *testing.T, env orders.Envelope, err error) kafkago.Message {
	t.Helper()
	require.NoError(t, err)
	return kafkago.Message{Topic: orders.TopicFor(env.EventType), Value: kafkax.MustMarshal(env)}
}

var placed = orders.Order{
	ID: "0f8c2a1e-5b7d-4c1e-9a3b-2d6f8e9a1b2c", UserID: "u-1", TotalCents: 4597,
	Items: []orders.OrderItem{{ProductID: "tee", ProductName: "Blue T-Shirt", UnitPriceCents: 1999, Quantity: 2}},
}

func TestHandle_OrderCreatedSendsConfirmationOnce(t *testing.T) {
	ctx := context.Background()
	svc, _, users, mailer := newService()
	users.On("ByID", ctx, "u-1").Return(auth.User{ID: "u-1", Email: "ann@shop.test"}, nil).Once()

	env, err := orders.CreatedEvent("storefront-api", "req-1", placed)
	m := message(t, env, err)

	require.NoError(t, svc.HandleOrderEvent(ctx, m))
	require.NoError(t, svc.HandleOrderEvent(ctx, m))

	require.Len(t, mailer.sent, 1)
	got := mailer.sent[0]
	assert.Equal(t, "ann@shop.test", got.to)
	assert.Equal(t, "Order confirmation #0F8C2A1E", got.subject)
	assert.Contains(t, got.body, "2 x Blue T-Shirt  $39.98")
	assert.Contains(t, got.body, "Total: $45.97")
	users.AssertExpectations(t)
}

func TestHandle_StatusChanged(t *testing.T) {
	ctx := context.Background()
	svc, _, users, mailer := newService()
	users.On("ByID", ctx, "u-1").Return(auth.User{Email: "ann@shop.test"}, nil)

	shipped := placed
	shipped.Status = orders.StatusShipped
	env, err := orders.StatusChangedEvent("storefront-api", "", shipped, orders.StatusProcessing)
	require.NoError(t, svc.HandleOrderEvent(ctx, message(t, env, err)))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Order #0F8C2A1E is shipped", mailer.sent[0].subject)
	assert.Contains(t, mailer.sent[0].body, "from processing to shipped")
}

func TestHandle_LookupFailureReleasesDedupForRetry(t *testing.T) {
	ctx := context.Background()
	svc, dedup, users, mailer := newService()
	users.On("ByID", ctx, "u-1").Return(auth.User{}, errors.New("db down")).Once()
	users.On("ByID", ctx, "u-1").Return(auth.User{Email: "ann@shop.test"}, nil).Once()

	env, err := orders.CreatedEvent("storefront-api", "", placed)
	m := message(t, env, err)

	assert.ErrorContains(t, svc.HandleOrderEvent(ctx, m), "db down")
	assert.Empty(t, dedup.keys)

	require.NoError(t, svc.HandleOrderEvent(ctx, m))
	assert.Len(t, mailer.sent, 1)
}

func TestHandle_DeletedUserIsDroppedNotRetried(t *testing.T) {
	ctx := context.Background()
	svc, _, users, mailer := newService()
	users.On("ByID", ctx, "u-1").Return(auth.User{}, auth.ErrUserNotFound).Once()

	env, err := orders.CreatedEvent("storefront-api", "", placed)
	m := message(t, env, err)

	assert.NoError(t, svc.HandleOrderEvent(ctx, m))
	assert.NoError(t, svc.HandleOrderEvent(ctx, m))
	assert.Empty(t, mailer.sent)
	users.AssertExpectations(t)
}

func TestHandle_MailFailureStillCommits(t *testing.T) {
	ctx := context.Background()
	svc, _, users, mailer := newService()
	mailer.err = errors.New("connection refused")
	users.On("ByID", ctx, "u-1").Return(auth.User{Email: "ann@shop.test"}, nil)

	env, err := orders.CreatedEvent("storefront-api", "", placed)
	assert.NoError(t, svc.HandleOrderEvent(ctx, message(t, env, err)))
}

func TestHandle_IgnoresGarbageAndUnknownTypes(t *testing.T) {
	ctx := context.Background()
	svc, _, users, mailer := newService()

	assert.NoError(t, svc.HandleOrderEvent(ctx, kafkago.Message{Value: []byte("{")}))

	env, err := orders.NewEnvelope("StockReserved", "inventory", "", "o-1", map[string]string{})
	assert.NoError(t, svc.HandleOrderEvent(ctx, message(t, env, err)))

	assert.Empty(t, mailer.sent)
	users.AssertNotCalled(t, "ByID", mock.Anything, mock.Anything)
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$0.05", money(5))
	assert.Equal(t, "$1999.00", money(199900))
}

func TestHandle_SkipsByHeaderWithoutDecoding(t *testing.T) {
	svc, _, _, mailer := newService()
	m := kafkago.Message{
		Value:   []byte("not json"),
		Headers: []kafkago.Header{{Key: "x-event-type", Value: []byte("StockReserved")}},
	}
	assert.NoError(t, svc.HandleOrderEvent(context.Background(), m))
	assert.Empty(t, mailer.sent)
}
