package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-storefront/internal/auth"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/metrics"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/redisx"
)

// Dedup is satisfied by *redisx.Cache.
type Dedup interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

type Recipients interface {
	ByID(ctx context.Context, id string) (auth.User, error)
}

type Service struct {
	Dedup       Dedup
	Users       Recipients
	Mail        Mailer
	Log         *slog.Logger
	ServiceName string
}

func (s *Service) count(eventType, result string) {
	metrics.EventsProcessed.WithLabelValues(eventType, result).Inc()
}

// HandleOrderEvent is the consumer handler for both order topics. A nil
// return commits the offset. Mail failures, bad payloads and deleted users
// are logged and still commit. Other lookup failures release the dedup mark
// and return the error; the consumer retries the event until it succeeds.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	if t := kafkax.Header(m, "x-event-type"); t != "" && t != orders.EventOrderCreated && t != orders.EventOrderStatusChanged {
		s.count(t, "ignored")
		return nil
	}
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.Log.Warn("drop undecodable event", "topic", m.Topic, "offset", m.Offset, "err", err)
		s.count("unknown", "invalid")
		return nil
	}
	if env.EventType != orders.EventOrderCreated && env.EventType != orders.EventOrderStatusChanged {
		s.count(env.EventType, "ignored")
		return nil
	}

	dkey := redisx.DedupKey(s.ServiceName, env.EventID)
	first, err := s.Dedup.MarkOnce(ctx, dkey, redisx.TTLDedup)
	if err != nil {
		return fmt.Errorf("dedup: %w", err)
	}
	if !first {
		s.count(env.EventType, "duplicate")
		return nil
	}

	to, subject, body, err := s.compose(ctx, env)
	if errors.Is(err, errUndeliverable) || errors.Is(err, auth.ErrUserNotFound) {
		s.Log.Warn("drop undeliverable event", "event_id", env.EventID, "err", err)
		s.count(env.EventType, "undeliverable")
		return nil
	}
	if err != nil {
		_ = s.Dedup.Delete(ctx, dkey)
		s.count(env.EventType, "error")
		return err
	}

	log := s.Log.With("event_id", env.EventID, "order_id", env.CorrelationID, "trace_id", env.TraceID)
	if err := s.Mail.Send(to, subject, body); err != nil {
		log.Error("send mail", "to", to, "err", err)
		s.count(env.EventType, "mail_failed")
		return nil
	}
	log.Info("mail sent", "event_type", env.EventType, "to", to)
	s.count(env.EventType, "sent")
	return nil
}

var errUndeliverable = errors.New("undeliverable event")

func (s *Service) compose(ctx context.Context, env orders.Envelope) (to, subject, body string, _ error) {
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return "", "", "", fmt.Errorf("%w: %v", errUndeliverable, err)
		}
		u, err := s.Users.ByID(ctx, p.UserID)
		if err != nil {
			return "", "", "", fmt.Errorf("recipient %s: %w", p.UserID, err)
		}
		return u.Email, "Order confirmation " + shortID(p.OrderID), confirmation(p), nil
	default:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return "", "", "", fmt.Errorf("%w: %v", errUndeliverable, err)
		}
		u, err := s.Users.ByID(ctx, p.UserID)
		if err != nil {
			return "", "", "", fmt.Errorf("recipient %s: %w", p.UserID, err)
		}
		return u.Email, fmt.Sprintf("Order %s is %s", shortID(p.OrderID), p.To), statusUpdate(p), nil
	}
}

func confirmation(p orders.OrderCreatedPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thanks for your order %s.\n\n", shortID(p.OrderID))
	for _, it := range p.Items {
		fmt.Fprintf(&b, "  %d x %s  %s\n", it.Quantity, it.ProductName, money(it.UnitPriceCents*it.Quantity))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", money(p.TotalCents))
	return b.String()
}

func statusUpdate(p orders.OrderStatusChangedPayload) string {
	if p.To == orders.StatusCancelled {
		return fmt.Sprintf("Your order %s has been cancelled.\n", shortID(p.OrderID))
	}
	return fmt.Sprintf("Your order %s moved from %s to %s.\n", shortID(p.OrderID), p.From, p.To)
}

func shortID(id string) string {
	if len(id) > 8 {
		return "#" + strings.ToUpper(id[:8])
	}
	return "#" + strings.ToUpper(id)
}

func money(cents int) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
