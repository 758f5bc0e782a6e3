// Package jobs runs the worker's periodic maintenance: expiring pending
// orders nobody paid for and reporting low stock.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/metrics"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/redisx"
)

type Orders interface {
	ExpireStale(ctx context.Context, cutoff time.Time) ([]string, error)
	Get(ctx context.Context, id string) (orders.Order, error)
}

type Stock interface {
	LowStock(ctx context.Context, threshold int) ([]catalog.Product, error)
}

type Events interface {
	StatusChanged(traceID string, o orders.Order, from orders.Status) error
}

// Cache holds the API's order status entries.
type Cache interface {
	Delete(ctx context.Context, keys ...string) error
}

type Runner struct {
	Orders            Orders
	Stock             Stock
	Events            Events
	Cache             Cache
	Log               *slog.Logger
	PendingTTL        time.Duration
	LowStockThreshold int

	now func() time.Time
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

// ExpireStale cancels pending orders older than PendingTTL, drops their cached
// status and publishes a status change for each one.
func (r *Runner) ExpireStale(ctx context.Context) (int, error) {
	ids, err := r.Orders.ExpireStale(ctx, r.clock().Add(-r.PendingTTL))
	if len(ids) > 0 {
		keys := make([]string, 0, len(ids))
		for _, id := range ids {
			keys = append(keys, redisx.OrderStatusKey(id))
		}
		if cerr := r.Cache.Delete(ctx, keys...); cerr != nil {
			r.Log.Warn("drop cached status", "count", len(keys), "err", cerr)
		}
	}
	for _, id := range ids {
		metrics.StatusTransitions.WithLabelValues(string(orders.StatusCancelled)).Inc()
		o, gerr := r.Orders.Get(ctx, id)
		if gerr != nil {
			r.Log.Error("load expired order", "order_id", id, "err", gerr)
			continue
		}
		if perr := r.Events.StatusChanged("expire-stale", o, orders.StatusPending); perr != nil {
			r.Log.Error("publish expired order", "order_id", id, "err", perr)
		}
	}
	if err != nil {
		return len(ids), fmt.Errorf("expire stale orders: %w", err)
	}
	if len(ids) > 0 {
		r.Log.Info("expired stale orders", "count", len(ids))
	}
	return len(ids), nil
}

func (r *Runner) ReportLowStock(ctx context.Context) ([]catalog.Product, error) {
	ps, err := r.Stock.LowStock(ctx, r.LowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("low stock: %w", err)
	}
	for _, p := range ps {
		r.Log.Warn("low stock", "product_id", p.ID, "name", p.Name, "stock", p.StockQuantity)
	}
	return ps, nil
}

type Scheduler struct {
	s   gocron.Scheduler
	log *slog.Logger
}

// NewScheduler registers the jobs; they run once Start is called.
func NewScheduler(r *Runner, sweepEvery, lowStockEvery time.Duration) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(sweepEvery),
		gocron.NewTask(func(ctx context.Context) {
			if _, err := r.ExpireStale(ctx); err != nil {
				r.Log.Error("job failed", "job", "expire-stale-orders", "err", err)
			}
		}),
		gocron.WithName("expire-stale-orders"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("expire job: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(lowStockEvery),
		gocron.NewTask(func(ctx context.Context) {
			if _, err := r.ReportLowStock(ctx); err != nil {
				r.Log.Error("job failed", "job", "low-stock-report", "err", err)
			}
		}),
		gocron.WithName("low-stock-report"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("low stock job: %w", err)
	}
	return &Scheduler{s: s, log: r.Log}, nil
}

func (s *Scheduler) Start() {
	s.log.Info("starting job scheduler", "jobs", len(s.s.Jobs()))
	s.s.Start()
}

func (s *Scheduler) Stop() error {
	return s.s.Shutdown()
}
