package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/jobs"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/ariefcatur/go-storefront/internal/notify"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	name := cfg.ServiceName + "-worker"
	log := logger.New(cfg.Env, name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PGMaxConns)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producer for status changes made by the expiry job
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 256, log)
	prod.Start()

	svc := &notify.Service{
		Dedup:       &redisx.Cache{R: rdb},
		Users:       &auth.Repo{DB: db},
		Mail:        notify.SMTPMailer{Addr: cfg.SMTPAddr, From: cfg.SMTPFrom},
		Log:         log,
		ServiceName: "notify",
	}

	runner := &jobs.Runner{
		Orders:            &orders.Repo{DB: db},
		Stock:             &catalog.Repo{DB: db},
		Events:            orders.Events{Pub: prod, Producer: name},
		Cache:             &redisx.Cache{R: rdb},
		Log:               log,
		PendingTTL:        cfg.PendingOrderTTL,
		LowStockThreshold: cfg.LowStockThreshold,
	}
	sched, err := jobs.NewScheduler(runner, cfg.StaleSweepInterval, cfg.LowStockInterval)
	if err != nil {
		log.Error("scheduler", "err", err)
		os.Exit(1)
	}
	sched.Start()

	// Consumer
	topics := []string{orders.TopicOrderCreated, orders.TopicOrderStatusChanged}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.WorkerGroup, topics, cfg.WorkerCount, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("consumer started", "group", cfg.WorkerGroup, "topics", topics, "workers", cfg.WorkerCount)
		if err := cons.Start(ctx, svc.HandleOrderEvent); err != nil {
			log.Error("consumer exit", "err", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down worker")
	cancel()
	wg.Wait()
	if err := sched.Stop(); err != nil {
		log.Error("scheduler shutdown", "err", err)
	}
	prod.Close()
	prod.WaitClosed()
}
