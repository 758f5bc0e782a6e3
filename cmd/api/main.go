package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/redisx"
)

const devJWTSecret = "dev-only-secret"

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.ServiceName)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, using an insecure development secret")
		cfg.JWTSecret = devJWTSecret
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PGMaxConns)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("migrate", "err", err)
			os.Exit(1)
		}
		log.Info("schema migrated")
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start()

	pricing := cart.Pricing{
		ShippingFlatCents:          cfg.ShippingFlatCents,
		FreeShippingThresholdCents: cfg.FreeShippingThresholdCents,
	}
	products := &catalog.Repo{DB: db}
	router := httpx.NewRouter(httpx.Deps{
		Log:     log,
		Catalog: products,
		Cart:    &cart.Service{Store: &cart.Repo{DB: db}, Products: products, Pricing: pricing},
		Orders:  &orders.Repo{DB: db, Pricing: pricing},
		Accounts: &auth.Service{
			Users:       &auth.Repo{DB: db},
			Secret:      []byte(cfg.JWTSecret),
			TTL:         cfg.JWTTTL,
			AdminEmails: cfg.AdminEmails,
		},
		Cache:             &redisx.Cache{R: rdb},
		Events:            orders.Events{Pub: prod, Producer: cfg.ServiceName},
		CORSOrigins:       cfg.CORSOrigins,
		LowStockThreshold: cfg.LowStockThreshold,
	})

	// HTTP server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error("http shutdown", "err", err)
	}
	prod.Close()      // stop accepting, flush the inbox
	prod.WaitClosed() // writer closed
}
