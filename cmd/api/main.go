package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront-checkout/internal/analytics"
	"storefront-checkout/internal/cache"
	"storefront-checkout/internal/cartstore"
	"storefront-checkout/internal/checkout"
	"storefront-checkout/internal/config"
	"storefront-checkout/internal/db"
	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/httpserver"
	"storefront-checkout/internal/refdata"
	"storefront-checkout/internal/remote"
	attemptrepo "storefront-checkout/internal/repository/attempt"
	manualorderrepo "storefront-checkout/internal/repository/manualorder"
	manualordersvc "storefront-checkout/internal/service/manualorder"
	"storefront-checkout/internal/session"
)

const sessionSweepInterval = time.Minute

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString, db.Options{MaxConns: cfg.DBMaxConns})
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	client, err := remote.New(remote.Config{
		BaseURL: cfg.CommerceAPIURL,
		Timeout: cfg.RemoteTimeout,
	}, logger)
	if err != nil {
		logger.Fatalf("init commerce client: %v", err)
	}

	var productCache cache.ProductCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Printf("redis unavailable, product cache reads will fall through: %v", err)
		}
		productCache = cache.NewRedisCache(rdb, cfg.ProductCacheTTL)
	}
	catalog := cartstore.NewCatalogReader(client, productCache, logger)

	rates := refdata.New("shipping-rates", client.FetchShippingRates, refdata.Options[domain.RateTable]{
		Interval: cfg.RefdataInterval,
		MinGap:   cfg.RefdataMinGap,
		OnChange: func(t domain.RateTable) {
			logger.Printf("shipping rates updated: dhaka=%.2f outside_dhaka=%.2f", t.Dhaka, t.OutsideDhaka)
		},
	}, logger)
	rates.Start(ctx)
	defer rates.Stop()

	var tracker checkout.PurchaseTracker = analytics.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := analytics.NewKafkaPublisher(cfg.KafkaPurchaseTopic, logger, cfg.KafkaBrokers...)
		defer publisher.Close()
		tracker = publisher
	}

	attempts := attemptrepo.NewPostgres(dbpool)
	sessionDeps := session.Deps{
		Cart:              client,
		Products:          catalog,
		Rates:             rates,
		Classifier:        client,
		Orders:            client,
		Tracker:           tracker,
		Recorder:          attempts,
		EnrichConcurrency: cfg.EnrichConcurrency,
		MutationTimeout:   cfg.RemoteTimeout,
		CheckoutTimeout:   cfg.CheckoutTimeout,
		Logger:            logger,
	}
	registry := session.NewRegistry(cfg.SessionTTL, sessionDeps.Build)
	go registry.Run(ctx, sessionSweepInterval, logger)

	manualOrders := manualordersvc.New(manualorderrepo.NewPostgres(dbpool), catalog)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Sessions:     registry,
		Rates:        rates,
		ManualOrders: manualOrders,
		Attempts:     attempts,
		CORSOrigins:  cfg.CORSOrigins,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
	stop()
}
