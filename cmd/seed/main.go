package main

import (
	"context"
	"log"
	"os"

	"storefront-checkout/internal/config"
	"storefront-checkout/internal/db"
	manualorderrepo "storefront-checkout/internal/repository/manualorder"
	"storefront-checkout/internal/seed"
	manualordersvc "storefront-checkout/internal/service/manualorder"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, db.Options{MaxConns: cfg.DBMaxConns})
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	svc := manualordersvc.New(manualorderrepo.NewPostgres(pool), nil)
	n, err := seed.Apply(ctx, svc)
	if err != nil {
		logger.Fatalf("seed apply: %v", err)
	}

	logger.Printf("seed applied, %d demo orders created", n)
}
