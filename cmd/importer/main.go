package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"storefront-checkout/internal/config"
	"storefront-checkout/internal/db"
	"storefront-checkout/internal/importer"
	manualorderrepo "storefront-checkout/internal/repository/manualorder"
	manualordersvc "storefront-checkout/internal/service/manualorder"
)

func main() {
	var (
		filePath  string
		createdBy string
	)
	flag.StringVar(&filePath, "file", "", "Path to manual order CSV")
	flag.StringVar(&createdBy, "created-by", "importer", "Staff identifier recorded on imported orders")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[importer] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString, db.Options{MaxConns: cfg.DBMaxConns})
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatalf("open file: %v", err)
	}
	defer f.Close()

	svc := manualordersvc.New(manualorderrepo.NewPostgres(pool), nil)
	imp := importer.NewCSVImporter(f, svc, createdBy)

	start := time.Now()
	res, err := imp.Run(ctx)
	if err != nil {
		logger.Fatalf("import failed after %d orders: %v", len(res.Created), err)
	}

	refs := make([]string, 0, len(res.Rejected))
	for ref := range res.Rejected {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	for _, ref := range refs {
		for _, msg := range res.Rejected[ref].Summary() {
			fmt.Printf("rejected %s: %s\n", ref, msg)
		}
	}

	fmt.Printf("Imported %d orders (%d rejected) in %s\n", len(res.Created), len(refs), time.Since(start).Truncate(time.Millisecond))
}
