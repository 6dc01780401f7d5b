package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/noah-isme/backend-ayurmart/internal/catalog"
	"github.com/noah-isme/backend-ayurmart/internal/db"
	"github.com/noah-isme/backend-ayurmart/internal/voucher"
)

func main() {
	var (
		migrateFirst = flag.Bool("migrate", true, "apply pending migrations before seeding")
		skipVouchers = flag.Bool("skip-vouchers", false, "seed products only")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if *migrateFirst {
		if err := db.Migrate(dbURL); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	products := catalog.PGRepository{Pool: pool}
	for _, p := range catalog.DemoProducts() {
		if err := products.Upsert(ctx, p); err != nil {
			log.Fatalf("seed product %s: %v", p.Slug, err)
		}
		log.Printf("product %s (%d tiers)", p.Slug, len(p.Tiers))
	}

	if !*skipVouchers {
		vouchers := voucher.PGRepository{Pool: pool}
		for _, rule := range voucher.DemoRules() {
			if err := vouchers.Upsert(ctx, rule); err != nil {
				log.Fatalf("seed voucher %s: %v", rule.Code, err)
			}
			log.Printf("voucher %s", rule.Code)
		}
	}

	log.Println("Seeding completed successfully!")
}
