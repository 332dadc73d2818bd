// restore-seed is a one-shot tool to reset the ledger to its demo data.
// It wipes sales and orders, then restores the dealers and catalog below.
//
// Usage: go run ./cmd/restore-seed
package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"dealer-ledger/internal/config"
	"dealer-ledger/internal/core"
	"dealer-ledger/internal/db"
	"dealer-ledger/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zlog, err := logger.New(cfg.Server.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		zlog.Fatal("failed to connect", zap.Error(err))
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		zlog.Fatal("failed to begin transaction", zap.Error(err))
	}
	defer tx.Rollback(ctx)

	zlog.Info("clearing sales and orders")
	if _, err := tx.Exec(ctx, `
		DELETE FROM dealer_sale_items;
		DELETE FROM dealer_sales;
		DELETE FROM order_items;
		DELETE FROM orders;
	`); err != nil {
		zlog.Fatal("failed to clear ledger data", zap.Error(err))
	}

	zlog.Info("restoring dealers")
	if _, err := tx.Exec(ctx, `
		INSERT INTO dealers (company_name, discount_percent)
		SELECT d.name, d.pct
		FROM (VALUES
		    ($1::text,                  0::numeric),
		    ('Dépanneur Lavoie',        10),
		    ('Quincaillerie Tremblay',  15),
		    ('Marché Gagnon',           5)
		) AS d(name, pct)
		WHERE NOT EXISTS (SELECT 1 FROM dealers x WHERE x.company_name = d.name);
	`, core.OrderDealerName); err != nil {
		zlog.Fatal("failed to restore dealers", zap.Error(err))
	}

	zlog.Info("restoring catalog")
	if _, err := tx.Exec(ctx, `
		INSERT INTO products (name, price, stock, pack_size, track_stock)
		SELECT p.name, p.price, p.stock, p.pack_size, p.track
		FROM (VALUES
		    ('Ceramic Tile 30x30',   2.49::numeric, 120, 12, true),
		    ('Porcelain Tile 60x60', 7.95,          40,  4,  true),
		    ('Grout 10kg',           18.50,         25,  1,  true),
		    ('Tile Spacers',         0.05,          10,  500, true),
		    ('Installation Service', 45.00,         0,   1,  false)
		) AS p(name, price, stock, pack_size, track)
		WHERE NOT EXISTS (SELECT 1 FROM products x WHERE x.name = p.name);
	`); err != nil {
		zlog.Fatal("failed to restore catalog", zap.Error(err))
	}

	if err := tx.Commit(ctx); err != nil {
		zlog.Fatal("failed to commit", zap.Error(err))
	}

	zlog.Info("seed data restored")
}
