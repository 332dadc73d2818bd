// Package bootstrap wires configuration into the ledger services shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"dealer-ledger/internal/app"
	"dealer-ledger/internal/config"
	"dealer-ledger/internal/core"
	"dealer-ledger/internal/db"
	"dealer-ledger/internal/lock"
	"dealer-ledger/internal/store/memory"
	"dealer-ledger/internal/store/postgres"
)

// Ledger is the assembled application. Close releases the pool and Redis client.
type Ledger struct {
	App   app.ApplicationService
	Store core.Store

	closers []func()
}

func (l *Ledger) Close() {
	for i := len(l.closers) - 1; i >= 0; i-- {
		l.closers[i]()
	}
	l.closers = nil
}

// New opens the configured store and locker and builds the services on top of them.
// observer may be nil.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, observer core.OperationObserver) (*Ledger, error) {
	l := &Ledger{}

	switch cfg.Ledger.Store {
	case config.StoreMemory:
		log.Warn("using in-memory store; data is lost on exit")
		l.Store = memory.New()
	default:
		pool, err := db.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		l.closers = append(l.closers, pool.Close)
		l.Store = postgres.New(pool)
	}

	locker := core.NoopLocker
	if cfg.Redis.Address != "" {
		rdb, err := lock.Connect(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			l.Close()
			return nil, err
		}
		l.closers = append(l.closers, func() { _ = rdb.Close() })
		locker = lock.NewRedisLocker(rdb, cfg.Redis.LockTTL, log)
		log.Info("distributed locks enabled", zap.String("redis", cfg.Redis.Address))
	}

	opts := core.Options{
		Logger:               log,
		Locker:               locker,
		Observer:             observer,
		RestoreStockOnDelete: cfg.Ledger.RestoreStockOnDelete,
	}
	l.App = app.NewAppService(
		core.NewSaleService(l.Store, opts),
		core.NewOrderService(l.Store, opts),
		log,
	)
	return l, nil
}
