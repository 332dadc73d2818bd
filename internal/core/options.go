package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Lock keys shared by every process writing to the same database.
const (
	saleNumberLockKey  = "dealer-ledger:sale-number"
	orderNumberLockKey = "dealer-ledger:order-number"
)

func saleLockKey(id int) string  { return fmt.Sprintf("dealer-ledger:sale:%d", id) }
func orderLockKey(id int) string { return fmt.Sprintf("dealer-ledger:order:%d", id) }

// OperationObserver receives the outcome of every lifecycle operation.
type OperationObserver interface {
	ObserveOperation(op string, err error, elapsed time.Duration)
}

// Options configures SaleService and OrderService. The zero value is usable.
type Options struct {
	Logger   *zap.Logger
	Locker   Locker
	Observer OperationObserver
	Now      func() time.Time

	// RestoreStockOnDelete returns the boxes of deleted sale lines to inventory.
	RestoreStockOnDelete bool
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Locker == nil {
		o.Locker = NoopLocker
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// operation carries the plumbing shared by both services.
type operation struct {
	opts Options
}

// run acquires keys in order, then executes fn, reporting the outcome to the observer.
func (o operation) run(ctx context.Context, name string, keys []string, fn func() error) (err error) {
	start := time.Now()
	defer func() {
		if o.opts.Observer != nil {
			o.opts.Observer.ObserveOperation(name, err, time.Since(start))
		}
	}()

	for _, key := range keys {
		unlock, lerr := o.opts.Locker.Lock(ctx, key)
		if lerr != nil {
			return fmt.Errorf("failed to acquire lock %s: %w", key, lerr)
		}
		defer unlock()
	}
	return fn()
}

func (o operation) now() time.Time {
	return o.opts.Now().UTC()
}

// allocateSaleNumber must be called inside the transaction that inserts the sale.
func allocateSaleNumber(ctx context.Context, sales SaleRepository) (string, error) {
	highest, count, err := sales.HighestSaleNumber(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to allocate sale number: %w", err)
	}
	return NextSaleNumber(highest, count), nil
}
