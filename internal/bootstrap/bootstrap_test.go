package bootstrap_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"dealer-ledger/internal/bootstrap"
	"dealer-ledger/internal/config"
	"dealer-ledger/internal/store/memory"
)

func TestNew_MemoryStore(t *testing.T) {
	cfg := &config.Config{Ledger: config.LedgerConfig{Store: config.StoreMemory}}

	l, err := bootstrap.New(context.Background(), cfg, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	if _, ok := l.Store.(*memory.Store); !ok {
		t.Fatalf("store = %T, want *memory.Store", l.Store)
	}
	res, err := l.App.ListInvoices(context.Background())
	if err != nil {
		t.Fatalf("ListInvoices: %v", err)
	}
	if len(res.Sales) != 0 {
		t.Errorf("fresh store has %d invoices", len(res.Sales))
	}
	l.Close() // second close is a no-op
}
