package config_test

import (
	"testing"
	"time"

	"dealer-ledger/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE", "memory")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("RESTORE_STOCK_ON_DELETE", "true")
	t.Setenv("REDIS_LOCK_TTL", "5s")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %s", cfg.Server.Port)
	}
	if cfg.Ledger.Store != config.StoreMemory || !cfg.Ledger.RestoreStockOnDelete {
		t.Errorf("ledger config = %+v", cfg.Ledger)
	}
	if cfg.Redis.LockTTL != 5*time.Second {
		t.Errorf("lock ttl = %s", cfg.Redis.LockTTL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{"postgres without url", config.Config{Ledger: config.LedgerConfig{Store: config.StorePostgres}}, true},
		{"postgres with url", config.Config{
			Ledger:   config.LedgerConfig{Store: config.StorePostgres},
			Database: config.DatabaseConfig{URL: "postgres://localhost/ledger"},
		}, false},
		{"memory", config.Config{Ledger: config.LedgerConfig{Store: config.StoreMemory}}, false},
		{"unknown", config.Config{Ledger: config.LedgerConfig{Store: "sqlite"}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
