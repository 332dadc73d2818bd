// verify-db applies pending migrations from ./migrations in version order.
// Applied files are recorded with a checksum; an edited migration aborts the run.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"dealer-ledger/internal/config"
	"dealer-ledger/internal/db"
	"dealer-ledger/internal/logger"
)

const (
	migrationsDir = "migrations"
	migratorLock  = 7462839
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
	zlog = zlog.Named("migrate")

	ctx := context.Background()
	connCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	pool, err := db.NewPool(connCtx, cfg.Database)
	cancel()
	if err != nil {
		zlog.Fatal("connect failed", zap.Error(err))
	}
	defer pool.Close()
	zlog.Info("connected")

	conn := acquireLock(ctx, zlog, pool)
	defer conn.Release()

	setupSchemaMigrations(ctx, zlog, pool)

	for _, filename := range discoverMigrations(zlog) {
		applyMigration(ctx, zlog, pool, filename)
	}

	zlog.Info("all migrations processed")
}

func acquireLock(ctx context.Context, zlog *zap.Logger, pool *pgxpool.Pool) *pgxpool.Conn {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		zlog.Fatal("failed to acquire connection for lock", zap.Error(err))
	}

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", migratorLock).Scan(&locked); err != nil {
		zlog.Fatal("failed to query advisory lock", zap.Error(err))
	}
	if !locked {
		zlog.Fatal("another migrator is currently running")
	}
	return conn
}

func setupSchemaMigrations(ctx context.Context, zlog *zap.Logger, pool *pgxpool.Pool) {
	query := `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	checksum TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	if _, err := pool.Exec(ctx, query); err != nil {
		zlog.Fatal("failed to create schema_migrations table", zap.Error(err))
	}
}

func discoverMigrations(zlog *zap.Logger) []string {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		zlog.Fatal("failed to read migrations directory", zap.Error(err))
	}

	var filenames []string
	seen := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		filename := entry.Name()
		version, ok := extractVersion(filename)
		if !ok {
			zlog.Fatal("invalid migration filename, expected NNN_description.sql", zap.String("file", filename))
		}
		if seen[version] {
			zlog.Fatal("duplicate migration version", zap.String("version", version))
		}
		seen[version] = true
		filenames = append(filenames, filename)
	}

	sort.Strings(filenames)
	return filenames
}

func extractVersion(filename string) (string, bool) {
	version, _, ok := strings.Cut(filename, "_")
	return version, ok && version != ""
}

func checksum(b []byte) string {
	hash := sha256.Sum256(b)
	return hex.EncodeToString(hash[:])
}

func applyMigration(ctx context.Context, zlog *zap.Logger, pool *pgxpool.Pool, filename string) {
	version, _ := extractVersion(filename)
	flog := zlog.With(zap.String("file", filename))

	sqlBytes, err := os.ReadFile(filepath.Join(migrationsDir, filename))
	if err != nil {
		flog.Fatal("failed to read migration", zap.Error(err))
	}
	sum := checksum(sqlBytes)

	var existing string
	err = pool.QueryRow(ctx, "SELECT checksum FROM schema_migrations WHERE version = $1", version).Scan(&existing)
	switch {
	case err == nil:
		if existing != sum {
			flog.Fatal("checksum mismatch", zap.String("recorded", existing), zap.String("current", sum))
		}
		flog.Info("skip")
		return
	case errors.Is(err, pgx.ErrNoRows):
	default:
		flog.Fatal("failed to query schema_migrations", zap.Error(err))
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		flog.Fatal("failed to begin transaction", zap.Error(err))
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(sqlBytes)); err != nil {
		flog.Fatal("failed to execute migration", zap.Error(err))
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, filename, checksum) VALUES ($1, $2, $3)",
		version, filename, sum,
	); err != nil {
		flog.Fatal("failed to record migration", zap.Error(err))
	}
	if err := tx.Commit(ctx); err != nil {
		flog.Fatal("failed to commit migration", zap.Error(err))
	}

	flog.Info("applied")
}
