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

	"go.uber.org/zap"

	webAdapter "dealer-ledger/internal/adapters/web"
	"dealer-ledger/internal/bootstrap"
	"dealer-ledger/internal/config"
	"dealer-ledger/internal/logger"
	"dealer-ledger/internal/metrics"
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

	if cfg.Auth.JWTSecret == "" {
		if cfg.IsProduction() {
			zlog.Fatal("JWT_SECRET must be set in production")
		}
		zlog.Warn("JWT_SECRET is not set; every protected request will be rejected")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New("dealer_ledger")
	ledger, err := bootstrap.New(ctx, cfg, zlog, m)
	if err != nil {
		zlog.Fatal("startup failed", zap.Error(err))
	}
	defer ledger.Close()

	handler := webAdapter.NewHandler(ledger.App, webAdapter.Config{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		JWTSecret:      cfg.Auth.JWTSecret,
		Logger:         zlog,
		Metrics:        m,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		zlog.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Ledger.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
