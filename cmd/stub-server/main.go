package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slotwise/booking-coordinator/internal/config"
	"github.com/slotwise/booking-coordinator/internal/db"
	redisclient "github.com/slotwise/booking-coordinator/internal/redis"
	"github.com/slotwise/booking-coordinator/internal/stub"
	"github.com/slotwise/booking-coordinator/pkg/logging"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)
	logger.Info("stub-server starting up", "env", cfg.Env, "http_port", cfg.HTTPPort)

	if err := cfg.RequirePostgres(); err != nil {
		logger.Error("config error", "error", err)
		os.Exit(1)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolSettings{
		MaxConns: int32(cfg.PGMaxConns),
		MinConns: int32(cfg.PGMinConns),
	}, logger)
	cancelPg()
	if err != nil {
		logger.Error("postgres connection error", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	// Connect Redis
	rdb, err := redisclient.New(redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		PoolSize: cfg.RedisPoolSize,
	}, logger)
	if err != nil {
		logger.Error("redis connection error", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", "error", err)
		}
	}()

	store := stub.NewPgStore(pgPool)
	scheduler := stub.NewScheduler(store, cfg.SlotGranularity, cfg.DepositTTL, logger)
	locks := stub.NewLockStore(rdb, cfg.LockTTL)

	router := stub.NewRouter(stub.RouterConfig{
		Scheduler: scheduler,
		Locks:     locks,
		PgPool:    pgPool,
		Redis:     rdb,
		Logger:    logger,
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr, "lock_ttl", cfg.LockTTL.String(), "deposit_ttl", cfg.DepositTTL.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down stub-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
}
