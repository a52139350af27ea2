package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slotwise/booking-coordinator/internal/config"
	"github.com/slotwise/booking-coordinator/internal/db"
	"github.com/slotwise/booking-coordinator/internal/stub"
	"github.com/slotwise/booking-coordinator/pkg/logging"
)

// The worker only tends the database side: pending-deposit appointments
// whose deposit window lapsed are cancelled. Slot locks expire on their
// own via Redis TTLs.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)
	logger.Info("expiry-worker starting up", "env", cfg.Env, "interval", cfg.WorkerInterval.String())

	if err := cfg.RequirePostgres(); err != nil {
		logger.Error("config error", "error", err)
		os.Exit(1)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	store := stub.NewPgStore(pgPool)
	scheduler := stub.NewScheduler(store, cfg.SlotGranularity, cfg.DepositTTL, logger)

	// Run once at startup
	runOnce(rootCtx, scheduler, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping expiry worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, scheduler, logger)
		}
	}
}

func runOnce(ctx context.Context, scheduler *stub.Scheduler, logger *logging.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := scheduler.ExpireLapsedDeposits(runCtx); err != nil {
		logger.Warn("expiry run error", "error", err)
		return
	}
	logger.Info("expiry run complete", "duration", time.Since(start).String())
}
