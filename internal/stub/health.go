package stub

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/slotwise/booking-coordinator/pkg/logging"
)

// HealthHandler serves liveness and readiness probes for the stub
// server. Readiness checks the Postgres pool and Redis; liveness only
// reports that the process is up.
type HealthHandler struct {
	pgPool  *pgxpool.Pool
	redis   *redis.Client
	env     string
	version string
	logger  *logging.Logger
}

func NewHealthHandler(pgPool *pgxpool.Pool, rdb *redis.Client, env, version string, logger *logging.Logger) *HealthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &HealthHandler{
		pgPool:  pgPool,
		redis:   rdb,
		env:     env,
		version: version,
		logger:  logger.Component("health"),
	}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Env     string `json:"env"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Env          string            `json:"env"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	resp := ReadinessResponse{
		Status:       "ok",
		Version:      h.version,
		Env:          h.env,
		Dependencies: map[string]string{},
	}

	if err := h.checkPostgres(r.Context()); err != nil {
		h.logger.Warn("postgres readiness check failed", "error", err)
		resp.Dependencies["postgres"] = "down"
		resp.Status = "error"
	} else {
		resp.Dependencies["postgres"] = "ok"
	}

	if err := h.checkRedis(r.Context()); err != nil {
		h.logger.Warn("redis readiness check failed", "error", err)
		resp.Dependencies["redis"] = "down"
		if resp.Status == "ok" {
			resp.Status = "degraded"
		}
	} else {
		resp.Dependencies["redis"] = "ok"
	}

	code := http.StatusOK
	if resp.Status == "error" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (h *HealthHandler) checkPostgres(ctx context.Context) error {
	if h.pgPool == nil {
		return errors.New("postgres pool not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return h.pgPool.Ping(ctx)
}

func (h *HealthHandler) checkRedis(ctx context.Context) error {
	if h.redis == nil {
		return errors.New("redis client not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return h.redis.Ping(ctx).Err()
}
