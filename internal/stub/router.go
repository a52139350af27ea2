package stub

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/slotwise/booking-coordinator/pkg/logging"
)

type RouterConfig struct {
	Scheduler *Scheduler
	Locks     *LockStore
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Logger    *logging.Logger
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version, logger)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Scheduling contract
	r.Get("/calendar", calendarHandler(cfg.Scheduler))
	r.Get("/availability", availabilityHandler(cfg.Scheduler))
	r.Post("/appointments", createAppointmentHandler(cfg.Scheduler))
	r.Post("/appointments/{id}/reschedule", rescheduleHandler(cfg.Scheduler))
	r.Post("/locks", acquireLockHandler(cfg.Locks))
	r.Delete("/locks/{id}", releaseLockHandler(cfg.Locks))

	return r
}
