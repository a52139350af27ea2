// simulate drives concurrent simulated operators against a running
// stub-server: availability queries, lock-protected and unprotected
// bookings, and reschedules. It reports how often operators collide,
// which is the advisory lock's reason to exist.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-coordinator/internal/availability"
	"github.com/slotwise/booking-coordinator/internal/config"
	"github.com/slotwise/booking-coordinator/internal/db"
	"github.com/slotwise/booking-coordinator/internal/remote"
	"github.com/slotwise/booking-coordinator/internal/schedule"
	"github.com/slotwise/booking-coordinator/internal/slotlock"
	"github.com/slotwise/booking-coordinator/internal/wizard"
	"github.com/slotwise/booking-coordinator/pkg/logging"
)

type SimConfig struct {
	APIBaseURL string
	Duration   time.Duration
	Workers    int
	LockRatio  float64 // share of bookings that acquire an advisory lock first
}

func loadSimConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL: getEnv("SIM_API_BASE_URL", "http://127.0.0.1:8080"),
		Duration:   30 * time.Second,
		Workers:    8,
		LockRatio:  0.5,
	}
	if v := os.Getenv("SIM_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Duration = d
		}
	}
	if v := os.Getenv("SIM_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("SIM_LOCK_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			cfg.LockRatio = f
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// DataPool holds the ids the operators pick from, loaded straight from
// the stub's database, plus appointments created during the run.
type DataPool struct {
	Services []uuid.UUID
	Clients  []uuid.UUID

	mu           sync.RWMutex
	appointments []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment() (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rand.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	mu        sync.Mutex
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, err error) {
	om.mu.Lock()
	defer om.mu.Unlock()
	om.Total++
	switch {
	case err == nil:
		om.Success++
	case errors.Is(err, remote.ErrConflict):
		om.Conflict++
	default:
		om.Error++
	}
	om.Latencies = append(om.Latencies, latency)
}

func (om *OperationMetrics) Stats() (p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()
	if len(om.Latencies) == 0 {
		return 0, 0
	}
	sorted := make([]time.Duration, len(om.Latencies))
	copy(sorted, om.Latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[len(sorted)*50/100], sorted[len(sorted)*95/100]
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	appCfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if err := appCfg.RequirePostgres(); err != nil {
		log.Fatalf("config error: %v", err)
	}
	simCfg := loadSimConfig()

	ctx, cancel := context.WithTimeout(context.Background(), simCfg.Duration)
	defer cancel()

	pool, err := loadDataPool(ctx, appCfg.PostgresDSN)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	log.Printf("data pool: %d services, %d clients", len(pool.Services), len(pool.Clients))

	logger := logging.New("warn")

	bookings := &OperationMetrics{}
	lockedBookings := &OperationMetrics{}
	reschedules := &OperationMetrics{}
	reads := &OperationMetrics{}

	var wg sync.WaitGroup
	for i := 0; i < simCfg.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rc := remote.NewClient(simCfg.APIBaseURL, "", appCfg.RequestTimeout, logger)
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)))

			for ctx.Err() == nil {
				switch op := rng.Float64(); {
				case op < 0.55:
					useLock := rng.Float64() < simCfg.LockRatio
					m := bookings
					if useLock {
						m = lockedBookings
					}
					runBooking(ctx, rc, logger, pool, rng, useLock, m)
				case op < 0.75:
					runReschedule(ctx, rc, pool, rng, reschedules)
				default:
					runCalendarRead(ctx, rc, rng, reads)
				}
			}
		}(i)
	}
	wg.Wait()

	report("bookings (no lock)", bookings)
	report("bookings (locked)", lockedBookings)
	report("reschedules", reschedules)
	report("calendar reads", reads)
}

// runBooking walks one operator through the real wizard: open pre-seeded
// with service and date, any staff, wait for slots, pick one of the
// earliest (that is what makes operators collide), client, create.
func runBooking(ctx context.Context, rc *remote.Client, logger *logging.Logger, pool *DataPool, rng *rand.Rand, useLock bool, m *OperationMetrics) {
	svc := schedule.Service{ID: pool.Services[rng.Intn(len(pool.Services))]}
	clientID := pool.Clients[rng.Intn(len(pool.Clients))]
	date := time.Now().AddDate(0, 0, 1+rng.Intn(7))

	var locks wizard.LockManager
	if useLock {
		locks = slotlock.NewManager(rc, logger)
	}
	w := wizard.New(availability.NewClient(rc), rc, locks, logger, wizard.Options{Service: &svc, Date: &date})
	defer w.Close(context.Background())

	w.SelectStaff(ctx, nil) // any available

	snap, ok := awaitSlots(ctx, w)
	if !ok || len(snap.Slots) == 0 {
		return
	}
	slot := snap.Slots[rng.Intn(min(5, len(snap.Slots)))]
	w.SelectSlot(ctx, slot)
	w.SelectClient(schedule.Client{ID: clientID})

	start := time.Now()
	appt, err := w.CreateBooking(ctx)
	m.Record(time.Since(start), err)
	if err == nil {
		pool.AddAppointment(appt.ID)
	}
}

// awaitSlots polls until the availability load kicked off by the last
// selection finishes.
func awaitSlots(ctx context.Context, w *wizard.Wizard) (wizard.Snapshot, bool) {
	deadline := time.Now().Add(5 * time.Second)
	for {
		snap := w.Snapshot()
		if !snap.LoadingSlots {
			return snap, snap.Err == nil
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			return snap, false
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func runReschedule(ctx context.Context, rc *remote.Client, pool *DataPool, rng *rand.Rand, m *OperationMetrics) {
	id, ok := pool.RandomAppointment()
	if !ok {
		return
	}
	newStart := time.Now().AddDate(0, 0, 1+rng.Intn(7))
	newStart = time.Date(newStart.Year(), newStart.Month(), newStart.Day(), 9+rng.Intn(8), 15*rng.Intn(4), 0, 0, time.Local)

	start := time.Now()
	_, err := rc.Reschedule(ctx, id, newStart, nil)
	m.Record(time.Since(start), err)
}

func runCalendarRead(ctx context.Context, rc *remote.Client, rng *rand.Rand, m *OperationMetrics) {
	day := time.Now().AddDate(0, 0, rng.Intn(7))
	start := time.Now()
	_, err := rc.Calendar(ctx, day, day.AddDate(0, 0, 6), nil)
	m.Record(time.Since(start), err)
}

func loadDataPool(ctx context.Context, dsn string) (*DataPool, error) {
	pgPool, err := db.ConnectPostgres(ctx, dsn, db.DefaultPoolSettings(), nil)
	if err != nil {
		return nil, err
	}
	defer pgPool.Close()

	pool := &DataPool{}

	rows, err := pgPool.Query(ctx, `SELECT id FROM services WHERE active LIMIT 50`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		pool.Services = append(pool.Services, id)
	}

	crows, err := pgPool.Query(ctx, `SELECT id FROM clients LIMIT 500`)
	if err != nil {
		return nil, err
	}
	defer crows.Close()
	for crows.Next() {
		var id uuid.UUID
		if err := crows.Scan(&id); err != nil {
			return nil, err
		}
		pool.Clients = append(pool.Clients, id)
	}

	if len(pool.Services) == 0 || len(pool.Clients) == 0 {
		return nil, fmt.Errorf("database is empty, run cmd/seed first")
	}
	return pool, nil
}

func report(name string, m *OperationMetrics) {
	p50, p95 := m.Stats()
	var conflictRate float64
	if m.Total > 0 {
		conflictRate = float64(m.Conflict) / float64(m.Total) * 100
	}
	fmt.Printf("%-20s total=%-6d success=%-6d conflict=%-5d (%.1f%%) error=%-5d p50=%s p95=%s\n",
		name, m.Total, m.Success, m.Conflict, conflictRate, m.Error, p50, p95)
}
