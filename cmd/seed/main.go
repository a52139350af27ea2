package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/booking-coordinator/internal/db"
	"github.com/slotwise/booking-coordinator/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, db.DefaultPoolSettings(), nil)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	staffIDs, err := seedStaff(context.Background(), pool, 12)
	if err != nil {
		log.Fatalf("seed staff: %v", err)
	}
	serviceIDs, err := seedServices(context.Background(), pool)
	if err != nil {
		log.Fatalf("seed services: %v", err)
	}
	clientIDs, err := seedClients(context.Background(), pool, 400)
	if err != nil {
		log.Fatalf("seed clients: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, staffIDs, serviceIDs, clientIDs, 300); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

var palette = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231", "#911eb4",
	"#46f0f0", "#f032e6", "#bcf60c", "#008080", "#9a6324",
}

func seedStaff(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d staff", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		color := palette[i%len(palette)]

		_, err := tx.Exec(ctx, `
			INSERT INTO staff (id, name, color, active, created_at, updated_at)
			VALUES ($1, $2, $3, TRUE, now(), now())
		`, id, name, color)
		if err != nil {
			return nil, err
		}

		// Tue-Sat, 9:00-13:00 and 14:00-18:00, with some staff doing a
		// single 10:00-16:00 stretch.
		for weekday := 2; weekday <= 6; weekday++ {
			intervals := [][2]int{{9 * 60, 13 * 60}, {14 * 60, 18 * 60}}
			if gofakeit.Bool() && weekday%2 == 0 {
				intervals = [][2]int{{10 * 60, 16 * 60}}
			}
			for _, iv := range intervals {
				_, err := tx.Exec(ctx, `
					INSERT INTO staff_hours (staff_id, weekday, start_minute, end_minute)
					VALUES ($1, $2, $3, $4)
				`, id, weekday, iv[0], iv[1])
				if err != nil {
					return nil, err
				}
			}
		}
		ids = append(ids, id)
	}

	return ids, tx.Commit(ctx)
}

func seedServices(ctx context.Context, pool *pgxpool.Pool) ([]uuid.UUID, error) {
	services := []struct {
		name     string
		duration int
		buffer   int
		price    int
	}{
		{"Haircut", 30, 15, 4500},
		{"Color", 90, 15, 12000},
		{"Blowout", 45, 0, 5500},
		{"Beard Trim", 15, 5, 2000},
		{"Deep Conditioning", 60, 10, 8000},
		{"Consultation", 15, 0, 0},
	}
	log.Printf("seeding %d services", len(services))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, len(services))
	for _, svc := range services {
		id := uuid.New()
		_, err := tx.Exec(ctx, `
			INSERT INTO services (id, name, duration_min, buffer_min, price_cents, active)
			VALUES ($1, $2, $3, $4, $5, TRUE)
		`, id, svc.name, svc.duration, svc.buffer, svc.price)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, tx.Commit(ctx)
}

func seedClients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d clients", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		_, err := tx.Exec(ctx, `
			INSERT INTO clients (id, name, email, phone)
			VALUES ($1, $2, $3, $4)
		`, id, gofakeit.Name(), gofakeit.Email(), gofakeit.Phone())
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, tx.Commit(ctx)
}

func seedAppointments(ctx context.Context, pool *pgxpool.Pool, staffIDs, serviceIDs, clientIDs []uuid.UUID, count int) error {
	log.Printf("seeding %d appointments", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	statuses := []schedule.AppointmentStatus{
		schedule.StatusPendingDeposit,
		schedule.StatusConfirmed,
		schedule.StatusConfirmed,
		schedule.StatusConfirmed,
		schedule.StatusCompleted,
	}

	for i := 0; i < count; i++ {
		day := time.Now().AddDate(0, 0, gofakeit.Number(1, 14))
		startMinute := 9*60 + 15*gofakeit.Number(0, 32) // 9:00 to 17:00
		start := time.Date(day.Year(), day.Month(), day.Day(), startMinute/60, startMinute%60, 0, 0, time.Local)
		durMin := []int{30, 45, 60, 90}[gofakeit.Number(0, 3)]

		_, err := tx.Exec(ctx, `
			INSERT INTO appointments (id, client_id, staff_id, service_id, start_time, end_time, status, version, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, now(), now())
		`,
			uuid.New(),
			clientIDs[gofakeit.Number(0, len(clientIDs)-1)],
			staffIDs[gofakeit.Number(0, len(staffIDs)-1)],
			serviceIDs[gofakeit.Number(0, len(serviceIDs)-1)],
			start,
			start.Add(time.Duration(durMin)*time.Minute),
			statuses[gofakeit.Number(0, len(statuses)-1)],
			gofakeit.Sentence(6),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
