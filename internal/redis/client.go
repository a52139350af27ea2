package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/slotwise/booking-coordinator/pkg/logging"
)

// Options carries the connection knobs the stub exposes through its
// environment config. PoolSize defaults to 10 when unset.
type Options struct {
	Addr     string
	Username string
	Password string
	PoolSize int
}

func (o Options) redisOptions() *redis.Options {
	poolSize := o.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	return &redis.Options{
		Addr:         o.Addr,
		Username:     o.Username,
		Password:     o.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     poolSize,
		MinIdleConns: 1,
	}
}

// New opens a redis client and pings it before handing it back.
func New(opts Options, logger *logging.Logger) (*redis.Client, error) {
	if logger == nil {
		logger = logging.Default()
	}

	client := redis.NewClient(opts.redisOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("connected to redis", "addr", opts.Addr)
	return client, nil
}
