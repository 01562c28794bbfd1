package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Redis caches daily totals in Redis, keyed by date. Totals are stored in
// their exact decimal string form.
type Redis struct {
	client *redis.Client
}

func NewRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client}, nil
}

func key(date string) string { return "billing:daily_total:" + date }

func (r *Redis) Get(ctx context.Context, date string) (decimal.Decimal, bool, error) {
	raw, err := r.client.Get(ctx, key(date)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("get daily total: %w", err)
	}
	total, err := decimal.NewFromString(raw)
	if err != nil {
		// A corrupt entry is treated as a miss and dropped.
		_ = r.client.Del(ctx, key(date)).Err()
		return decimal.Zero, false, nil
	}
	return total, true, nil
}

func (r *Redis) Set(ctx context.Context, date string, total decimal.Decimal, ttl time.Duration) error {
	if err := r.client.Set(ctx, key(date), total.String(), ttl).Err(); err != nil {
		return fmt.Errorf("set daily total: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, date string) error {
	if err := r.client.Del(ctx, key(date)).Err(); err != nil {
		return fmt.Errorf("invalidate daily total: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
