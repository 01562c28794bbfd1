package cache

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DailyTotalCache holds the running pre-tax sales total per date. The cache
// is an optimization only; a miss always falls back to the ledger.
type DailyTotalCache interface {
	// Get returns the cached base total for a date, ok=false on a miss.
	Get(ctx context.Context, date string) (total decimal.Decimal, ok bool, err error)
	Set(ctx context.Context, date string, total decimal.Decimal, ttl time.Duration) error
	// Invalidate drops the entry for a date after a ledger mutation.
	Invalidate(ctx context.Context, date string) error
	Close() error
}

// Noop is the cache used when no Redis is configured. Every Get misses.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (*Noop) Get(ctx context.Context, date string) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, nil
}

func (*Noop) Set(ctx context.Context, date string, total decimal.Decimal, ttl time.Duration) error {
	return nil
}

func (*Noop) Invalidate(ctx context.Context, date string) error { return nil }

func (*Noop) Close() error { return nil }
