// Package postgres builds instrumented pgx connection pools.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOption configures NewPool.
type PoolOption func(*poolOptions)

type poolOptions struct {
	maxConns int32
	slow     time.Duration
	observer QueryObserver
}

// WithMaxConns caps the pool size.
func WithMaxConns(n int32) PoolOption {
	return func(o *poolOptions) { o.maxConns = n }
}

// WithSlowQueryThreshold logs only successful queries at least d long.
// Failed queries are always logged.
func WithSlowQueryThreshold(d time.Duration) PoolOption {
	return func(o *poolOptions) { o.slow = d }
}

// WithQueryObserver reports every query's duration to obs.
func WithQueryObserver(obs QueryObserver) PoolOption {
	return func(o *poolOptions) { o.observer = obs }
}

// NewPool connects to databaseURL with otelpgx spans and query logging, and
// pings once before returning.
func NewPool(ctx context.Context, databaseURL string, opts ...PoolOption) (*pgxpool.Pool, error) {
	var o poolOptions
	for _, fn := range opts {
		fn(&o)
	}

	pc, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if o.maxConns > 0 {
		pc.MaxConns = o.maxConns
	}
	pc.ConnConfig.Tracer = &queryTracer{
		inner:    otelpgx.NewTracer(),
		observer: o.observer,
		slow:     o.slow,
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
