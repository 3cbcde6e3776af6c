package main

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/prometheus/client_golang/prometheus"

	vc "github.com/linnemanlabs/carewatch/internal/cfg"
	"github.com/linnemanlabs/carewatch/internal/notify/slack"
	"github.com/linnemanlabs/carewatch/internal/notify/telegram"
	"github.com/linnemanlabs/carewatch/internal/postgres"
	"github.com/linnemanlabs/carewatch/internal/report"
	"github.com/linnemanlabs/carewatch/internal/report/memstore"
	"github.com/linnemanlabs/carewatch/internal/report/pgstore"
	"github.com/linnemanlabs/carewatch/internal/report/redisstore"
)

// openReportStore picks the report backend from config: postgres, then redis,
// then in-memory. The returned close func releases the backend's connections.
func openReportStore(ctx context.Context, appCfg *vc.Config, reg prometheus.Registerer, L log.Logger) (report.Store, func(), error) {
	switch {
	case appCfg.DatabaseURL != "":
		// per-query DB duration histogram, labelled by the API route that issued the query
		dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carewatch_db_query_duration_seconds",
			Help:    "Duration of individual database queries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "outcome"})
		reg.MustRegister(dbQueryDuration)

		pool, err := postgres.NewPool(ctx, appCfg.DatabaseURL,
			postgres.WithQueryObserver(postgres.QueryObserverFunc(
				func(_ context.Context, method, route, outcome string, dur time.Duration) {
					dbQueryDuration.WithLabelValues(method, route, outcome).Observe(dur.Seconds())
				},
			)),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres pool: %w", err)
		}
		store, err := pgstore.New(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("pgstore init: %w", err)
		}
		L.Info(ctx, "using postgres report store")
		return store, pool.Close, nil

	case appCfg.RedisURL != "":
		client, err := redisstore.Dial(ctx, appCfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		L.Info(ctx, "using redis report store", "ttl", redisstore.DefaultTTL)
		return redisstore.New(client), func() { _ = client.Close() }, nil

	default:
		L.Info(ctx, "using in-memory report store (no database-url or redis-url configured)")
		return memstore.New(), func() {}, nil
	}
}

// buildNotifiers returns every configured caregiver notifier.
func buildNotifiers(ctx context.Context, appCfg *vc.Config, L log.Logger) ([]report.Notifier, error) {
	var out []report.Notifier
	if appCfg.SlackWebhookURL != "" {
		out = append(out, slack.New(appCfg.SlackWebhookURL, L))
		L.Info(ctx, "notifier enabled", "type", "slack")
	}
	if appCfg.TelegramToken != "" {
		tg, err := telegram.New(appCfg.TelegramToken, appCfg.TelegramChatID, L)
		if err != nil {
			return nil, err
		}
		out = append(out, tg)
		L.Info(ctx, "notifier enabled", "type", "telegram", "chat_id", appCfg.TelegramChatID)
	}
	return out, nil
}
