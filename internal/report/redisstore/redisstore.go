// Package redisstore provides a Redis implementation of report.Store.
// Reports are JSON values with a TTL; each session keeps a sorted index of
// its report IDs.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/linnemanlabs/carewatch/internal/report"
)

const (
	DefaultPrefix = "carewatch:"
	DefaultTTL    = 7 * 24 * time.Hour
)

// Store persists reports in Redis.
type Store struct {
	c      *redis.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix namespaces every key.
func WithPrefix(p string) Option {
	return func(s *Store) { s.prefix = p }
}

// WithTTL sets how long reports and session indexes are kept. Zero keeps them forever.
func WithTTL(d time.Duration) Option {
	return func(s *Store) { s.ttl = d }
}

// New returns a Store on an existing client. The caller owns the client.
func New(c *redis.Client, opts ...Option) *Store {
	s := &Store{c: c, prefix: DefaultPrefix, ttl: DefaultTTL}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Dial parses a redis:// URL, connects and pings.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := redis.NewClient(opt)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return c, nil
}

func (s *Store) reportKey(id string) string { return s.prefix + "report:" + id }

func (s *Store) sessionKey(id string) string { return s.prefix + "session:" + id + ":reports" }

// Get retrieves a report by ID.
func (s *Store) Get(ctx context.Context, id string) (*report.Report, bool, error) {
	raw, err := s.c.Get(ctx, s.reportKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get report: %w", err)
	}
	var r report.Report
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, false, fmt.Errorf("unmarshal report %s: %w", id, err)
	}
	return &r, true, nil
}

// Put stores the report and indexes it under its session in one transaction.
func (s *Store) Put(ctx context.Context, r *report.Report) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	sk := s.sessionKey(r.SessionID)

	_, err = s.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.reportKey(r.ID), raw, s.ttl)
		p.ZAdd(ctx, sk, &redis.Z{Score: float64(r.CreatedAt.UnixMilli()), Member: r.ID})
		if s.ttl > 0 {
			p.Expire(ctx, sk, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("put report: %w", err)
	}
	return nil
}

// ListBySession returns a session's reports, newest first. Index entries whose
// report has expired are skipped.
func (s *Store) ListBySession(ctx context.Context, sessionID string, limit int) ([]*report.Report, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := s.c.ZRevRange(ctx, s.sessionKey(sessionID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list session reports: %w", err)
	}

	out := []*report.Report{}
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.reportKey(id)
	}
	vals, err := s.c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load session reports: %w", err)
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var r report.Report
		if err := json.Unmarshal([]byte(str), &r); err != nil {
			return nil, fmt.Errorf("unmarshal report %s: %w", ids[i], err)
		}
		out = append(out, &r)
	}
	return out, nil
}
