// Package pgstore provides a PostgreSQL implementation of report.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/carewatch/internal/report"
	"github.com/linnemanlabs/carewatch/internal/summary"
)

var tracer = otel.Tracer("github.com/linnemanlabs/carewatch/internal/report/pgstore")

//go:embed schema.sql
var schema string

// Store persists reports in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on pool and returns a ready Store. The caller owns the pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const reportColumns = `id, session_id, status, sections, alerts, messages, summary,
	summary_outcome, summary_error, model, created_at, duration_s`

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Get retrieves a report by ID.
func (s *Store) Get(ctx context.Context, id string) (*report.Report, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.Get", "SELECT")
	defer span.End()

	r, err := scanReport(s.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fail(span, err)
	}
	return r, true, nil
}

// Put inserts or replaces a report.
func (s *Store) Put(ctx context.Context, r *report.Report) error {
	ctx, span := startSpan(ctx, "pgstore.Put", "UPSERT")
	defer span.End()

	sections, err := json.Marshal(r.Sections)
	if err != nil {
		return fail(span, fmt.Errorf("marshal sections: %w", err))
	}
	alerts, err := json.Marshal(r.Alerts)
	if err != nil {
		return fail(span, fmt.Errorf("marshal alerts: %w", err))
	}
	messages, err := json.Marshal(r.Messages)
	if err != nil {
		return fail(span, fmt.Errorf("marshal messages: %w", err))
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO reports (`+reportColumns+`)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	ON CONFLICT (id) DO UPDATE SET
		session_id      = EXCLUDED.session_id,
		status          = EXCLUDED.status,
		sections        = EXCLUDED.sections,
		alerts          = EXCLUDED.alerts,
		messages        = EXCLUDED.messages,
		summary         = EXCLUDED.summary,
		summary_outcome = EXCLUDED.summary_outcome,
		summary_error   = EXCLUDED.summary_error,
		model           = EXCLUDED.model,
		duration_s      = EXCLUDED.duration_s`,
		r.ID, r.SessionID, string(r.Status), sections, alerts, messages, r.Summary,
		string(r.SummaryOutcome), r.SummaryError, r.Model, r.CreatedAt, r.Duration,
	)
	if err != nil {
		return fail(span, fmt.Errorf("upsert report: %w", err))
	}
	return nil
}

// ListBySession returns a session's reports, newest first.
func (s *Store) ListBySession(ctx context.Context, sessionID string, limit int) ([]*report.Report, error) {
	ctx, span := startSpan(ctx, "pgstore.ListBySession", "SELECT")
	defer span.End()

	query := `SELECT ` + reportColumns + ` FROM reports WHERE session_id = $1 ORDER BY id DESC`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fail(span, fmt.Errorf("query reports: %w", err))
	}
	defer rows.Close()

	out := []*report.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fail(span, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, fmt.Errorf("iterate reports: %w", err))
	}
	return out, nil
}

// scanReport scans one row. pgx.ErrNoRows is returned unwrapped.
func scanReport(row pgx.Row) (*report.Report, error) {
	var (
		r                          report.Report
		status, outcome            string
		sections, alerts, messages []byte
	)
	err := row.Scan(
		&r.ID, &r.SessionID, &status, &sections, &alerts, &messages, &r.Summary,
		&outcome, &r.SummaryError, &r.Model, &r.CreatedAt, &r.Duration,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	r.Status = report.Status(status)
	r.SummaryOutcome = summary.Outcome(outcome)

	if err := json.Unmarshal(sections, &r.Sections); err != nil {
		return nil, fmt.Errorf("unmarshal sections: %w", err)
	}
	if err := json.Unmarshal(alerts, &r.Alerts); err != nil {
		return nil, fmt.Errorf("unmarshal alerts: %w", err)
	}
	if err := json.Unmarshal(messages, &r.Messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	return &r, nil
}
