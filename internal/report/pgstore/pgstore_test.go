package pgstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/carewatch/internal/monitor"
	"github.com/linnemanlabs/carewatch/internal/postgres"
	"github.com/linnemanlabs/carewatch/internal/report"
	"github.com/linnemanlabs/carewatch/internal/report/pgstore"
	"github.com/linnemanlabs/carewatch/internal/summary"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("CAREWATCH_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CAREWATCH_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("postgres.NewPool: %v", err)
	}
	t.Cleanup(pool.Close)

	s, err := pgstore.New(ctx, pool)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	return s
}

func assertEqual[T comparable](t *testing.T, field string, want, got T) {
	t.Helper()
	if want != got {
		t.Errorf("%s = %v, want %v", field, got, want)
	}
}

func TestPutAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()
	r := &report.Report{
		ID:        ulid.Make().String(),
		SessionID: "session-put-get",
		Status:    report.StatusComplete,
		Sections: []report.Section{
			{Kind: monitor.KindHealth, Rows: 2, Alerts: 1},
			{Kind: monitor.KindSafety, Rows: 0, Issue: "line 2: wrong number of fields"},
		},
		Alerts: []monitor.Alert{{Kind: monitor.KindHealth, Subject: "D1", Fields: []monitor.Field{
			{Name: monitor.ColHeartRate, Value: "140"},
		}}},
		Messages:       []string{"Health Alert for D1: HR=140, BP=, Glucose="},
		Summary:        "Please check on D1.",
		SummaryOutcome: summary.OutcomeGenerated,
		Model:          "tinyllama",
		CreatedAt:      now,
		Duration:       1.25,
	}

	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get returned ok=false, want true")
	}

	assertEqual(t, "SessionID", r.SessionID, got.SessionID)
	assertEqual(t, "Status", r.Status, got.Status)
	assertEqual(t, "Summary", r.Summary, got.Summary)
	assertEqual(t, "SummaryOutcome", r.SummaryOutcome, got.SummaryOutcome)
	assertEqual(t, "Model", r.Model, got.Model)
	assertEqual(t, "Duration", r.Duration, got.Duration)
	assertEqual(t, "CreatedAt", r.CreatedAt, got.CreatedAt.UTC())

	if len(got.Sections) != 2 || got.Sections[1].Issue == "" {
		t.Errorf("Sections mismatch: got %+v", got.Sections)
	}
	if len(got.Alerts) != 1 || got.Alerts[0].Field(monitor.ColHeartRate) != "140" {
		t.Errorf("Alerts mismatch: got %+v", got.Alerts)
	}
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)

	_, ok, err := s.Get(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing ID")
	}
}

func TestPutUpserts(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	r := &report.Report{ID: ulid.Make().String(), SessionID: "session-upsert", Status: report.StatusPartial, CreatedAt: time.Now()}
	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put: %v", err)
	}
	r.Status = report.StatusComplete
	r.Summary = "done"
	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put (update): %v", err)
	}

	got, _, err := s.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	assertEqual(t, "Status", report.StatusComplete, got.Status)
	assertEqual(t, "Summary", "done", got.Summary)
}

func TestListBySession(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	session := "session-list-" + ulid.Make().String()
	var ids []string
	for range 3 {
		r := &report.Report{ID: ulid.Make().String(), SessionID: session, Status: report.StatusNoAlerts, CreatedAt: time.Now()}
		if err := s.Put(ctx, r); err != nil {
			t.Fatalf("Put: %v", err)
		}
		ids = append(ids, r.ID)
	}

	got, err := s.ListBySession(ctx, session, 2)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	assertEqual(t, "newest", ids[2], got[0].ID)
	assertEqual(t, "second", ids[1], got[1].ID)
}
