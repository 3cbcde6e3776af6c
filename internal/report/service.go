package report

import (
	"context"
	"errors"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/carewatch/internal/dataset"
	"github.com/linnemanlabs/carewatch/internal/monitor"
	"github.com/linnemanlabs/carewatch/internal/summary"
)

// Summarizer turns rendered alerts into a caregiver-facing summary.
type Summarizer interface {
	Summarize(ctx context.Context, alerts []string) summary.Result
}

// Notifier delivers a completed report somewhere a caregiver will see it.
type Notifier interface {
	Notify(ctx context.Context, r *Report) error
}

// RunEvent is passed to Hooks.OnRun after every analysis run.
type RunEvent struct {
	Status        Status
	Alerts        map[monitor.Kind]int
	SectionErrors []monitor.Kind
	Duration      float64
}

// Hooks lets callers observe runs without coupling to a metrics backend.
type Hooks struct {
	OnRun func(e *RunEvent)
}

// Service is the business boundary for analysis runs.
type Service struct {
	store      Store
	summarizer Summarizer
	notifiers  []Notifier
	hooks      Hooks
	logger     log.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithNotifiers adds notifiers called for every report that has alerts.
func WithNotifiers(n ...Notifier) Option {
	return func(s *Service) { s.notifiers = append(s.notifiers, n...) }
}

// WithHooks installs observation callbacks.
func WithHooks(h Hooks) Option {
	return func(s *Service) { s.hooks = h }
}

// NewService creates a new report service.
func NewService(store Store, summarizer Summarizer, logger log.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	s := &Service{
		store:      store,
		summarizer: summarizer,
		logger:     logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run derives alerts from every section of set, summarizes them, persists the
// report and notifies. A section that fails to derive blocks only itself.
func (s *Service) Run(ctx context.Context, sessionID string, set *dataset.Set) (*Report, error) {
	if set == nil {
		return nil, errors.New("report: nil dataset")
	}

	start := time.Now()
	rep := &Report{
		ID:        ulid.Make().String(),
		SessionID: sessionID,
		CreatedAt: start.UTC(),
		Alerts:    []monitor.Alert{},
	}
	L := s.logger.With("report_id", rep.ID, "session_id", sessionID)

	ev := &RunEvent{Alerts: make(map[monitor.Kind]int, len(monitor.Kinds))}
	for _, kind := range monitor.Kinds {
		rule, _ := monitor.RuleFor(kind)
		t := set.Table(kind)
		sec := Section{Kind: kind, Rows: t.Len(), Issue: set.Issue(kind)}

		alerts, err := rule.Derive(t)
		if err != nil {
			sec.Error = err.Error()
			ev.SectionErrors = append(ev.SectionErrors, kind)
			L.Warn(ctx, "section blocked", "kind", kind, "error", err)
		}
		sec.Alerts = len(alerts)
		ev.Alerts[kind] = len(alerts)

		rep.Sections = append(rep.Sections, sec)
		rep.Alerts = append(rep.Alerts, alerts...)
	}
	rep.Messages = monitor.RenderAll(rep.Alerts, monitor.Render)

	switch {
	case len(ev.SectionErrors) > 0:
		rep.Status = StatusPartial
	case len(rep.Alerts) == 0:
		rep.Status = StatusNoAlerts
	default:
		rep.Status = StatusComplete
	}

	if len(rep.Messages) == 0 || s.summarizer == nil {
		rep.SummaryOutcome = summary.OutcomeSkipped
	} else {
		res := s.summarizer.Summarize(ctx, rep.Messages)
		rep.Summary = res.Text
		rep.SummaryOutcome = res.Outcome
		rep.Model = res.Model
		if res.Cause != nil {
			rep.SummaryError = res.Cause.Error()
			L.Warn(ctx, "summary unavailable, using fallback", "error", res.Cause)
		}
	}

	rep.Duration = time.Since(start).Seconds()
	ev.Status = rep.Status
	ev.Duration = rep.Duration

	if err := s.store.Put(ctx, rep); err != nil {
		L.Error(ctx, err, "failed to persist report")
		return nil, err
	}

	if s.hooks.OnRun != nil {
		s.hooks.OnRun(ev)
	}

	if len(rep.Alerts) > 0 {
		for _, n := range s.notifiers {
			if err := n.Notify(ctx, rep); err != nil {
				L.Error(ctx, err, "notification failed")
			}
		}
	}

	L.Info(ctx, "analysis complete",
		"status", rep.Status,
		"alerts", len(rep.Alerts),
		"summary_outcome", rep.SummaryOutcome,
		"duration", rep.Duration,
	)
	return rep, nil
}

// Get retrieves a report by ID.
func (s *Service) Get(ctx context.Context, id string) (*Report, bool, error) {
	return s.store.Get(ctx, id)
}

// ListBySession returns a session's most recent reports, newest first.
func (s *Service) ListBySession(ctx context.Context, sessionID string, limit int) ([]*Report, error) {
	return s.store.ListBySession(ctx, sessionID, limit)
}
