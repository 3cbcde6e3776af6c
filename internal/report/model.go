package report

import (
	"time"

	"github.com/linnemanlabs/carewatch/internal/monitor"
	"github.com/linnemanlabs/carewatch/internal/summary"
)

// Status summarizes how an analysis run went.
type Status string

const (
	// StatusComplete means every section derived and at least one alert was found
	StatusComplete Status = "complete"

	// StatusNoAlerts means every section derived and nothing needs attention
	StatusNoAlerts Status = "no_alerts"

	// StatusPartial means at least one section could not be derived
	StatusPartial Status = "partial"
)

// Section is the per-table part of a report.
type Section struct {
	Kind   monitor.Kind `json:"kind"`
	Rows   int          `json:"rows"`
	Alerts int          `json:"alerts"`
	Issue  string       `json:"issue,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// Report is the outcome of one analysis run over a session's tables.
type Report struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"session_id"`
	Status         Status          `json:"status"`
	Sections       []Section       `json:"sections"`
	Alerts         []monitor.Alert `json:"alerts"`
	Messages       []string        `json:"messages"`
	Summary        string          `json:"summary"`
	SummaryOutcome summary.Outcome `json:"summary_outcome"`
	SummaryError   string          `json:"summary_error,omitempty"`
	Model          string          `json:"model,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	Duration       float64         `json:"duration_seconds"`
}

// Section returns the section for kind, if present.
func (r *Report) Section(kind monitor.Kind) (Section, bool) {
	for _, s := range r.Sections {
		if s.Kind == kind {
			return s, true
		}
	}
	return Section{}, false
}

// AlertsOf returns the alerts of one kind, in report order.
func (r *Report) AlertsOf(kind monitor.Kind) []monitor.Alert {
	var out []monitor.Alert
	for _, a := range r.Alerts {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// Clone returns a deep copy.
func (r *Report) Clone() *Report {
	cp := *r
	cp.Sections = append([]Section(nil), r.Sections...)
	if r.Messages != nil {
		cp.Messages = append(make([]string, 0, len(r.Messages)), r.Messages...)
	}
	if r.Alerts != nil {
		cp.Alerts = make([]monitor.Alert, len(r.Alerts))
		for i, a := range r.Alerts {
			a.Fields = append([]monitor.Field(nil), a.Fields...)
			cp.Alerts[i] = a
		}
	}
	return &cp
}
