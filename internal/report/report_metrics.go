package report

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/carewatch/internal/summary"
)

// Metrics holds Prometheus metrics for analysis runs and summary calls.
type Metrics struct {
	ReportsTotal       *prometheus.CounterVec
	ReportDuration     *prometheus.HistogramVec
	AlertsTotal        *prometheus.CounterVec
	SectionErrorsTotal *prometheus.CounterVec
	SummariesTotal     *prometheus.CounterVec
	SummaryDuration    *prometheus.HistogramVec
	SummaryFragments   prometheus.Histogram
	SummaryDiscarded   prometheus.Counter
}

// NewMetrics registers and returns report metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carewatch_reports_total",
			Help: "Total analysis runs by final status.",
		}, []string{"status"}),
		ReportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carewatch_report_duration_seconds",
			Help:    "Duration of analysis runs in seconds, summary included.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15), // 10ms .. ~164s
		}, []string{"status"}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carewatch_alerts_total",
			Help: "Total derived alerts by kind.",
		}, []string{"kind"}),
		SectionErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carewatch_section_errors_total",
			Help: "Sections that could not be derived, by kind.",
		}, []string{"kind"}),
		SummariesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carewatch_summaries_total",
			Help: "Summary requests by response mode and outcome.",
		}, []string{"mode", "outcome"}),
		SummaryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carewatch_summary_duration_seconds",
			Help:    "Duration of summary requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s .. ~128s
		}, []string{"mode"}),
		SummaryFragments: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "carewatch_summary_fragments",
			Help:    "Well-formed response fragments per summary request.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1 .. 2048
		}),
		SummaryDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carewatch_summary_discarded_fragments_total",
			Help: "Malformed response fragments skipped while streaming.",
		}),
	}

	reg.MustRegister(
		m.ReportsTotal,
		m.ReportDuration,
		m.AlertsTotal,
		m.SectionErrorsTotal,
		m.SummariesTotal,
		m.SummaryDuration,
		m.SummaryFragments,
		m.SummaryDiscarded,
	)

	return m
}

// Hooks returns service Hooks that update the run metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnRun: func(e *RunEvent) {
			m.ReportsTotal.WithLabelValues(string(e.Status)).Inc()
			m.ReportDuration.WithLabelValues(string(e.Status)).Observe(e.Duration)
			for kind, n := range e.Alerts {
				m.AlertsTotal.WithLabelValues(string(kind)).Add(float64(n))
			}
			for _, kind := range e.SectionErrors {
				m.SectionErrorsTotal.WithLabelValues(string(kind)).Inc()
			}
		},
	}
}

// SummaryHooks returns summary client Hooks that update the summary metrics.
func (m *Metrics) SummaryHooks() summary.Hooks {
	return summary.Hooks{
		OnSummary: func(e *summary.Event) {
			m.SummariesTotal.WithLabelValues(string(e.Mode), string(e.Outcome)).Inc()
			m.SummaryDuration.WithLabelValues(string(e.Mode)).Observe(e.Duration)
			m.SummaryFragments.Observe(float64(e.Fragments))
			m.SummaryDiscarded.Add(float64(e.Discarded))
		},
	}
}
