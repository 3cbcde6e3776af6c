package dashapi

import (
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/carewatch/internal/report"
)

const (
	defaultReportLimit = 20
	maxReportLimit     = 200
)

// handleRunAnalysis runs the filters and the summary over the session's
// current tables. It blocks until the summary finishes or falls back.
func (a *API) handleRunAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("carewatch.session.id", id))

	set, err := a.sessions.Get(id)
	if err != nil {
		a.sessionError(w, r, err, id)
		return
	}

	rep, err := a.svc.Run(r.Context(), id, set)
	if err != nil {
		a.logger.Error(r.Context(), err, "analysis failed", "session_id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	span.SetAttributes(
		attribute.String("carewatch.report.id", rep.ID),
		attribute.String("carewatch.report.status", string(rep.Status)),
		attribute.Int("carewatch.report.alerts", len(rep.Alerts)),
	)
	writeJSON(w, http.StatusOK, rep)
}

func (a *API) handleListReports(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit := defaultReportLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxReportLimit)
	}

	if _, err := a.sessions.Info(id); err != nil {
		a.sessionError(w, r, err, id)
		return
	}

	reports, err := a.svc.ListBySession(r.Context(), id, limit)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list reports", "session_id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if reports == nil {
		reports = []*report.Report{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func (a *API) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("carewatch.report.id", id))

	rep, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get report", "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	span.SetAttributes(attribute.String("carewatch.report.status", string(rep.Status)))
	writeJSON(w, http.StatusOK, rep)
}
