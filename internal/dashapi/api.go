// Package dashapi serves the caregiver dashboard API: per-caregiver sessions
// holding the three monitoring tables, analysis runs and stored reports.
package dashapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/carewatch/internal/dataset"
	"github.com/linnemanlabs/carewatch/internal/monitor"
	"github.com/linnemanlabs/carewatch/internal/report"
	"github.com/linnemanlabs/carewatch/internal/table"
)

// SessionStore holds the working table sets.
type SessionStore interface {
	Create() string
	Get(id string) (*dataset.Set, error)
	Info(id string) (dataset.Info, error)
	PutTable(id string, kind monitor.Kind, t *table.Table, issue error) error
	Delete(id string)
}

// ReportService defines the analysis operations dashapi needs.
type ReportService interface {
	Run(ctx context.Context, sessionID string, set *dataset.Set) (*report.Report, error)
	Get(ctx context.Context, id string) (*report.Report, bool, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*report.Report, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger   log.Logger
	sessions SessionStore
	svc      ReportService
}

// New creates a new API handler.
func New(logger log.Logger, sessions SessionStore, svc ReportService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if sessions == nil {
		panic(xerrors.New("session store is required"))
	}
	if svc == nil {
		panic(xerrors.New("report service is required"))
	}
	return &API{
		logger:   logger,
		sessions: sessions,
		svc:      svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", a.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", a.handleGetSession)
			r.Delete("/", a.handleDeleteSession)
			r.Put("/tables/{kind}", a.handlePutTable)
			r.Get("/tables/{kind}", a.handleGetTable)
			r.Post("/analysis", a.handleRunAnalysis)
			r.Get("/reports", a.handleListReports)
		})
		r.Get("/reports/{id}", a.handleGetReport)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing to do with errors here
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// kindParam returns the {kind} URL parameter, writing a 400 when it is not a
// known table.
func kindParam(w http.ResponseWriter, r *http.Request) (monitor.Kind, bool) {
	kind := monitor.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "unknown table kind")
		return "", false
	}
	return kind, true
}
