package dashapi

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/carewatch/internal/dataset"
	"github.com/linnemanlabs/carewatch/internal/monitor"
	"github.com/linnemanlabs/carewatch/internal/table"
)

// ContentTypeXLSX selects the workbook reader for table uploads.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type tableView struct {
	Kind    monitor.Kind `json:"kind"`
	Columns []string     `json:"columns"`
	Rows    int          `json:"rows"`
	Issue   string       `json:"issue,omitempty"`
}

type sessionView struct {
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Tables    []tableView `json:"tables"`
}

type rowsView struct {
	Kind    monitor.Kind `json:"kind"`
	Columns []string     `json:"columns"`
	Total   int          `json:"total"`
	Rows    []table.Row  `json:"rows"`
}

func overview(set *dataset.Set, kind monitor.Kind) tableView {
	t := set.Table(kind)
	return tableView{Kind: kind, Columns: t.Columns, Rows: t.Len(), Issue: set.Issue(kind)}
}

func (a *API) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := a.sessions.Create()
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("carewatch.session.id", id))
	a.logger.Info(r.Context(), "session created", "session_id", id)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (a *API) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("carewatch.session.id", id))

	info, err := a.sessions.Info(id)
	if err != nil {
		a.sessionError(w, r, err, id)
		return
	}
	set, err := a.sessions.Get(id)
	if err != nil {
		a.sessionError(w, r, err, id)
		return
	}

	view := sessionView{ID: info.ID, CreatedAt: info.CreatedAt, UpdatedAt: info.UpdatedAt}
	for _, k := range monitor.Kinds {
		view.Tables = append(view.Tables, overview(set, k))
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := a.sessions.Info(id); err != nil {
		a.sessionError(w, r, err, id)
		return
	}
	a.sessions.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

// handlePutTable replaces one table from the request body. Malformed input is
// a visible warning: the section is reset to its placeholder and the response
// is 422 so the dashboard can show why.
func (a *API) handlePutTable(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("carewatch.session.id", id),
		attribute.String("carewatch.table.kind", string(kind)),
	)

	if _, err := a.sessions.Info(id); err != nil {
		a.sessionError(w, r, err, id)
		return
	}

	t, err := readTable(r, kind)
	if err != nil {
		var tooLarge *http.MaxBytesError
		var parseErr *table.ParseError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
		case errors.As(err, &parseErr):
			if perr := a.sessions.PutTable(id, kind, nil, err); perr != nil {
				a.sessionError(w, r, perr, id)
				return
			}
			a.logger.Warn(r.Context(), "table upload rejected", "session_id", id, "kind", kind, "error", err)
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error": err.Error(),
				"table": tableView{Kind: kind, Columns: dataset.Placeholder(kind).Columns, Issue: err.Error()},
			})
		default:
			a.logger.Error(r.Context(), err, "failed to read table upload", "session_id", id, "kind", kind)
			writeError(w, http.StatusBadRequest, "unreadable request body")
		}
		return
	}

	if err := a.sessions.PutTable(id, kind, t, nil); err != nil {
		a.sessionError(w, r, err, id)
		return
	}
	span.SetAttributes(attribute.Int("carewatch.table.rows", t.Len()))
	a.logger.Info(r.Context(), "table loaded", "session_id", id, "kind", kind, "rows", t.Len())
	writeJSON(w, http.StatusOK, tableView{Kind: kind, Columns: t.Columns, Rows: t.Len()})
}

func readTable(r *http.Request, kind monitor.Kind) (*table.Table, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == ContentTypeXLSX {
		return table.ReadXLSX(string(kind), r.Body)
	}
	return table.Read(string(kind), r.Body)
}

// handleGetTable returns rows of one table, optionally sorted and truncated:
// ?sort=Timestamp&desc=true&limit=3 is the "latest falls" view.
func (a *API) handleGetTable(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}

	set, err := a.sessions.Get(id)
	if err != nil {
		a.sessionError(w, r, err, id)
		return
	}
	t := set.Table(kind)

	q := r.URL.Query()
	if col := q.Get("sort"); col != "" {
		desc, _ := strconv.ParseBool(q.Get("desc"))
		sorted, err := t.SortBy(col, desc)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		t = sorted
	}
	total := t.Len()
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		t = t.Head(n)
	}

	rows := t.Rows
	if rows == nil {
		rows = []table.Row{}
	}
	writeJSON(w, http.StatusOK, rowsView{Kind: kind, Columns: t.Columns, Total: total, Rows: rows})
}

func (a *API) sessionError(w http.ResponseWriter, r *http.Request, err error, id string) {
	if errors.Is(err, dataset.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	a.logger.Error(r.Context(), err, "session operation failed", "session_id", id)
	writeError(w, http.StatusInternalServerError, "internal error")
}
