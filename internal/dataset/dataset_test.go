package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linnemanlabs/carewatch/internal/monitor"
	"github.com/linnemanlabs/carewatch/internal/table"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestPlaceholder(t *testing.T) {
	t.Parallel()

	h := Placeholder(monitor.KindHealth)
	assert.True(t, h.IsEmpty())
	assert.Equal(t, []string{"Date", "Heart Rate", "Blood Pressure"}, h.Columns)
	assert.Equal(t, []string{"Date", "Fall Detected", "Location"}, Placeholder(monitor.KindSafety).Columns)
	assert.Equal(t, []string{"Date", "Time", "Medication"}, Placeholder(monitor.KindReminder).Columns)

	// the placeholder never satisfies the derivation schema
	assert.Error(t, h.Require(monitor.HealthRule.Columns()...))
}

func TestLoad_AllSources(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := Paths{
		Health: writeFile(t, dir, "health.csv",
			"Device-ID/User-ID,Heart Rate,Blood Pressure,Glucose Levels,Alert Triggered (Yes/No)\nD1,140,150/95,180,Yes\n"),
		Safety: writeFile(t, dir, "safety.csv",
			"Device-ID/User-ID,Location,Timestamp,Fall Detected (Yes/No)\nD2,Kitchen,2025-01-01 08:00,No\n"),
		Reminder: writeFile(t, dir, "reminder.csv",
			"Device-ID/User-ID,Reminder Type,Scheduled Time,Reminder Sent (Yes/No)\nD3,Medication,08:00,No\n"),
	}

	set, err := Load(p)
	require.NoError(t, err)
	assert.Empty(t, set.Issues)
	assert.Equal(t, 1, set.Health.Len())
	assert.Equal(t, 1, set.Safety.Len())
	assert.Equal(t, "D3", set.Reminder.Rows[0][monitor.ColSubject])
}

func TestLoad_MissingSourcesUsePlaceholders(t *testing.T) {
	t.Parallel()

	set, err := Load(Paths{Safety: filepath.Join(t.TempDir(), "nope.csv")})
	require.NoError(t, err)
	for _, k := range monitor.Kinds {
		assert.True(t, set.Table(k).Equal(Placeholder(k)), "kind %s", k)
		assert.Empty(t, set.Issue(k))
	}
}

func TestLoad_ParseErrorBecomesIssue(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := Paths{
		Health: writeFile(t, dir, "health.csv", "a,b\n1,2,3\n"),
		Safety: writeFile(t, dir, "safety.csv", "Location\nHall\n"),
	}

	set, err := Load(p)
	require.NoError(t, err)
	assert.Contains(t, set.Issue(monitor.KindHealth), "line 2")
	assert.True(t, set.Health.Equal(Placeholder(monitor.KindHealth)))
	assert.Empty(t, set.Issue(monitor.KindSafety))
	assert.Equal(t, 1, set.Safety.Len())
}

func TestLoad_IOErrorIsReturned(t *testing.T) {
	t.Parallel()

	// a directory is not readable as a table
	_, err := Load(Paths{Reminder: t.TempDir()})
	require.Error(t, err)
	var pe *table.ParseError
	assert.False(t, errors.As(err, &pe))
}

func TestSet_PutAndWarn(t *testing.T) {
	t.Parallel()

	s := NewSet()
	s.Warn(monitor.KindSafety, errors.New("bad quoting"))
	assert.Equal(t, "bad quoting", s.Issue(monitor.KindSafety))

	tbl := table.New("safety", []string{"x"}, table.Row{"x": "1"})
	require.NoError(t, s.Put(monitor.KindSafety, tbl))
	assert.Empty(t, s.Issue(monitor.KindSafety))
	assert.Same(t, tbl, s.Safety)

	assert.Error(t, s.Put("vitals", tbl))
	assert.Nil(t, s.Table("vitals"))
}

func TestSet_CloneIsDeep(t *testing.T) {
	t.Parallel()

	s := NewSet()
	_ = s.Put(monitor.KindHealth, table.New("health", []string{"x"}, table.Row{"x": "1"}))
	s.Warn(monitor.KindReminder, errors.New("oops"))

	cp := s.Clone()
	cp.Health.Rows[0]["x"] = "changed"
	cp.Issues[monitor.KindReminder] = "changed"

	assert.Equal(t, "1", s.Health.Rows[0]["x"])
	assert.Equal(t, "oops", s.Issue(monitor.KindReminder))
}

func TestSessions_Lifecycle(t *testing.T) {
	t.Parallel()

	ss := NewSessions()
	id := ss.Create()
	require.NotEmpty(t, id)
	assert.Equal(t, 1, ss.Len())

	set, err := ss.Get(id)
	require.NoError(t, err)
	assert.True(t, set.Health.IsEmpty())

	tbl := table.New("health", []string{"x"}, table.Row{"x": "1"})
	require.NoError(t, ss.PutTable(id, monitor.KindHealth, tbl, nil))

	// mutations of the snapshot or the caller's table don't reach the store
	tbl.Rows[0]["x"] = "caller"
	set.Health = nil

	got, err := ss.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "1", got.Health.Rows[0]["x"])

	require.NoError(t, ss.PutTable(id, monitor.KindHealth, nil, errors.New("ragged row")))
	got, _ = ss.Get(id)
	assert.Equal(t, "ragged row", got.Issue(monitor.KindHealth))
	assert.True(t, got.Health.IsEmpty())

	info, err := ss.Info(id)
	require.NoError(t, err)
	assert.False(t, info.UpdatedAt.Before(info.CreatedAt))

	ss.Delete(id)
	_, err = ss.Get(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessions_Errors(t *testing.T) {
	t.Parallel()

	ss := NewSessions()
	_, err := ss.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = ss.Info("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, ss.PutTable("missing", monitor.KindHealth, nil, nil), ErrSessionNotFound)

	id := ss.Create()
	assert.Error(t, ss.PutTable(id, "vitals", nil, nil))
}

func TestSessions_SeedCopies(t *testing.T) {
	t.Parallel()

	ss := NewSessions()
	src := NewSet()
	id := ss.Seed(src)
	_ = src.Put(monitor.KindSafety, table.New("safety", []string{"x"}, table.Row{"x": "1"}))

	got, err := ss.Get(id)
	require.NoError(t, err)
	assert.True(t, got.Safety.IsEmpty())
}

func TestSessions_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	ss := NewSessions()
	id := ss.Create()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			kind := monitor.Kinds[i%len(monitor.Kinds)]
			_ = ss.PutTable(id, kind, table.New(string(kind), []string{"x"}, table.Row{"x": "v"}), nil)
			_, _ = ss.Get(id)
			ss.Create()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 51, ss.Len())
}
