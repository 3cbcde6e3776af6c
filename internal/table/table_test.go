package table

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func falls() *Table {
	return New("safety", []string{"Device-ID/User-ID", "Timestamp", "Fall Detected (Yes/No)"},
		Row{"Device-ID/User-ID": "D1", "Timestamp": "2025-01-02 08:00:00", "Fall Detected (Yes/No)": "Yes"},
		Row{"Device-ID/User-ID": "D2", "Timestamp": "2025-01-03 09:00:00", "Fall Detected (Yes/No)": "No"},
		Row{"Device-ID/User-ID": "D3", "Timestamp": "2025-01-01 07:00:00", "Fall Detected (Yes/No)": "Yes"},
		Row{"Device-ID/User-ID": "D4", "Timestamp": "2025-01-04 10:00:00", "Fall Detected (Yes/No)": "Yes"},
	)
}

func TestNew_CopiesRows(t *testing.T) {
	t.Parallel()

	src := Row{"a": "1"}
	tbl := New("t", []string{"a"}, src)
	src["a"] = "changed"

	assert.Equal(t, "1", tbl.Rows[0]["a"])
}

func TestEmpty(t *testing.T) {
	t.Parallel()

	tbl := Empty("health", "Date", "Heart Rate")
	assert.True(t, tbl.IsEmpty())
	assert.Equal(t, 0, tbl.Len())
	assert.True(t, tbl.HasColumn("Date"))
	assert.False(t, tbl.HasColumn("Glucose Levels"))

	var nilTable *Table
	assert.True(t, nilTable.IsEmpty())
	assert.False(t, nilTable.HasColumn("Date"))
}

func TestRequire(t *testing.T) {
	t.Parallel()

	tbl := falls()
	require.NoError(t, tbl.Require("Timestamp", "Device-ID/User-ID"))

	err := tbl.Require("Timestamp", "Location")
	var mce *MissingColumnError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, "safety", mce.Table)
	assert.Equal(t, "Location", mce.Column)
	assert.Contains(t, err.Error(), `missing column "Location"`)
}

func TestCloneAndEqual(t *testing.T) {
	t.Parallel()

	tbl := falls()
	cp := tbl.Clone()
	require.True(t, tbl.Equal(cp))

	cp.Rows[0]["Timestamp"] = "later"
	assert.False(t, tbl.Equal(cp))
	assert.Equal(t, "2025-01-02 08:00:00", tbl.Rows[0]["Timestamp"])

	assert.False(t, tbl.Equal(nil))
	var a, b *Table
	assert.True(t, a.Equal(b))
}

func TestWhere(t *testing.T) {
	t.Parallel()

	tbl := falls()
	before := tbl.Clone()

	got, err := tbl.Where("Fall Detected (Yes/No)", "Yes")
	require.NoError(t, err)
	require.Equal(t, 3, got.Len())
	assert.Equal(t, "D1", got.Rows[0]["Device-ID/User-ID"])
	assert.Equal(t, "D3", got.Rows[1]["Device-ID/User-ID"])
	assert.Equal(t, "D4", got.Rows[2]["Device-ID/User-ID"])
	assert.True(t, tbl.Equal(before), "Where must not mutate the receiver")

	_, err = tbl.Where("Missing", "Yes")
	var mce *MissingColumnError
	assert.ErrorAs(t, err, &mce)
}

func TestSortByAndHead_LatestThreeFalls(t *testing.T) {
	t.Parallel()

	tbl := falls()
	before := tbl.Clone()

	yes, err := tbl.Where("Fall Detected (Yes/No)", "Yes")
	require.NoError(t, err)
	sorted, err := yes.SortBy("Timestamp", true)
	require.NoError(t, err)
	top := sorted.Head(3)

	require.Equal(t, 3, top.Len())
	assert.Equal(t, "D4", top.Rows[0]["Device-ID/User-ID"])
	assert.Equal(t, "D1", top.Rows[1]["Device-ID/User-ID"])
	assert.Equal(t, "D3", top.Rows[2]["Device-ID/User-ID"])
	assert.True(t, tbl.Equal(before))

	asc, err := tbl.SortBy("Timestamp", false)
	require.NoError(t, err)
	assert.Equal(t, "D3", asc.Rows[0]["Device-ID/User-ID"])
}

func TestHead_Bounds(t *testing.T) {
	t.Parallel()

	tbl := falls()
	assert.Equal(t, 0, tbl.Head(0).Len())
	assert.Equal(t, 0, tbl.Head(-1).Len())
	assert.Equal(t, 4, tbl.Head(10).Len())
	assert.Equal(t, tbl.Columns, tbl.Head(0).Columns)
}
