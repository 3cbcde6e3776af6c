package monitor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		alert Alert
		want  []string
	}{
		{
			name: "health",
			alert: Alert{Kind: KindHealth, Subject: "D1", Fields: []Field{
				{ColHeartRate, "72"}, {ColBloodPressure, "120/80"}, {ColGlucose, "90"},
			}},
			want: []string{"*Health Alert*", "`D1`", "HR: 72", "BP: 120/80", "Glucose: 90"},
		},
		{
			name:  "safety",
			alert: Alert{Kind: KindSafety, Subject: "D2", Fields: []Field{{ColLocation, "Hall"}, {ColTimestamp, "noon"}}},
			want:  []string{"*Fall Detected*", "`D2`", "at Hall on noon"},
		},
		{
			name:  "reminder",
			alert: Alert{Kind: KindReminder, Subject: "D3", Fields: []Field{{ColReminderType, "Medication"}, {ColScheduledTime, "08:00"}}},
			want:  []string{"*Reminder*", "`D3`", "Medication at 08:00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Markdown(tt.alert)
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
		})
	}
}

func TestRender_UnknownKind(t *testing.T) {
	t.Parallel()

	a := Alert{Kind: "vitals", Subject: "D9"}
	assert.Equal(t, "vitals alert for D9", Render(a))
	assert.Equal(t, Render(a), Markdown(a))
	assert.Equal(t, Render(a), a.String())
}

func TestRenderAll(t *testing.T) {
	t.Parallel()

	alerts := []Alert{
		{Kind: KindReminder, Subject: "A", Fields: []Field{{ColReminderType, "x"}, {ColScheduledTime, "1"}}},
		{Kind: KindReminder, Subject: "B", Fields: []Field{{ColReminderType, "y"}, {ColScheduledTime, "2"}}},
	}

	plain := RenderAll(alerts, nil)
	assert.Equal(t, []string{"Reminder for A: x at 1", "Reminder for B: y at 2"}, plain)

	upper := RenderAll(alerts, func(a Alert) string { return strings.ToUpper(a.Subject) })
	assert.Equal(t, []string{"A", "B"}, upper)

	assert.Empty(t, RenderAll(nil, nil))
}
