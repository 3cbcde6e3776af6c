package monitor

import (
	"strings"

	"github.com/linnemanlabs/carewatch/internal/table"
)

// Canonical column names shared by all three datasets.
const (
	ColSubject = "Device-ID/User-ID"

	ColHeartRate      = "Heart Rate"
	ColBloodPressure  = "Blood Pressure"
	ColGlucose        = "Glucose Levels"
	ColAlertTriggered = "Alert Triggered (Yes/No)"

	ColLocation     = "Location"
	ColTimestamp    = "Timestamp"
	ColFallDetected = "Fall Detected (Yes/No)"

	ColReminderType  = "Reminder Type"
	ColScheduledTime = "Scheduled Time"
	ColReminderSent  = "Reminder Sent (Yes/No)"
)

// Rule selects rows whose Flag column equals Sentinel and carries Fields
// (plus the subject) into the resulting alert.
type Rule struct {
	Kind     Kind
	Flag     string
	Sentinel string
	Fields   []string
}

var (
	// HealthRule flags rows where the device raised an alert.
	HealthRule = Rule{
		Kind:     KindHealth,
		Flag:     ColAlertTriggered,
		Sentinel: "Yes",
		Fields:   []string{ColHeartRate, ColBloodPressure, ColGlucose},
	}

	// SafetyRule flags detected falls.
	SafetyRule = Rule{
		Kind:     KindSafety,
		Flag:     ColFallDetected,
		Sentinel: "Yes",
		Fields:   []string{ColLocation, ColTimestamp},
	}

	// ReminderRule flags reminders that are still pending.
	ReminderRule = Rule{
		Kind:     KindReminder,
		Flag:     ColReminderSent,
		Sentinel: "No",
		Fields:   []string{ColReminderType, ColScheduledTime},
	}
)

// RuleFor returns the rule for kind.
func RuleFor(kind Kind) (Rule, bool) {
	switch kind {
	case KindHealth:
		return HealthRule, true
	case KindSafety:
		return SafetyRule, true
	case KindReminder:
		return ReminderRule, true
	}
	return Rule{}, false
}

// Columns lists every column the rule reads.
func (r Rule) Columns() []string {
	cols := make([]string, 0, len(r.Fields)+2)
	cols = append(cols, ColSubject, r.Flag)
	return append(cols, r.Fields...)
}

// Derive returns one alert per matching row, in source row order. A table
// with no rows yields no alerts. A non-empty table lacking any referenced
// column fails with *table.MissingColumnError. t is only read.
func (r Rule) Derive(t *table.Table) ([]Alert, error) {
	if t.IsEmpty() {
		return nil, nil
	}
	if err := t.Require(r.Columns()...); err != nil {
		return nil, err
	}

	var alerts []Alert
	for _, row := range t.Rows {
		if strings.TrimSpace(row[r.Flag]) != r.Sentinel {
			continue
		}
		fields := make([]Field, len(r.Fields))
		for i, c := range r.Fields {
			fields[i] = Field{Name: c, Value: strings.TrimSpace(row[c])}
		}
		alerts = append(alerts, Alert{
			Kind:    r.Kind,
			Subject: strings.TrimSpace(row[ColSubject]),
			Fields:  fields,
		})
	}
	return alerts, nil
}

// Health derives abnormal-vitals alerts.
func Health(t *table.Table) ([]Alert, error) { return HealthRule.Derive(t) }

// Safety derives fall alerts.
func Safety(t *table.Table) ([]Alert, error) { return SafetyRule.Derive(t) }

// Reminder derives pending-reminder alerts.
func Reminder(t *table.Table) ([]Alert, error) { return ReminderRule.Derive(t) }
