package monitor

import "fmt"

// Renderer turns an alert into display text.
type Renderer func(Alert) string

// Render is the plain sentence form fed to the summary prompt.
func Render(a Alert) string {
	switch a.Kind {
	case KindHealth:
		return fmt.Sprintf("Health Alert for %s: HR=%s, BP=%s, Glucose=%s",
			a.Subject, a.Field(ColHeartRate), a.Field(ColBloodPressure), a.Field(ColGlucose))
	case KindSafety:
		return fmt.Sprintf("Safety Alert: Fall detected for %s at %s on %s",
			a.Subject, a.Field(ColLocation), a.Field(ColTimestamp))
	case KindReminder:
		return fmt.Sprintf("Reminder for %s: %s at %s",
			a.Subject, a.Field(ColReminderType), a.Field(ColScheduledTime))
	}
	return fmt.Sprintf("%s alert for %s", a.Kind, a.Subject)
}

// Markdown is the Slack mrkdwn form of an alert.
func Markdown(a Alert) string {
	switch a.Kind {
	case KindHealth:
		return fmt.Sprintf("\U0001FA7A *Health Alert* for `%s` | HR: %s, BP: %s, Glucose: %s",
			a.Subject, a.Field(ColHeartRate), a.Field(ColBloodPressure), a.Field(ColGlucose))
	case KindSafety:
		return fmt.Sprintf("\u26a0\ufe0f *Fall Detected* for `%s` at %s on %s",
			a.Subject, a.Field(ColLocation), a.Field(ColTimestamp))
	case KindReminder:
		return fmt.Sprintf("\u23f0 *Reminder* for `%s`: %s at %s",
			a.Subject, a.Field(ColReminderType), a.Field(ColScheduledTime))
	}
	return Render(a)
}

// RenderAll applies r (Render when nil) to each alert, preserving order.
func RenderAll(alerts []Alert, r Renderer) []string {
	if r == nil {
		r = Render
	}
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = r(a)
	}
	return out
}
