// Package monitor derives caregiver alerts from the health, safety and
// reminder tables. Derivation produces typed Alert values; turning them into
// sentences is a separate rendering step.
package monitor

// Kind names the dataset an alert was derived from.
type Kind string

const (
	// KindHealth is an abnormal vitals reading.
	KindHealth Kind = "health"

	// KindSafety is a detected fall.
	KindSafety Kind = "safety"

	// KindReminder is a reminder that has not been sent yet.
	KindReminder Kind = "reminder"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindHealth, KindSafety, KindReminder}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindHealth, KindSafety, KindReminder:
		return true
	}
	return false
}

// Field is one named value copied from the source row.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Alert is produced from exactly one source row.
type Alert struct {
	Kind    Kind    `json:"kind"`
	Subject string  `json:"subject"`
	Fields  []Field `json:"fields"`
}

// Field returns the value of the named field, or "" if absent.
func (a Alert) Field(name string) string {
	for _, f := range a.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// String renders the alert as a plain sentence.
func (a Alert) String() string { return Render(a) }
