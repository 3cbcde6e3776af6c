package summary

import (
	"fmt"
	"time"
)

// Mode selects how the response body is consumed.
type Mode string

const (
	// ModeWhole decodes the body as a single JSON object.
	ModeWhole Mode = "whole"

	// ModeStream reads newline-delimited JSON fragments.
	ModeStream Mode = "stream"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeWhole, ModeStream:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown summary mode %q (want %q or %q)", s, ModeWhole, ModeStream)
}

// Outcome is how a summary request ended.
type Outcome string

const (
	OutcomeGenerated Outcome = "generated"
	OutcomeFallback  Outcome = "fallback"

	// OutcomeSkipped is recorded by callers that never invoke the client
	// because there were no alerts.
	OutcomeSkipped Outcome = "skipped"
)

// Result is the typed outcome of Summarize. Cause is set only on fallback and
// is left to the caller to log.
type Result struct {
	Text      string
	Outcome   Outcome
	Cause     error
	Model     string
	Mode      Mode
	Fragments int
	Discarded int
	Duration  time.Duration
}

// Fallback reports whether Text is the fixed fallback message.
func (r Result) Fallback() bool { return r.Outcome == OutcomeFallback }

func (r *Result) fallback(cause error) {
	r.Text = FallbackMessage
	r.Outcome = OutcomeFallback
	r.Cause = cause
}

// Event is passed to Hooks.OnSummary after every network round trip.
type Event struct {
	Mode      Mode
	Outcome   Outcome
	Fragments int
	Discarded int
	Duration  float64
}

// Hooks lets callers observe summary calls without coupling to a metrics backend.
type Hooks struct {
	OnSummary func(e *Event)
}
