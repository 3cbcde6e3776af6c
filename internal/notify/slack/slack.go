// Package slack sends analysis reports to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/carewatch/internal/monitor"
	"github.com/linnemanlabs/carewatch/internal/report"
	"github.com/linnemanlabs/carewatch/internal/summary"
)

const (
	// maxSectionText is Slack's limit for a section block's text.
	maxSectionText = 3000
	summaryHeading = "*Summary*\n\n"
	maxSummaryLen  = maxSectionText - len(summaryHeading)
	maxAlertLines = 20
	httpTimeout   = 10 * time.Second
)

// Notifier posts reports to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

// New creates a new Slack notifier. If webhookURL is empty, Notify is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

// Notify posts a report to the configured webhook.
func (n *Notifier) Notify(ctx context.Context, r *report.Report) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildMessage(r))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}

	n.logger.Info(ctx, "slack notification sent", "report_id", r.ID, "alerts", len(r.Alerts))
	return nil
}

func buildMessage(r *report.Report) map[string]any {
	return map[string]any{
		"text": headerText(r),
		"blocks": []map[string]any{
			headerBlock(r),
			countsBlock(r),
			{"type": "divider"},
			alertsBlock(r),
			{"type": "divider"},
			summaryBlock(r),
			contextBlock(r),
		},
	}
}

func headerText(r *report.Report) string {
	title := fmt.Sprintf("%d care alert%s", len(r.Alerts), plural(len(r.Alerts)))
	if r.Status == report.StatusPartial {
		title += " (partial report)"
	}
	return fmt.Sprintf("%s %s", statusEmoji(r), title)
}

func headerBlock(r *report.Report) map[string]any {
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": headerText(r),
		},
	}
}

func countsBlock(r *report.Report) map[string]any {
	fields := make([]map[string]any, 0, len(r.Sections))
	for _, s := range r.Sections {
		text := fmt.Sprintf("*%s:* %d of %d rows", sectionTitle(s.Kind), s.Alerts, s.Rows)
		if s.Error != "" {
			text = fmt.Sprintf("*%s:* not analysed (%s)", sectionTitle(s.Kind), s.Error)
		}
		fields = append(fields, map[string]any{"type": "mrkdwn", "text": text})
	}
	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func alertsBlock(r *report.Report) map[string]any {
	lines := make([]string, 0, maxAlertLines+1)
	for i, a := range r.Alerts {
		if i == maxAlertLines {
			lines = append(lines, fmt.Sprintf("_...and %d more_", len(r.Alerts)-maxAlertLines))
			break
		}
		lines = append(lines, monitor.Markdown(a))
	}
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": strings.Join(lines, "\n"),
		},
	}
}

func summaryBlock(r *report.Report) map[string]any {
	text := truncate(r.Summary, maxSummaryLen)
	if r.SummaryOutcome != summary.OutcomeGenerated {
		text = "_" + summary.FallbackMessage + "_"
	}
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": summaryHeading + text,
		},
	}
}

func contextBlock(r *report.Report) map[string]any {
	text := fmt.Sprintf("carewatch • report %s • %s", r.ID, r.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))
	if r.Model != "" {
		text += " • " + r.Model
	}
	return map[string]any{
		"type": "context",
		"elements": []map[string]any{
			{"type": "mrkdwn", "text": text},
		},
	}
}

func sectionTitle(k monitor.Kind) string {
	switch k {
	case monitor.KindHealth:
		return "Health"
	case monitor.KindSafety:
		return "Falls"
	case monitor.KindReminder:
		return "Reminders"
	}
	return string(k)
}

// statusEmoji is red when a fall was detected, yellow for any other alert
// or a partial report, green otherwise.
func statusEmoji(r *report.Report) string {
	switch {
	case len(r.AlertsOf(monitor.KindSafety)) > 0:
		return "\U0001f534" // red circle
	case len(r.Alerts) > 0, r.Status == report.StatusPartial:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// truncate cuts s to at most limit characters, ending on a rune boundary.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-3]) + "..."
}
