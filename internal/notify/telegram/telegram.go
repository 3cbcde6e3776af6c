// Package telegram sends analysis reports to a caregiver chat through a Telegram bot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/carewatch/internal/monitor"
	"github.com/linnemanlabs/carewatch/internal/report"
	"github.com/linnemanlabs/carewatch/internal/summary"
)

const (
	// maxMessageLen stays under Telegram's 4096 character limit.
	maxMessageLen = 4000
	// maxAlertLines matches the slack notifier; the rest are counted.
	maxAlertLines = 20
	// summaryReserve is kept free of alert lines so the summary always fits.
	summaryReserve = 1500
)

// Notifier posts reports to one chat.
type Notifier struct {
	b      *bot.Bot
	chatID int64
	logger log.Logger
}

// New creates a notifier for chatID. Extra bot options are passed through
// (tests point the bot at a local server).
func New(token string, chatID int64, logger log.Logger, opts ...bot.Option) (*Notifier, error) {
	if token == "" {
		return nil, errors.New("telegram: empty bot token")
	}
	if chatID == 0 {
		return nil, errors.New("telegram: chat id is required")
	}
	if logger == nil {
		logger = log.Nop()
	}

	b, err := bot.New(token, append([]bot.Option{bot.WithSkipGetMe()}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}
	return &Notifier{b: b, chatID: chatID, logger: logger}, nil
}

// Notify sends a short Markdown digest of the report.
func (n *Notifier) Notify(ctx context.Context, r *report.Report) error {
	_, err := n.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      buildText(r),
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("telegram: send to chat %d: %w", n.chatID, err)
	}
	n.logger.Info(ctx, "telegram notification sent", "report_id", r.ID, "chat_id", n.chatID)
	return nil
}

// buildText renders r as MarkdownV2. Every value from the report is escaped.
func buildText(r *report.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*", bot.EscapeMarkdown(fmt.Sprintf("carewatch: %d alert%s", len(r.Alerts), plural(len(r.Alerts)))))
	if r.Status == report.StatusPartial {
		b.WriteString(" " + bot.EscapeMarkdown("(partial)"))
	}
	b.WriteString("\n\n")

	budget := maxMessageLen - summaryReserve
	shown := 0
	for _, a := range r.Alerts {
		line := alertLine(a) + "\n"
		if shown == maxAlertLines || utf8.RuneCountInString(b.String())+utf8.RuneCountInString(line) > budget {
			break
		}
		b.WriteString(line)
		shown++
	}
	if rest := len(r.Alerts) - shown; rest > 0 {
		fmt.Fprintf(&b, "_%s_\n", bot.EscapeMarkdown(fmt.Sprintf("…and %d more", rest)))
	}
	for _, s := range r.Sections {
		if s.Error != "" {
			fmt.Fprintf(&b, "_%s_\n", bot.EscapeMarkdown(string(s.Kind)+" not analysed"))
		}
	}

	b.WriteString("\n")
	if r.SummaryOutcome == summary.OutcomeGenerated {
		room := maxMessageLen - utf8.RuneCountInString(b.String())
		b.WriteString(escapeWithin(r.Summary, room))
	} else {
		b.WriteString("_" + bot.EscapeMarkdown(summary.FallbackMessage) + "_")
	}
	return b.String()
}

func alertLine(a monitor.Alert) string {
	esc := bot.EscapeMarkdown
	subject := "`" + escapeCode(a.Subject) + "`"
	switch a.Kind {
	case monitor.KindHealth:
		return "\U0001FA7A *Health Alert* for " + subject + esc(fmt.Sprintf(" | HR: %s, BP: %s, Glucose: %s",
			a.Field(monitor.ColHeartRate), a.Field(monitor.ColBloodPressure), a.Field(monitor.ColGlucose)))
	case monitor.KindSafety:
		return "\u26a0\ufe0f *Fall Detected* for " + subject + esc(fmt.Sprintf(" at %s on %s",
			a.Field(monitor.ColLocation), a.Field(monitor.ColTimestamp)))
	case monitor.KindReminder:
		return "\u23f0 *Reminder* for " + subject + esc(fmt.Sprintf(": %s at %s",
			a.Field(monitor.ColReminderType), a.Field(monitor.ColScheduledTime)))
	}
	return esc(monitor.Render(a))
}

// escapeCode escapes the two characters MarkdownV2 reserves inside code spans.
func escapeCode(s string) string {
	return strings.NewReplacer("\\", "\\\\", "`", "\\`").Replace(s)
}

// escapeWithin escapes s for MarkdownV2 and cuts it on a rune boundary so the
// escaped result, ellipsis included, is at most room characters.
func escapeWithin(s string, room int) string {
	if full := bot.EscapeMarkdown(s); utf8.RuneCountInString(full) <= room {
		return full
	}
	var b strings.Builder
	used := 0
	for _, r := range s {
		piece := bot.EscapeMarkdown(string(r))
		n := utf8.RuneCountInString(piece)
		if used+n > room-1 {
			break
		}
		b.WriteString(piece)
		used += n
	}
	b.WriteString("…")
	return b.String()
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
