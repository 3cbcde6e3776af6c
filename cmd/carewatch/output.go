package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/linnemanlabs/carewatch/internal/summary"
)

var (
	colorRed    = lipgloss.Color("#FF5F5F")
	colorGreen  = lipgloss.Color("#5FD75F")
	colorYellow = lipgloss.Color("#FFD75F")
	colorCyan   = lipgloss.Color("#5FD7FF")
	colorGray   = lipgloss.Color("#8A8A8A")
)

// printer renders CLI output. Styles are bound to the writer's renderer so
// piped output carries no escape codes.
type printer struct {
	out, errOut io.Writer

	heading lipgloss.Style
	bullet  lipgloss.Style
	ok      lipgloss.Style
	warning lipgloss.Style
	dim     lipgloss.Style
	failure lipgloss.Style
}

func newPrinter(out, errOut io.Writer) *printer {
	r := lipgloss.NewRenderer(out)
	er := lipgloss.NewRenderer(errOut)
	return &printer{
		out:     out,
		errOut:  errOut,
		heading: r.NewStyle().Bold(true).Foreground(colorCyan),
		bullet:  r.NewStyle().Foreground(colorYellow),
		ok:      r.NewStyle().Bold(true).Foreground(colorGreen),
		dim:     r.NewStyle().Foreground(colorGray).Italic(true),
		failure: r.NewStyle().Foreground(colorRed),
		warning: er.NewStyle().Foreground(colorYellow),
	}
}

func (p *printer) warn(msg string) {
	fmt.Fprintln(p.errOut, p.warning.Render("warning: "+msg))
}

func (p *printer) allClear() {
	fmt.Fprintln(p.out, p.ok.Render("No current alerts."))
}

func (p *printer) alerts(alerts []string) {
	fmt.Fprintln(p.out, p.heading.Render("Raw Alerts:"))
	for _, a := range alerts {
		fmt.Fprintln(p.out, p.bullet.Render("•"), a)
	}
}

func (p *printer) summary(res summary.Result) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.heading.Render("Caregiver Summary:"))
	if res.Outcome != summary.OutcomeGenerated {
		fmt.Fprintln(p.out, p.dim.Render(res.Text))
		if res.Cause != nil {
			fmt.Fprintln(p.out, p.failure.Render(fmt.Sprintf("(%v)", res.Cause)))
		}
		return
	}
	fmt.Fprintln(p.out, res.Text)
}
