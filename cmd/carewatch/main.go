// Command carewatch runs one analysis over local monitoring files and prints
// the raw alerts followed by a caregiver summary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/linnemanlabs/go-core/cfg"

	"github.com/linnemanlabs/carewatch/internal/dataset"
	"github.com/linnemanlabs/carewatch/internal/monitor"
	"github.com/linnemanlabs/carewatch/internal/summary"
)

type options struct {
	paths    dataset.Paths
	endpoint string
	model    string
	mode     string
	timeout  time.Duration
	envFile  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "carewatch:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("carewatch", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var o options
	flags.StringVar(&o.paths.Health, "health-path", "health_monitoring.csv", "health monitoring CSV/XLSX")
	flags.StringVar(&o.paths.Safety, "safety-path", "safety_monitoring.csv", "safety monitoring CSV/XLSX")
	flags.StringVar(&o.paths.Reminder, "reminder-path", "daily_reminder.csv", "daily reminder CSV/XLSX")
	flags.StringVar(&o.endpoint, "ollama-endpoint", summary.DefaultEndpoint, "generate endpoint of the local model server")
	flags.StringVar(&o.model, "ollama-model", summary.DefaultModel, "model used for the summary")
	flags.StringVar(&o.mode, "summary-mode", string(summary.ModeStream), "summary response mode (whole|stream)")
	flags.DurationVar(&o.timeout, "summary-timeout", summary.DefaultTimeout, "upper bound on the summary request")
	flags.StringVar(&o.envFile, "env-file", ".env", "dotenv file read before CAREWATCH_ variables are applied")

	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := loadEnvFile(o.envFile); err != nil {
		return err
	}
	// CAREWATCH_ variables fill anything not given on the cmdline
	cfg.FillFromEnv(flags, "CAREWATCH_", func(format string, args ...any) {
		fmt.Fprintf(stderr, format+"\n", args...)
	})

	mode, err := summary.ParseMode(o.mode)
	if err != nil {
		return err
	}

	set, err := dataset.Load(o.paths)
	if err != nil {
		return err
	}

	out := newPrinter(stdout, stderr)
	for _, kind := range monitor.Kinds {
		if issue := set.Issue(kind); issue != "" {
			out.warn(fmt.Sprintf("%s table skipped: %s", kind, issue))
		}
	}

	var alerts []string
	for _, kind := range monitor.Kinds {
		rule, _ := monitor.RuleFor(kind)
		derived, err := rule.Derive(set.Table(kind))
		if err != nil {
			out.warn(fmt.Sprintf("%s alerts unavailable: %v", kind, err))
			continue
		}
		alerts = append(alerts, monitor.RenderAll(derived, nil)...)
	}

	if len(alerts) == 0 {
		out.allClear()
		return nil
	}

	out.alerts(alerts)

	client := summary.New(o.endpoint,
		summary.WithModel(o.model),
		summary.WithMode(mode),
		summary.WithTimeout(o.timeout),
	)
	out.summary(client.Summarize(ctx, alerts))
	return nil
}

// loadEnvFile applies a dotenv file without overriding variables already set.
// A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
