package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	healthCSV = `Device-ID/User-ID,Timestamp,Heart Rate,Heart Rate Below/Above Threshold (Yes/No),Blood Pressure,Blood Pressure Below/Above Threshold (Yes/No),Glucose Levels,Glucose Levels Below/Above Threshold (Yes/No),Oxygen Saturation (SpO₂%),SpO₂ Below Threshold (Yes/No),Alert Triggered (Yes/No),Caregiver Notified (Yes/No)
D1000,1/17/2025 7:00,72,No,120/80 mmHg,No,90,No,98,No,No,No
D1001,1/17/2025 7:05,140,Yes,150/95 mmHg,Yes,180,Yes,91,No,Yes,Yes
`
	safetyCSV = `Device-ID/User-ID,Timestamp,Movement Activity,Fall Detected (Yes/No),Impact Force Level,Post-Fall Inactivity Duration (Seconds),Location,Alert Triggered (Yes/No),Caregiver Notified (Yes/No)
D1002,1/17/2025 8:15,Lying,Yes,High,300,Bathroom,Yes,Yes
`
	reminderCSV = `Device-ID/User-ID,Timestamp,Reminder Type,Scheduled Time,Reminder Sent (Yes/No),Acknowledged (Yes/No)
D1003,1/17/2025 9:00,Medication,09:00:00,No,No
D1004,1/17/2025 9:30,Hydration,09:30:00,Yes,Yes
`
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func fakeOllama(t *testing.T, hits *atomic.Int32, respond func(w http.ResponseWriter, req map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		respond(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func args(dir, endpoint string, extra ...string) []string {
	return append([]string{
		"-env-file", "",
		"-health-path", filepath.Join(dir, "health.csv"),
		"-safety-path", filepath.Join(dir, "safety.csv"),
		"-reminder-path", filepath.Join(dir, "reminder.csv"),
		"-ollama-endpoint", endpoint,
	}, extra...)
}

func TestRun_AlertsAndSummary(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"health.csv":   healthCSV,
		"safety.csv":   safetyCSV,
		"reminder.csv": reminderCSV,
	})

	var hits atomic.Int32
	var prompt atomic.Value
	srv := fakeOllama(t, &hits, func(w http.ResponseWriter, req map[string]any) {
		prompt.Store(req["prompt"])
		_, _ = w.Write([]byte(`{"response":"D1001 needs a vitals check, D1002 fell."}`))
	})

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args(dir, srv.URL, "-summary-mode", "whole"), &stdout, &stderr)
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, "Raw Alerts:")
	assert.Contains(t, out, "• Health Alert for D1001: HR=140, BP=150/95 mmHg, Glucose=180")
	assert.Contains(t, out, "• Safety Alert: Fall detected for D1002 at Bathroom on 1/17/2025 8:15")
	assert.Contains(t, out, "• Reminder for D1003: Medication at 09:00:00")
	assert.NotContains(t, out, "D1000")
	assert.NotContains(t, out, "D1004")
	assert.Contains(t, out, "D1001 needs a vitals check, D1002 fell.")

	// health, safety, reminder order
	assert.Less(t, strings.Index(out, "Health Alert"), strings.Index(out, "Safety Alert"))
	assert.Less(t, strings.Index(out, "Safety Alert"), strings.Index(out, "Reminder for"))

	assert.Equal(t, int32(1), hits.Load())
	assert.Contains(t, prompt.Load(), "Reminder for D1003")
	assert.Empty(t, stderr.String())
}

func TestRun_NoAlertsSkipsModel(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"reminder.csv": "Device-ID/User-ID,Reminder Type,Scheduled Time,Reminder Sent (Yes/No)\nD1,Medication,08:00,Yes\n",
	})

	var hits atomic.Int32
	srv := fakeOllama(t, &hits, func(w http.ResponseWriter, _ map[string]any) {
		_, _ = w.Write([]byte(`{"response":"should not be asked"}`))
	})

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), args(dir, srv.URL), &stdout, &stderr))

	assert.Equal(t, "No current alerts.\n", stdout.String())
	assert.Zero(t, hits.Load())
}

func TestRun_StreamedSummary(t *testing.T) {
	dir := writeFiles(t, map[string]string{"safety.csv": safetyCSV})

	var hits atomic.Int32
	srv := fakeOllama(t, &hits, func(w http.ResponseWriter, req map[string]any) {
		assert.Equal(t, true, req["stream"])
		_, _ = w.Write([]byte("{\"response\":\"A\"}\n{\"response\":\"B\"}\n{\"response\":\"C\",\"done\":true}\n"))
	})

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), args(dir, srv.URL), &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Caregiver Summary:\nABC\n")
}

func TestRun_ModelUnavailablePrintsFallback(t *testing.T) {
	dir := writeFiles(t, map[string]string{"safety.csv": safetyCSV})

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), args(dir, url), &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Raw Alerts:")
	assert.Contains(t, stdout.String(), "No summary generated.")
}

func TestRun_MalformedTableWarns(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"health.csv": "a,b\n1,2,3\n",
		"safety.csv": safetyCSV,
	})

	var hits atomic.Int32
	srv := fakeOllama(t, &hits, func(w http.ResponseWriter, _ map[string]any) {
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	})

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), args(dir, srv.URL, "-summary-mode", "whole"), &stdout, &stderr))
	assert.Contains(t, stderr.String(), "warning: health table skipped")
	assert.Contains(t, stdout.String(), "Fall detected for D1002")
}

func TestRun_MissingColumnWarns(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"health.csv": "Device-ID/User-ID,Heart Rate,Alert Triggered (Yes/No)\nD1,140,Yes\n",
	})

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), args(dir, "http://127.0.0.1:1"), &stdout, &stderr))
	assert.Contains(t, stderr.String(), "health alerts unavailable")
	assert.Contains(t, stderr.String(), "Blood Pressure")
	assert.Equal(t, "No current alerts.\n", stdout.String())
}

func TestRun_InvalidMode(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-env-file", "", "-summary-mode", "chunked"}, &stdout, &stderr)
	assert.ErrorContains(t, err, "unknown summary mode")
}

func TestLoadEnvFile(t *testing.T) {
	assert.NoError(t, loadEnvFile(""))
	assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CAREWATCH_TEST_ONLY_KEY=from-dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("CAREWATCH_TEST_ONLY_KEY") })

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-dotenv", os.Getenv("CAREWATCH_TEST_ONLY_KEY"))
}
