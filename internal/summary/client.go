// Package summary asks a local generative-text service to paraphrase derived
// alerts. It is best-effort: every failure becomes a fallback Result carrying
// the cause, never an error return.
package summary

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultEndpoint = "http://localhost:11434/api/generate"
	DefaultModel    = "tinyllama"
	DefaultTimeout  = 120 * time.Second

	// Instruction prefixes every prompt.
	Instruction = "You are an elderly care assistant. Summarize these alerts in a friendly, helpful way:\n\n"

	// FallbackMessage is returned whenever no generated text could be obtained.
	FallbackMessage = "No summary generated."

	maxWholeBody    = 4 << 20
	maxStreamLine   = 1 << 20
	maxErrorSnippet = 512
)

const tracerName = "github.com/linnemanlabs/carewatch/internal/summary"

var (
	// ErrSummaryUnavailable is wrapped by every fallback cause except ErrNoAlerts.
	ErrSummaryUnavailable = errors.New("summary unavailable")

	// ErrNoAlerts is the cause when Summarize is called with nothing to summarize.
	ErrNoAlerts = errors.New("no alerts to summarize")
)

// Client talks to an Ollama-compatible /api/generate endpoint.
type Client struct {
	http     *resty.Client
	endpoint string
	model    string
	mode     Mode
	timeout  time.Duration
	tracer   trace.Tracer
	hooks    Hooks
}

// Option configures a Client.
type Option func(*Client)

// WithModel sets the model identifier sent with each request.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMode selects whole-body or streamed-line response handling.
func WithMode(m Mode) Option {
	return func(c *Client) { c.mode = m }
}

// WithTimeout bounds a single Summarize round trip, including body streaming.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// WithHooks installs observation callbacks.
func WithHooks(h Hooks) Option {
	return func(c *Client) { c.hooks = h }
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = resty.NewWithClient(hc) }
}

// New creates a client for endpoint (DefaultEndpoint when empty).
func New(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		http:     resty.New().SetTransport(otelhttp.NewTransport(http.DefaultTransport)),
		endpoint: endpoint,
		model:    DefaultModel,
		mode:     ModeStream,
		timeout:  DefaultTimeout,
		tracer:   otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(c)
	}
	c.http.SetHeader("Accept", "application/json")
	return c
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Mode returns the configured response mode.
func (c *Client) Mode() Mode { return c.mode }

// BuildPrompt prefixes the fixed instruction and joins alerts with newlines.
func BuildPrompt(alerts []string) string {
	return Instruction + strings.Join(alerts, "\n")
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Summarize issues one request for the given alerts and returns the generated
// text, or FallbackMessage with the cause recorded on the Result.
func (c *Client) Summarize(ctx context.Context, alerts []string) Result {
	start := time.Now()
	res := Result{Model: c.model, Mode: c.mode}

	if len(alerts) == 0 {
		res.fallback(ErrNoAlerts)
		res.Duration = time.Since(start)
		return res
	}

	ctx, span := c.tracer.Start(ctx, "summary.Summarize", trace.WithAttributes(
		attribute.String("carewatch.summary.model", c.model),
		attribute.String("carewatch.summary.mode", string(c.mode)),
		attribute.Int("carewatch.summary.alerts", len(alerts)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.generate(ctx, BuildPrompt(alerts), &res)
	switch {
	case err != nil:
		res.fallback(fmt.Errorf("%w: %w", ErrSummaryUnavailable, err))
	case strings.TrimSpace(text) == "":
		res.fallback(fmt.Errorf("%w: no text in response", ErrSummaryUnavailable))
	default:
		res.Text = text
		res.Outcome = OutcomeGenerated
	}
	res.Duration = time.Since(start)

	span.SetAttributes(
		attribute.String("carewatch.summary.outcome", string(res.Outcome)),
		attribute.Int("carewatch.summary.fragments", res.Fragments),
		attribute.Int("carewatch.summary.discarded", res.Discarded),
	)
	if res.Cause != nil {
		span.RecordError(res.Cause)
		span.SetStatus(codes.Error, res.Cause.Error())
	}

	if c.hooks.OnSummary != nil {
		c.hooks.OnSummary(&Event{
			Mode:      res.Mode,
			Outcome:   res.Outcome,
			Fragments: res.Fragments,
			Discarded: res.Discarded,
			Duration:  res.Duration.Seconds(),
		})
	}
	return res
}

func (c *Client) generate(ctx context.Context, prompt string, res *Result) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(generateRequest{Model: c.model, Prompt: prompt, Stream: c.mode == ModeStream}).
		SetDoNotParseResponse(true).
		Post(c.endpoint)
	if err != nil {
		if resp != nil && resp.RawBody() != nil {
			_ = resp.RawBody().Close()
		}
		return "", fmt.Errorf("post %s: %w", c.endpoint, err)
	}
	body := resp.RawBody()
	defer func() { _ = body.Close() }()

	if !resp.IsSuccess() {
		snippet, _ := io.ReadAll(io.LimitReader(body, maxErrorSnippet))
		return "", fmt.Errorf("endpoint returned %d: %s", resp.StatusCode(), strings.TrimSpace(string(snippet)))
	}

	if c.mode == ModeStream {
		return readStream(body, res)
	}
	return readWhole(body, res)
}

func readWhole(body io.Reader, res *Result) (string, error) {
	var out generateChunk
	if err := json.NewDecoder(io.LimitReader(body, maxWholeBody)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("endpoint error: %s", out.Error)
	}
	res.Fragments = 1
	return out.Response, nil
}

// readStream consumes newline-delimited JSON fragments as they arrive.
// A malformed fragment is counted and skipped; it never aborts the stream.
func readStream(body io.Reader, res *Result) (string, error) {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), maxStreamLine)

	var b strings.Builder
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		// a line may hold more than one object; stop at the first bad one
		dec := json.NewDecoder(bytes.NewReader(line))
		for {
			var chunk generateChunk
			err := dec.Decode(&chunk)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				res.Discarded++
				break
			}
			if chunk.Error != "" {
				return "", fmt.Errorf("endpoint error: %s", chunk.Error)
			}
			res.Fragments++
			b.WriteString(chunk.Response)
			if chunk.Done {
				return b.String(), nil
			}
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read stream: %w", err)
	}
	return b.String(), nil
}
