package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/devsantiago69/Citaly-sub002/pkg/models"
	"github.com/rs/zerolog"
)

// Default retry policy and request bounds
const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 1000 * time.Millisecond
	requestTimeout       = 10 * time.Second
)

// Envelope is the standardized wrapper posted to the webhook target
type Envelope struct {
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	Source    string         `json:"source"`
	Data      any            `json:"data"`
	Metadata  map[string]any `json:"metadata"`
}

// Result is the outcome of one dispatch. Dispatch never raises: every
// failure mode resolves to a tagged result so callers can log-and-continue
// without disrupting their own request cycle.
type Result struct {
	Success  bool   `json:"success"`
	Status   int    `json:"status,omitempty"`
	Data     any    `json:"data,omitempty"`
	Error    string `json:"error,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Config governs all subsequent dispatches. It can be changed at runtime
// through the dispatcher's setters; in-flight retries keep the snapshot
// they started with.
type Config struct {
	TargetURL     string
	Enabled       bool
	RetryAttempts int
	RetryDelay    time.Duration
	Source        string
	Environment   string
	Version       string
}

// Status is the read-only view of the dispatcher configuration
type Status struct {
	TargetURL     string `json:"target_url"`
	Enabled       bool   `json:"enabled"`
	Configured    bool   `json:"configured"`
	RetryAttempts int    `json:"retry_attempts"`
	RetryDelayMS  int64  `json:"retry_delay_ms"`
	AuditEnabled  bool   `json:"audit_enabled"`
}

// Recorder persists the final outcome of a dispatch. A nil recorder
// disables auditing entirely.
type Recorder interface {
	Record(entry models.WebhookDeliveryLog) error
}

// Dispatcher relays business events to one external HTTP endpoint with a
// bounded retry budget. It is constructed once in the composition root and
// injected wherever events are emitted.
type Dispatcher struct {
	log      zerolog.Logger
	client   *http.Client
	recorder Recorder

	mu  sync.RWMutex
	cfg Config
}

// Option adjusts a single Send call
type Option func(*sendOptions)

type sendOptions struct {
	metadata map[string]any
	attempts int
}

// WithMetadata merges caller metadata over the envelope defaults
func WithMetadata(md map[string]any) Option {
	return func(o *sendOptions) { o.metadata = md }
}

// WithAttempts overrides the retry budget for this call only
func WithAttempts(n int) Option {
	return func(o *sendOptions) { o.attempts = n }
}

// NewDispatcher creates a dispatcher with the given configuration.
// Zero-valued retry fields fall back to the defaults.
func NewDispatcher(cfg Config, recorder Recorder, log zerolog.Logger) *Dispatcher {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = DefaultRetryAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Source == "" {
		cfg.Source = "citaly-api"
	}
	return &Dispatcher{
		log:      log.With().Str("component", "webhook").Logger(),
		client:   &http.Client{Timeout: requestTimeout},
		recorder: recorder,
		cfg:      cfg,
	}
}

// SetURL changes the target URL for subsequent dispatches
func (d *Dispatcher) SetURL(url string) {
	d.mu.Lock()
	d.cfg.TargetURL = url
	d.mu.Unlock()
	d.log.Info().Str("target_url", url).Msg("webhook target updated")
}

// SetEnabled toggles dispatching for subsequent calls
func (d *Dispatcher) SetEnabled(enabled bool) {
	d.mu.Lock()
	d.cfg.Enabled = enabled
	d.mu.Unlock()
	d.log.Info().Bool("enabled", enabled).Msg("webhook dispatching toggled")
}

// SetRetryPolicy changes the attempt budget and inter-retry delay
func (d *Dispatcher) SetRetryPolicy(attempts int, delay time.Duration) {
	d.mu.Lock()
	if attempts > 0 {
		d.cfg.RetryAttempts = attempts
	}
	if delay > 0 {
		d.cfg.RetryDelay = delay
	}
	d.mu.Unlock()
}

// Status returns the current configuration
func (d *Dispatcher) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Status{
		TargetURL:     d.cfg.TargetURL,
		Enabled:       d.cfg.Enabled,
		Configured:    d.cfg.TargetURL != "",
		RetryAttempts: d.cfg.RetryAttempts,
		RetryDelayMS:  d.cfg.RetryDelay.Milliseconds(),
		AuditEnabled:  d.recorder != nil,
	}
}

func (d *Dispatcher) snapshot() Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// Send relays one event to the configured target with bounded retries.
// It never returns an error: all outcomes, including exhausted retries,
// resolve to a Result. The caller's transaction is never rolled back by a
// failed dispatch.
func (d *Dispatcher) Send(event string, data any, opts ...Option) Result {
	var options sendOptions
	for _, opt := range opts {
		opt(&options)
	}

	cfg := d.snapshot()

	if !cfg.Enabled || cfg.TargetURL == "" {
		d.log.Debug().Str("event", event).Msg("webhook dispatching disabled, skipping")
		return Result{Success: false, Reason: "disabled"}
	}

	metadata := map[string]any{
		"environment": cfg.Environment,
		"version":     cfg.Version,
	}
	for k, v := range options.metadata {
		metadata[k] = v
	}

	envelope := Envelope{
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Source:    cfg.Source,
		Data:      data,
		Metadata:  metadata,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		d.log.Error().Err(err).Str("event", event).Msg("failed to encode webhook envelope")
		return Result{Success: false, Error: fmt.Sprintf("encode envelope: %v", err)}
	}

	attempts := cfg.RetryAttempts
	if options.attempts > 0 {
		attempts = options.attempts
	}

	start := time.Now()
	var result Result
	for attempt := 1; attempt <= attempts; attempt++ {
		result = d.attempt(cfg, event, body)
		result.Attempts = attempt
		if result.Success {
			d.log.Info().
				Str("event", event).
				Int("status", result.Status).
				Int("attempt", attempt).
				Msg("webhook delivered")
			break
		}

		d.log.Warn().
			Str("event", event).
			Str("error", result.Error).
			Int("attempt", attempt).
			Int("budget", attempts).
			Msg("webhook delivery attempt failed")

		if attempt < attempts {
			time.Sleep(cfg.RetryDelay)
		}
	}

	if !result.Success {
		d.log.Error().
			Str("event", event).
			Int("attempts", result.Attempts).
			Msg("webhook delivery failed, retries exhausted")
	}

	d.record(cfg, event, result, time.Since(start))
	return result
}

// attempt performs a single delivery attempt
func (d *Dispatcher) attempt(cfg Config, event string, body []byte) Result {
	req, err := http.NewRequest(http.MethodPost, cfg.TargetURL, bytes.NewReader(body))
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Source", cfg.Source)
	req.Header.Set("X-Webhook-Event", event)

	resp, err := d.client.Do(req)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{
			Success: false,
			Status:  resp.StatusCode,
			Error:   fmt.Sprintf("webhook target returned status %d", resp.StatusCode),
		}
	}

	return Result{Success: true, Status: resp.StatusCode, Data: decodeBody(raw)}
}

// decodeBody passes the response body through as parsed JSON when
// possible, raw text otherwise. No response contract is enforced.
func decodeBody(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func (d *Dispatcher) record(cfg Config, event string, result Result, elapsed time.Duration) {
	if d.recorder == nil {
		return
	}
	entry := models.WebhookDeliveryLog{
		Event:        event,
		TargetURL:    cfg.TargetURL,
		Success:      result.Success,
		StatusCode:   result.Status,
		Attempts:     result.Attempts,
		ErrorMessage: result.Error,
		DurationMS:   elapsed.Milliseconds(),
	}
	if err := d.recorder.Record(entry); err != nil {
		d.log.Warn().Err(err).Str("event", event).Msg("failed to record webhook delivery")
	}
}
