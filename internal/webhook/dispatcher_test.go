package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/devsantiago69/Citaly-sub002/pkg/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture records every request a test target receives
type capture struct {
	mu        sync.Mutex
	times     []time.Time
	envelopes []Envelope
	events    []string
	sources   []string
}

func (c *capture) handle(t *testing.T, status func(attempt int) int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.times = append(c.times, time.Now())
		attempt := len(c.times)
		c.events = append(c.events, r.Header.Get("X-Webhook-Event"))
		c.sources = append(c.sources, r.Header.Get("X-Webhook-Source"))
		var env Envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			t.Errorf("invalid envelope body: %v", err)
		}
		c.envelopes = append(c.envelopes, env)
		c.mu.Unlock()

		w.WriteHeader(status(attempt))
		w.Write([]byte(`{"received":true}`))
	}
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.times)
}

func newTestDispatcher(url string, rec Recorder) *Dispatcher {
	return NewDispatcher(Config{
		TargetURL:     url,
		Enabled:       true,
		RetryAttempts: 3,
		RetryDelay:    10 * time.Millisecond,
		Source:        "citaly-api",
		Environment:   "test",
		Version:       "1.0.0",
	}, rec, zerolog.Nop())
}

func TestDisabledDispatcherMakesNoNetworkCall(t *testing.T) {
	c := &capture{}
	server := httptest.NewServer(c.handle(t, func(int) int { return 200 }))
	defer server.Close()

	d := newTestDispatcher(server.URL, nil)
	d.SetEnabled(false)

	result := d.Send("appointment.created", map[string]any{"id": 1})

	assert.False(t, result.Success)
	assert.Equal(t, "disabled", result.Reason)
	assert.Zero(t, c.count())
}

func TestSendSucceedsFirstAttempt(t *testing.T) {
	c := &capture{}
	server := httptest.NewServer(c.handle(t, func(int) int { return 200 }))
	defer server.Close()

	d := newTestDispatcher(server.URL, nil)
	result := d.Send("payment.received", map[string]any{"amount": 5000})

	require.True(t, result.Success)
	assert.Equal(t, 200, result.Status)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, map[string]any{"received": true}, result.Data)
	require.Equal(t, 1, c.count())

	env := c.envelopes[0]
	assert.Equal(t, "payment.received", env.Event)
	assert.Equal(t, "citaly-api", env.Source)
	assert.NotEmpty(t, env.Timestamp)
	_, err := time.Parse(time.RFC3339, env.Timestamp)
	assert.NoError(t, err)
	assert.Equal(t, "test", env.Metadata["environment"])
	assert.Equal(t, "1.0.0", env.Metadata["version"])
	assert.Equal(t, "payment.received", c.events[0])
	assert.Equal(t, "citaly-api", c.sources[0])
}

func TestSendRetriesUntilBudgetExhausted(t *testing.T) {
	c := &capture{}
	server := httptest.NewServer(c.handle(t, func(int) int { return 500 }))
	defer server.Close()

	d := newTestDispatcher(server.URL, nil)
	d.SetRetryPolicy(3, 20*time.Millisecond)

	result := d.Send("appointment.updated", map[string]any{"id": 2})

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Contains(t, result.Error, "status 500")
	require.Equal(t, 3, c.count())

	// attempts are spaced by at least the configured delay
	for i := 1; i < len(c.times); i++ {
		gap := c.times[i].Sub(c.times[i-1])
		assert.GreaterOrEqual(t, gap, 15*time.Millisecond, "attempt %d fired too early", i+1)
	}
}

func TestSendSucceedsOnSecondAttempt(t *testing.T) {
	c := &capture{}
	server := httptest.NewServer(c.handle(t, func(attempt int) int {
		if attempt == 1 {
			return 502
		}
		return 201
	}))
	defer server.Close()

	d := newTestDispatcher(server.URL, nil)
	result := d.Send("reminder.sent", map[string]any{})

	require.True(t, result.Success)
	assert.Equal(t, 201, result.Status)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 2, c.count())
}

func TestSendAttemptOverride(t *testing.T) {
	c := &capture{}
	server := httptest.NewServer(c.handle(t, func(int) int { return 500 }))
	defer server.Close()

	d := newTestDispatcher(server.URL, nil)
	result := d.Send("system.alert", map[string]any{}, WithAttempts(1))

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, c.count())
}

func TestSendNetworkErrorIsRetriedThenReported(t *testing.T) {
	d := newTestDispatcher("http://127.0.0.1:1", nil)
	d.SetRetryPolicy(2, time.Millisecond)

	result := d.Send("test.connection", nil)

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.NotEmpty(t, result.Error)
}

func TestCallerMetadataMergedOverDefaults(t *testing.T) {
	c := &capture{}
	server := httptest.NewServer(c.handle(t, func(int) int { return 200 }))
	defer server.Close()

	d := newTestDispatcher(server.URL, nil)
	result := d.Send("client.registered", map[string]any{}, WithMetadata(map[string]any{
		"environment": "override",
		"trace_id":    "abc123",
	}))

	require.True(t, result.Success)
	md := c.envelopes[0].Metadata
	assert.Equal(t, "override", md["environment"])
	assert.Equal(t, "1.0.0", md["version"])
	assert.Equal(t, "abc123", md["trace_id"])
}

func TestRuntimeReconfigurationAppliesToNextSend(t *testing.T) {
	c := &capture{}
	server := httptest.NewServer(c.handle(t, func(int) int { return 200 }))
	defer server.Close()

	d := newTestDispatcher("http://127.0.0.1:1", nil)
	d.SetURL(server.URL)

	result := d.Send("test.connection", nil)
	assert.True(t, result.Success)
	assert.Equal(t, 1, c.count())

	status := d.Status()
	assert.Equal(t, server.URL, status.TargetURL)
	assert.True(t, status.Enabled)
	assert.True(t, status.Configured)
	assert.False(t, status.AuditEnabled)
}

func TestUnconfiguredTargetShortCircuits(t *testing.T) {
	d := newTestDispatcher("", nil)
	result := d.Send("appointment.created", nil)
	assert.False(t, result.Success)
	assert.Equal(t, "disabled", result.Reason)
}

// recorderStub remembers the last audit entry
type recorderStub struct {
	mu      sync.Mutex
	entries []models.WebhookDeliveryLog
}

func (r *recorderStub) Record(entry models.WebhookDeliveryLog) error {
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
	return nil
}

func TestDeliveryOutcomeIsRecorded(t *testing.T) {
	c := &capture{}
	server := httptest.NewServer(c.handle(t, func(int) int { return 200 }))
	defer server.Close()

	rec := &recorderStub{}
	d := newTestDispatcher(server.URL, rec)

	d.Send("payment.received", map[string]any{"amount": 100})

	require.Len(t, rec.entries, 1)
	entry := rec.entries[0]
	assert.Equal(t, "payment.received", entry.Event)
	assert.Equal(t, server.URL, entry.TargetURL)
	assert.True(t, entry.Success)
	assert.Equal(t, 200, entry.StatusCode)
	assert.Equal(t, 1, entry.Attempts)
}

func TestFailedDeliveryIsRecorded(t *testing.T) {
	c := &capture{}
	server := httptest.NewServer(c.handle(t, func(int) int { return 503 }))
	defer server.Close()

	rec := &recorderStub{}
	d := newTestDispatcher(server.URL, rec)
	d.SetRetryPolicy(2, time.Millisecond)

	d.Send("system.alert", nil)

	require.Len(t, rec.entries, 1)
	entry := rec.entries[0]
	assert.False(t, entry.Success)
	assert.Equal(t, 2, entry.Attempts)
	assert.Contains(t, entry.ErrorMessage, "status 503")
}

func TestDisabledSendIsNotRecorded(t *testing.T) {
	rec := &recorderStub{}
	d := newTestDispatcher("http://example.invalid", rec)
	d.SetEnabled(false)

	d.Send("test.connection", nil)
	assert.Empty(t, rec.entries)
}
