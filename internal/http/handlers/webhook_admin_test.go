package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/devsantiago69/Citaly-sub002/internal/webhook"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	if err := v.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}
	return e
}

func newAdminHandler(cfg webhook.Config) *WebhookAdminHandler {
	d := webhook.NewDispatcher(cfg, nil, zerolog.Nop())
	return NewWebhookAdminHandler(d, nil)
}

func TestGetStatus(t *testing.T) {
	h := newAdminHandler(webhook.Config{
		TargetURL: "https://hooks.example.com",
		Enabled:   true,
	})

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.GetStatus(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)

	var status webhook.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "https://hooks.example.com", status.TargetURL)
	assert.True(t, status.Enabled)
	assert.True(t, status.Configured)
	assert.False(t, status.AuditEnabled)
}

func TestUpdateConfig(t *testing.T) {
	h := newAdminHandler(webhook.Config{})

	body := `{"target_url":"https://automation.example.com/hook","enabled":true,"retry_attempts":5,"retry_delay_ms":500}`
	e := newTestEcho()
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.UpdateConfig(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)

	status := h.dispatcher.Status()
	assert.Equal(t, "https://automation.example.com/hook", status.TargetURL)
	assert.True(t, status.Enabled)
	assert.Equal(t, 5, status.RetryAttempts)
	assert.Equal(t, int64(500), status.RetryDelayMS)
}

func TestUpdateConfigRejectsBadURL(t *testing.T) {
	h := newAdminHandler(webhook.Config{})

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"target_url":"not a url"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := h.UpdateConfig(e.NewContext(req, rec))
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestUpdateConfigPartial(t *testing.T) {
	h := newAdminHandler(webhook.Config{
		TargetURL:     "https://hooks.example.com",
		Enabled:       true,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	})

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"enabled":false}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.UpdateConfig(e.NewContext(req, rec)))

	status := h.dispatcher.Status()
	assert.False(t, status.Enabled)
	assert.Equal(t, "https://hooks.example.com", status.TargetURL)
	assert.Equal(t, 3, status.RetryAttempts)
}

func TestWebhookTestEndpoint(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test.connection", r.Header.Get("X-Webhook-Event"))
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	h := newAdminHandler(webhook.Config{TargetURL: target.URL, Enabled: true})

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Test(e.NewContext(req, rec)))

	var result webhook.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
}

func TestListDeliveriesWithoutAudit(t *testing.T) {
	h := newAdminHandler(webhook.Config{})

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	err := h.ListDeliveries(e.NewContext(req, rec))
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.Code)
}
