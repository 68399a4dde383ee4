package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/devsantiago69/Citaly-sub002/internal/repo"
	"github.com/devsantiago69/Citaly-sub002/internal/webhook"
	"github.com/labstack/echo/v4"
)

// WebhookAdminHandler exposes the dispatcher configuration and audit log
type WebhookAdminHandler struct {
	dispatcher *webhook.Dispatcher
	logRepo    *repo.WebhookLogRepository
}

// NewWebhookAdminHandler creates a new webhook admin handler. logRepo may
// be nil when auditing is disabled.
func NewWebhookAdminHandler(dispatcher *webhook.Dispatcher, logRepo *repo.WebhookLogRepository) *WebhookAdminHandler {
	return &WebhookAdminHandler{
		dispatcher: dispatcher,
		logRepo:    logRepo,
	}
}

// GetStatus godoc
// @Summary Webhook dispatcher status
// @Description Get the current webhook dispatcher configuration
// @Tags webhooks
// @Produce json
// @Success 200 {object} webhook.Status
// @Router /admin/webhooks/status [get]
// @Security BearerAuth
func (h *WebhookAdminHandler) GetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.dispatcher.Status())
}

// UpdateConfigRequest mutates the dispatcher configuration. Omitted
// fields keep their current value.
type UpdateConfigRequest struct {
	TargetURL     *string `json:"target_url" validate:"omitempty,url"`
	Enabled       *bool   `json:"enabled"`
	RetryAttempts *int    `json:"retry_attempts" validate:"omitempty,min=1,max=10"`
	RetryDelayMS  *int    `json:"retry_delay_ms" validate:"omitempty,min=1"`
}

// UpdateConfig godoc
// @Summary Update webhook configuration
// @Description Change the webhook target URL, enabled flag or retry policy at runtime
// @Tags webhooks
// @Accept json
// @Produce json
// @Param request body UpdateConfigRequest true "Configuration changes"
// @Success 200 {object} webhook.Status
// @Failure 400 {object} map[string]string
// @Router /admin/webhooks/config [put]
// @Security BearerAuth
func (h *WebhookAdminHandler) UpdateConfig(c echo.Context) error {
	var req UpdateConfigRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if req.TargetURL != nil {
		h.dispatcher.SetURL(*req.TargetURL)
	}
	if req.Enabled != nil {
		h.dispatcher.SetEnabled(*req.Enabled)
	}
	if req.RetryAttempts != nil || req.RetryDelayMS != nil {
		attempts, delay := 0, time.Duration(0)
		if req.RetryAttempts != nil {
			attempts = *req.RetryAttempts
		}
		if req.RetryDelayMS != nil {
			delay = time.Duration(*req.RetryDelayMS) * time.Millisecond
		}
		h.dispatcher.SetRetryPolicy(attempts, delay)
	}

	return c.JSON(http.StatusOK, h.dispatcher.Status())
}

// Test godoc
// @Summary Test the webhook target
// @Description Dispatch a test.connection event to the configured target
// @Tags webhooks
// @Produce json
// @Success 200 {object} webhook.Result
// @Router /admin/webhooks/test [post]
// @Security BearerAuth
func (h *WebhookAdminHandler) Test(c echo.Context) error {
	return c.JSON(http.StatusOK, h.dispatcher.TestConnection())
}

// ListDeliveries godoc
// @Summary Recent webhook deliveries
// @Description List the most recent webhook delivery audit entries
// @Tags webhooks
// @Produce json
// @Param limit query int false "Limit" default(50)
// @Success 200 {array} models.WebhookDeliveryLog
// @Failure 503 {object} map[string]string
// @Router /admin/webhooks/deliveries [get]
// @Security BearerAuth
func (h *WebhookAdminHandler) ListDeliveries(c echo.Context) error {
	if h.logRepo == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Delivery auditing is not enabled")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	entries, err := h.logRepo.ListRecent(limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load deliveries")
	}
	return c.JSON(http.StatusOK, entries)
}
