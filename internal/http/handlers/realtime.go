package handlers

import (
	"net/http"

	"github.com/devsantiago69/Citaly-sub002/internal/presence"
	"github.com/labstack/echo/v4"
)

// RealtimeHandler exposes the presence registry over HTTP
type RealtimeHandler struct {
	registry *presence.Registry
}

// NewRealtimeHandler creates a new realtime handler
func NewRealtimeHandler(registry *presence.Registry) *RealtimeHandler {
	return &RealtimeHandler{registry: registry}
}

// OnlineUsersResponse is the roster payload
type OnlineUsersResponse struct {
	Users []presence.OnlineUser `json:"users"`
	Total int                   `json:"total"`
}

// RealtimeStatsResponse summarizes the registry state
type RealtimeStatsResponse struct {
	Connections int `json:"connections"`
	Identified  int `json:"identified"`
	Rooms       int `json:"rooms"`
}

// GetOnline godoc
// @Summary List online users
// @Description Get the currently identified realtime connections
// @Tags realtime
// @Produce json
// @Success 200 {object} OnlineUsersResponse
// @Router /realtime/online [get]
// @Security BearerAuth
func (h *RealtimeHandler) GetOnline(c echo.Context) error {
	users := h.registry.ListOnline()
	return c.JSON(http.StatusOK, OnlineUsersResponse{
		Users: users,
		Total: len(users),
	})
}

// GetStats godoc
// @Summary Realtime connection stats
// @Description Get connection and room counts for the presence registry
// @Tags realtime
// @Produce json
// @Success 200 {object} RealtimeStatsResponse
// @Router /realtime/stats [get]
// @Security BearerAuth
func (h *RealtimeHandler) GetStats(c echo.Context) error {
	total, identified := h.registry.ConnectionCount()
	return c.JSON(http.StatusOK, RealtimeStatsResponse{
		Connections: total,
		Identified:  identified,
		Rooms:       h.registry.RoomCount(),
	})
}

// NotifyRequest is an administrative broadcast request
type NotifyRequest struct {
	Scope   string         `json:"scope" validate:"required,oneof=all company user room"`
	Target  string         `json:"target"`
	Event   string         `json:"event" validate:"required"`
	Payload map[string]any `json:"payload"`
}

// Notify godoc
// @Summary Broadcast a realtime event
// @Description Push an arbitrary event to all connections, a company, a user or a room
// @Tags realtime
// @Accept json
// @Produce json
// @Param request body NotifyRequest true "Broadcast request"
// @Success 202 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /admin/notify [post]
// @Security BearerAuth
func (h *RealtimeHandler) Notify(c echo.Context) error {
	var req NotifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if req.Scope != "all" && req.Target == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Target is required for scoped broadcasts")
	}

	switch req.Scope {
	case "all":
		h.registry.NotifyAll(req.Event, req.Payload)
	case "company":
		h.registry.NotifyCompany(req.Target, req.Event, req.Payload)
	case "user":
		h.registry.NotifyUser(req.Target, req.Event, req.Payload)
	case "room":
		h.registry.NotifyRoom(req.Target, req.Event, req.Payload)
	}

	return c.JSON(http.StatusAccepted, map[string]string{"status": "dispatched"})
}
