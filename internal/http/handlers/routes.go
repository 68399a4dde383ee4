package handlers

import (
	"github.com/devsantiago69/Citaly-sub002/internal/app"
	"github.com/devsantiago69/Citaly-sub002/internal/http/middleware"

	"github.com/labstack/echo/v4"
)

// SetupRoutes sets up all API routes
func SetupRoutes(api *echo.Group, services *app.Services) {
	wsHandler := NewWebSocketHandler(services.Registry, services.AuthService, services.Log)
	realtimeHandler := NewRealtimeHandler(services.Registry)
	webhookAdminHandler := NewWebhookAdminHandler(services.Dispatcher, services.WebhookLogRepo)

	// WebSocket endpoint: authentication happens on the socket itself
	// (authenticate event or token query parameter)
	api.GET("/ws", wsHandler.HandleWebSocket)

	// Protected routes (require authentication)
	protected := api.Group("")
	protected.Use(middleware.JWTAuth(services.AuthService))

	realtime := protected.Group("/realtime")
	realtime.GET("/online", realtimeHandler.GetOnline)
	realtime.GET("/stats", realtimeHandler.GetStats)

	// Administrative routes (company admins and owners)
	admin := protected.Group("/admin")
	admin.Use(middleware.AdminOnly())
	admin.POST("/notify", realtimeHandler.Notify)
	admin.GET("/webhooks/status", webhookAdminHandler.GetStatus)
	admin.PUT("/webhooks/config", webhookAdminHandler.UpdateConfig)
	admin.POST("/webhooks/test", webhookAdminHandler.Test)
	admin.GET("/webhooks/deliveries", webhookAdminHandler.ListDeliveries)
}
