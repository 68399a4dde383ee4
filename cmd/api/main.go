package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/devsantiago69/Citaly-sub002/docs" // Swagger docs
	"github.com/devsantiago69/Citaly-sub002/internal/app"
	"github.com/devsantiago69/Citaly-sub002/internal/config"
	"github.com/devsantiago69/Citaly-sub002/internal/db"
	"github.com/devsantiago69/Citaly-sub002/internal/http/handlers"
	"github.com/devsantiago69/Citaly-sub002/internal/http/middleware"
	"github.com/devsantiago69/Citaly-sub002/internal/telemetry"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	echoSwagger "github.com/swaggo/echo-swagger"
	"gorm.io/gorm"
)

// @title Citaly Realtime API
// @version 1.0
// @description Realtime presence and webhook dispatch service for the Citaly booking platform

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Initialize telemetry (optional service)
	shutdown, enabled, err := telemetry.InitTelemetry()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
		shutdown = func() {}
	} else if enabled {
		log.Info().Msg("Telemetry initialized successfully")
	} else {
		log.Info().Msg("Telemetry disabled")
	}
	defer shutdown()

	// Database is optional: it only backs the webhook delivery audit log
	var database *gorm.DB
	if cfg.DatabaseConfigured() {
		database, err = db.NewDatabase(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		if err := db.RunMigrations(database); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		log.Info().Msg("Database connected, webhook delivery auditing available")
	} else {
		log.Info().Msg("No database configured, webhook delivery auditing disabled")
	}

	// Initialize services
	services := app.NewServices(cfg, database, log.Logger)

	// Setup Echo
	e := echo.New()
	e.HideBanner = true

	// Set custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
	}))
	e.Use(middleware.RequestID())
	e.Use(middleware.Telemetry())

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Swagger - only enabled in development environment
	if cfg.IsDevelopment() {
		e.GET("/docs/*", echoSwagger.WrapHandler)
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	// Setup routes
	api := e.Group("/api/v1")
	handlers.SetupRoutes(api, services)

	// The transport is mounted; presence deliveries may start
	services.Registry.Ready()

	// Start server
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("Server started")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
