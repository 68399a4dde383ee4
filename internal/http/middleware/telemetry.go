package middleware

import (
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Telemetry middleware adds OpenTelemetry tracing (optional)
func Telemetry() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tracer := otel.Tracer("citaly-api")

			ctx := c.Request().Context()

			spanName := c.Request().Method + " " + c.Path()
			ctx, span := tracer.Start(ctx, spanName)
			defer span.End()

			span.SetAttributes(
				attribute.String("http.method", c.Request().Method),
				attribute.String("http.url", c.Request().URL.String()),
				attribute.String("http.route", c.Path()),
				attribute.String("user_agent", c.Request().UserAgent()),
			)

			if requestID := c.Get("request_id"); requestID != nil {
				span.SetAttributes(attribute.String("request.id", requestID.(string)))
			}

			if companyID := c.Get("company_id"); companyID != nil {
				span.SetAttributes(attribute.String("company.id", companyID.(string)))
			}

			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)

			span.SetAttributes(attribute.Int("http.status_code", c.Response().Status))

			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}

			return err
		}
	}
}
