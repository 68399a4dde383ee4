package middleware

import (
	"net/http"
	"strings"

	"github.com/devsantiago69/Citaly-sub002/internal/auth"
	"github.com/labstack/echo/v4"
)

// JWTAuth middleware validates JWT tokens
func JWTAuth(authService *auth.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}

			tokenString := authHeader[7:]
			if tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
			}

			claims, err := authService.ValidateToken(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			c.Set("claims", claims)
			c.Set("user_id", claims.UserID)
			c.Set("user_role", claims.Role)
			if claims.CompanyID != "" {
				c.Set("company_id", claims.CompanyID)
			}

			return next(c)
		}
	}
}

// RequireRole middleware ensures user has required role
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRole := c.Get("user_role")
			if userRole == nil {
				return echo.NewHTTPError(http.StatusForbidden, "User role not found")
			}

			roleStr := userRole.(string)
			for _, role := range roles {
				if roleStr == role {
					return next(c)
				}
			}

			return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
		}
	}
}

// AdminOnly middleware ensures only company admins and owners can access
func AdminOnly() echo.MiddlewareFunc {
	return RequireRole("admin", "owner")
}
