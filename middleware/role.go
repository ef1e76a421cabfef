package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that rejects requests whose attached user
// does not hold the given role. Must run after the auth middleware.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := CurrentUser(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if user.Role != role {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient privileges")
			}
			return next(c)
		}
	}
}

// RequireAdmin requires the admin role.
func RequireAdmin() echo.MiddlewareFunc {
	return RequireRole("admin")
}
