package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"lms-gateway/config"
)

// Throttle key policies. Each returns a KeyFunc that prefixes the derived
// identity with the scope name, so scopes never share buckets.

// DefaultKey buckets by authenticated user id, falling back to client IP.
func DefaultKey(scope string) KeyFunc {
	return func(c echo.Context) string {
		if user, ok := CurrentUser(c); ok {
			return scope + ":user:" + user.ID.String()
		}
		return scope + ":ip:" + c.RealIP()
	}
}

// SchoolKey buckets by the authenticated user's school, falling back to
// client IP for users without a school or anonymous requests.
func SchoolKey(scope string) KeyFunc {
	return func(c echo.Context) string {
		if user, ok := CurrentUser(c); ok && user.SchoolID != nil {
			return scope + ":school:" + user.SchoolID.String()
		}
		return scope + ":ip:" + c.RealIP()
	}
}

// AnonymousKey buckets by the first forwarded-for hop when present,
// otherwise the client IP.
func AnonymousKey(scope string) KeyFunc {
	return func(c echo.Context) string {
		if fwd := c.Request().Header.Get("X-Forwarded-For"); fwd != "" {
			first := strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
			if first != "" {
				return scope + ":ip:" + first
			}
		}
		return scope + ":ip:" + c.RealIP()
	}
}

// NewScopeLimiter builds the limiter for a named scope from the configured
// limits, using the scope's key policy. A scope without configured limits
// falls back to the anonymous-default limits so it never becomes deny-all.
func NewScopeLimiter(scope string, limits config.ScopeLimits, keyFn KeyFunc) *RateLimiter {
	limit, ok := limits[scope]
	if !ok || limit.Rate <= 0 || limit.Burst <= 0 {
		limit = limits[config.ScopeAnonymousDefault]
	}
	if limit.Rate <= 0 || limit.Burst <= 0 {
		limit = config.DefaultScopeLimits()[config.ScopeAnonymousDefault]
	}
	return NewRateLimiter(rate.Limit(limit.Rate), limit.Burst, keyFn)
}
