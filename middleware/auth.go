package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"lms-gateway/client"
	"lms-gateway/session"
	"lms-gateway/store"
)

// Context keys set by the auth middleware.
const (
	ContextUserKey = "user"
)

// Verifier checks a bearer token with the identity provider.
type Verifier interface {
	Verify(ctx context.Context, token string) (*client.Claim, error)
}

// AuthConfig carries the middleware's policy knobs. Path lists and TTL are
// explicit parameters so tests can vary them.
type AuthConfig struct {
	PublicPaths    []string // exact-match allow-list
	PublicPrefixes []string // prefix allow-list
	LoginPath      string
	CacheTTL       time.Duration
	SessionTTL     time.Duration
	Cookies        session.CookieOptions
}

// AuthMiddleware authenticates every request: it consults the session's auth
// cache, falls back to verifying a presented bearer token, and either
// attaches the resolved user or redirects protected-path requests to login.
// It never fails a request with an error of its own.
type AuthMiddleware struct {
	verifier    Verifier
	users       store.UserStore
	sessions    session.Store
	cfg         AuthConfig
	publicExact map[string]struct{}
	logger      *slog.Logger
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(verifier Verifier, users store.UserStore, sessions session.Store, cfg AuthConfig, logger *slog.Logger) *AuthMiddleware {
	exact := make(map[string]struct{}, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		exact[p] = struct{}{}
	}
	return &AuthMiddleware{
		verifier:    verifier,
		users:       users,
		sessions:    sessions,
		cfg:         cfg,
		publicExact: exact,
		logger:      logger.With("component", "auth_middleware"),
	}
}

// CurrentUser extracts the authenticated user attached by the middleware.
func CurrentUser(c echo.Context) (*store.User, bool) {
	user, ok := c.Get(ContextUserKey).(*store.User)
	return user, ok && user != nil
}

// Handle returns the echo middleware function.
func (m *AuthMiddleware) Handle() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			public := m.isPublic(c.Request().URL.Path)

			sessionID, data := m.loadSession(c)

			// Fresh cache entry: attach without a verifier round trip.
			if data != nil && data.CacheValid(time.Now()) {
				user, err := m.users.FindByID(ctx, data.CachedUserID)
				if err == nil {
					attachUser(c, user)
					return next(c)
				}
				// A cached id referencing a deleted user degrades to
				// re-verification, not a hard failure.
				if !errors.Is(err, store.ErrUserNotFound) {
					m.logger.ErrorContext(ctx, "cached user lookup failed", "error", err)
				}
				m.clearCache(ctx, sessionID, data)
			}

			token := m.bearerToken(c, data)
			if token == "" {
				if public {
					return next(c)
				}
				m.clearCache(ctx, sessionID, data)
				return c.Redirect(http.StatusFound, m.cfg.LoginPath)
			}

			claim, err := m.verifier.Verify(ctx, token)
			if err != nil {
				if errors.Is(err, client.ErrInvalidToken) || errors.Is(err, client.ErrExpiredToken) {
					m.logger.DebugContext(ctx, "token rejected", "error", err)
				} else {
					m.logger.ErrorContext(ctx, "token verification failed", "error", err)
				}
				return m.denied(ctx, c, public, sessionID, data, next)
			}

			user, err := m.users.FindBySubjectID(ctx, claim.SubjectID)
			if err != nil {
				if !errors.Is(err, store.ErrUserNotFound) {
					m.logger.ErrorContext(ctx, "subject lookup failed", "error", err)
				}
				return m.denied(ctx, c, public, sessionID, data, next)
			}

			m.writeCache(ctx, c, sessionID, data, token, user)
			attachUser(c, user)
			return next(c)
		}
	}
}

func (m *AuthMiddleware) isPublic(path string) bool {
	if _, ok := m.publicExact[path]; ok {
		return true
	}
	for _, prefix := range m.cfg.PublicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// loadSession resolves the client's session, if any. Store errors are
// logged and treated as an absent session.
func (m *AuthMiddleware) loadSession(c echo.Context) (string, *session.Data) {
	cookie, err := c.Cookie(session.CookieName)
	if err != nil || cookie.Value == "" {
		return "", nil
	}

	data, err := m.sessions.Get(c.Request().Context(), cookie.Value)
	if err != nil {
		m.logger.ErrorContext(c.Request().Context(), "session load failed", "error", err)
		return cookie.Value, nil
	}
	return cookie.Value, data
}

// bearerToken reads the token from the session first, then the token cookie.
func (m *AuthMiddleware) bearerToken(c echo.Context, data *session.Data) string {
	if data != nil && data.Token != "" {
		return data.Token
	}
	if cookie, err := c.Cookie(session.TokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (m *AuthMiddleware) denied(ctx context.Context, c echo.Context, public bool, sessionID string, data *session.Data, next echo.HandlerFunc) error {
	m.clearCache(ctx, sessionID, data)
	if public {
		return next(c)
	}
	return c.Redirect(http.StatusFound, m.cfg.LoginPath)
}

func (m *AuthMiddleware) clearCache(ctx context.Context, sessionID string, data *session.Data) {
	if sessionID == "" || data == nil || data.CachedUserID == "" {
		return
	}
	data.ClearAuthCache()
	if err := m.sessions.Set(ctx, sessionID, *data); err != nil {
		m.logger.ErrorContext(ctx, "failed to clear auth cache", "error", err)
	}
}

// writeCache records the proven identity in the session, minting a session
// for clients that presented a bare token cookie.
func (m *AuthMiddleware) writeCache(ctx context.Context, c echo.Context, sessionID string, data *session.Data, token string, user *store.User) {
	if data == nil {
		data = &session.Data{Token: token}
	}
	data.CachedUserID = user.ID.String()
	data.CacheExpiresAt = time.Now().Add(m.cfg.CacheTTL)

	if sessionID == "" {
		id, err := session.GenerateID()
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to generate session id", "error", err)
			return
		}
		sessionID = id
		session.SetCookie(c.Response(), sessionID, time.Now().Add(m.cfg.SessionTTL), m.cfg.Cookies)
	}

	if err := m.sessions.Set(ctx, sessionID, *data); err != nil {
		m.logger.ErrorContext(ctx, "failed to write auth cache", "error", err)
	}
}

func attachUser(c echo.Context, user *store.User) {
	c.Set(ContextUserKey, user)
	c.Set("user_id", user.ID.String())
	c.Set("user_role", user.Role)
	if user.SchoolID != nil {
		c.Set("school_id", user.SchoolID.String())
	}
}
