package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"lms-gateway/client"
	"lms-gateway/config"
	"lms-gateway/session"
	"lms-gateway/store"
)

// Verifier interface for dependency injection
type Verifier interface {
	Verify(ctx context.Context, token string) (*client.Claim, error)
}

// LoginHandler exchanges a provider-issued bearer token for a gateway
// session.
type LoginHandler struct {
	verifier Verifier
	users    store.UserStore
	sessions session.Store
	config   *config.Config
	cookies  session.CookieOptions
}

// NewLoginHandler creates a new login handler
func NewLoginHandler(verifier Verifier, users store.UserStore, sessions session.Store, cfg *config.Config, cookies session.CookieOptions) *LoginHandler {
	return &LoginHandler{
		verifier: verifier,
		users:    users,
		sessions: sessions,
		config:   cfg,
		cookies:  cookies,
	}
}

type loginRequest struct {
	Token string `json:"token" form:"token"`
}

// HandleLogin processes POST /login: verifies the presented token, resolves
// the local user, and issues a session cookie with a warm auth cache.
func (h *LoginHandler) HandleLogin(c echo.Context) error {
	ctx := c.Request().Context()

	var req loginRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	claim, err := h.verifier.Verify(ctx, req.Token)
	if err != nil {
		if errors.Is(err, client.ErrInvalidToken) || errors.Is(err, client.ErrExpiredToken) {
			return echo.NewHTTPError(http.StatusUnauthorized, "token rejected")
		}
		slog.ErrorContext(ctx, "login verification failed", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "failed to verify token")
	}

	user, err := h.users.FindBySubjectID(ctx, claim.SubjectID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "no account for identity")
		}
		slog.ErrorContext(ctx, "login user lookup failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve user")
	}

	sessionID, err := session.GenerateID()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate session id", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create session")
	}

	data := session.Data{
		Token:          req.Token,
		CachedUserID:   user.ID.String(),
		CacheExpiresAt: time.Now().Add(h.config.AuthCacheTTL),
	}
	if err := h.sessions.Set(ctx, sessionID, data); err != nil {
		slog.ErrorContext(ctx, "failed to store session", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create session")
	}

	session.SetCookie(c.Response(), sessionID, time.Now().Add(h.config.SessionTTL), h.cookies)

	response := SessionResponse{
		OK: true,
		User: UserResponse{
			ID:        user.ID.String(),
			Email:     user.Email,
			Name:      user.Name,
			Role:      user.Role,
			CreatedAt: user.CreatedAt,
		},
	}
	if user.SchoolID != nil {
		response.User.SchoolID = user.SchoolID.String()
	}

	return c.JSON(http.StatusOK, response)
}

// HandleLogout processes POST /logout: deletes the session and clears the
// cookie. Always succeeds.
func (h *LoginHandler) HandleLogout(c echo.Context) error {
	ctx := c.Request().Context()

	if cookie, err := c.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.Delete(ctx, cookie.Value); err != nil {
			slog.ErrorContext(ctx, "failed to delete session", "error", err)
		}
	}
	session.ClearCookie(c.Response(), h.cookies)

	return c.NoContent(http.StatusNoContent)
}
