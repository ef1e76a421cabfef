package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"lms-gateway/config"
	"lms-gateway/middleware"
	"lms-gateway/token"
)

// GatewayTokenHeader carries the downstream JWT on authenticated responses.
const GatewayTokenHeader = "X-Lms-Gateway-Token"

// SessionHandler returns the authenticated user for the frontend.
type SessionHandler struct {
	config *config.Config
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(cfg *config.Config) *SessionHandler {
	return &SessionHandler{config: cfg}
}

// UserResponse is the user object in session responses.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	SchoolID  string    `json:"schoolId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionResponse is the JSON response for /session.
type SessionResponse struct {
	OK   bool         `json:"ok"`
	User UserResponse `json:"user"`
}

// Handle processes the /session endpoint. The auth middleware has already
// resolved the identity; an absent user means the path was reached
// unauthenticated.
func (h *SessionHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	gatewayToken, err := token.IssueGatewayToken(h.config, user)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue gateway token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue gateway token")
	}
	c.Response().Header().Set(GatewayTokenHeader, gatewayToken)

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
