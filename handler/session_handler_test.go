package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lms-gateway/config"
	"lms-gateway/middleware"
	"lms-gateway/store"
)

func sessionConfig() *config.Config {
	return &config.Config{
		GatewayTokenSecret:   "test-secret",
		GatewayTokenIssuer:   "lms-gateway",
		GatewayTokenAudience: "lms-backend",
		GatewayTokenTTL:      5 * time.Minute,
	}
}

func TestSessionHandler_AuthenticatedUser(t *testing.T) {
	school := uuid.New()
	user := &store.User{
		ID:       uuid.New(),
		Email:    "teacher@example.com",
		Name:     "Pat Teacher",
		Role:     "teacher",
		SchoolID: &school,
	}

	h := NewSessionHandler(sessionConfig())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.ContextUserKey, user)

	require.NoError(t, h.Handle(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(GatewayTokenHeader))

	var response SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response.OK)
	assert.Equal(t, user.ID.String(), response.User.ID)
	assert.Equal(t, "teacher", response.User.Role)
	assert.Equal(t, school.String(), response.User.SchoolID)
}

func TestSessionHandler_Unauthenticated(t *testing.T) {
	h := NewSessionHandler(sessionConfig())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Handle(c)
	require.Error(t, err)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}
