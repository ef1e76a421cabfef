package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lms-gateway/client"
	"lms-gateway/config"
	"lms-gateway/session"
	"lms-gateway/store"
)

type stubVerifier struct {
	claim *client.Claim
	err   error
}

func (s *stubVerifier) Verify(context.Context, string) (*client.Claim, error) {
	return s.claim, s.err
}

type stubUserStore struct {
	bySubject map[string]*store.User
}

func (s *stubUserStore) FindByID(context.Context, string) (*store.User, error) {
	return nil, store.ErrUserNotFound
}

func (s *stubUserStore) FindBySubjectID(_ context.Context, subject string) (*store.User, error) {
	if u, ok := s.bySubject[subject]; ok {
		return u, nil
	}
	return nil, store.ErrUserNotFound
}

func loginConfig() *config.Config {
	return &config.Config{
		AuthCacheTTL: 300 * time.Second,
		SessionTTL:   time.Hour,
	}
}

func postLogin(t *testing.T, h *LoginHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.HandleLogin(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestLoginHandler_Success(t *testing.T) {
	user := &store.User{ID: uuid.New(), SubjectID: "subject-1", Email: "teacher@example.com", Role: "teacher"}
	sessions := session.NewMemoryStore(time.Hour)
	h := NewLoginHandler(
		&stubVerifier{claim: &client.Claim{SubjectID: "subject-1"}},
		&stubUserStore{bySubject: map[string]*store.User{"subject-1": user}},
		sessions,
		loginConfig(),
		session.CookieOptions{},
	)

	rec := postLogin(t, h, `{"token":"idp-token"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), user.ID.String())

	var sessionID string
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			sessionID = c.Value
		}
	}
	require.NotEmpty(t, sessionID, "expected a session cookie")

	data, err := sessions.Get(context.Background(), sessionID)
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "idp-token", data.Token)
	assert.Equal(t, user.ID.String(), data.CachedUserID)
	assert.WithinDuration(t, time.Now().Add(300*time.Second), data.CacheExpiresAt, 2*time.Second)
}

func TestLoginHandler_RejectedToken(t *testing.T) {
	h := NewLoginHandler(
		&stubVerifier{err: client.ErrInvalidToken},
		&stubUserStore{},
		session.NewMemoryStore(time.Hour),
		loginConfig(),
		session.CookieOptions{},
	)

	rec := postLogin(t, h, `{"token":"bad"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginHandler_UnknownSubject(t *testing.T) {
	h := NewLoginHandler(
		&stubVerifier{claim: &client.Claim{SubjectID: "ghost"}},
		&stubUserStore{},
		session.NewMemoryStore(time.Hour),
		loginConfig(),
		session.CookieOptions{},
	)

	rec := postLogin(t, h, `{"token":"orphaned"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginHandler_MissingToken(t *testing.T) {
	h := NewLoginHandler(
		&stubVerifier{},
		&stubUserStore{},
		session.NewMemoryStore(time.Hour),
		loginConfig(),
		session.CookieOptions{},
	)

	rec := postLogin(t, h, `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutHandler(t *testing.T) {
	sessions := session.NewMemoryStore(time.Hour)
	require.NoError(t, sessions.Set(context.Background(), "sid-1", session.Data{CachedUserID: "user-1"}))

	h := NewLoginHandler(&stubVerifier{}, &stubUserStore{}, sessions, loginConfig(), session.CookieOptions{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "sid-1"})
	rec := httptest.NewRecorder()
	require.NoError(t, h.HandleLogout(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusNoContent, rec.Code)

	data, err := sessions.Get(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.Nil(t, data)

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "expected the session cookie to be cleared")
}
