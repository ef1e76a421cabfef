package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lms-gateway/config"
	"lms-gateway/store"
)

func testConfig() *config.Config {
	return &config.Config{
		GatewayTokenSecret:   "test-secret",
		GatewayTokenIssuer:   "lms-gateway",
		GatewayTokenAudience: "lms-backend",
		GatewayTokenTTL:      5 * time.Minute,
	}
}

func parseClaims(t *testing.T, signed, secret string) *GatewayClaims {
	t.Helper()
	claims := &GatewayClaims{}
	parsed, err := jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	return claims
}

func TestIssueGatewayToken(t *testing.T) {
	cfg := testConfig()
	school := uuid.New()
	user := &store.User{
		ID:       uuid.New(),
		Email:    "teacher@example.com",
		Role:     "teacher",
		SchoolID: &school,
	}

	signed, err := IssueGatewayToken(cfg, user)
	require.NoError(t, err)

	claims := parseClaims(t, signed, cfg.GatewayTokenSecret)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, "teacher@example.com", claims.Email)
	assert.Equal(t, "teacher", claims.Role)
	assert.Equal(t, school.String(), claims.SchoolID)
	assert.Equal(t, "lms-gateway", claims.Issuer)
	assert.Contains(t, claims.Audience, "lms-backend")
	assert.WithinDuration(t, time.Now().Add(cfg.GatewayTokenTTL), claims.ExpiresAt.Time, 2*time.Second)
}

func TestIssueGatewayToken_NoSchool(t *testing.T) {
	cfg := testConfig()
	user := &store.User{ID: uuid.New(), Email: "admin@example.com", Role: "admin"}

	signed, err := IssueGatewayToken(cfg, user)
	require.NoError(t, err)

	claims := parseClaims(t, signed, cfg.GatewayTokenSecret)
	assert.Empty(t, claims.SchoolID)
}

func TestIssueGatewayToken_RejectsWrongSecret(t *testing.T) {
	cfg := testConfig()
	user := &store.User{ID: uuid.New()}

	signed, err := IssueGatewayToken(cfg, user)
	require.NoError(t, err)

	_, err = jwt.ParseWithClaims(signed, &GatewayClaims{}, func(*jwt.Token) (any, error) {
		return []byte("other-secret"), nil
	})
	assert.Error(t, err)
}
