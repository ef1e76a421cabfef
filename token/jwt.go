package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lms-gateway/config"
	"lms-gateway/store"
)

// GatewayClaims represents the JWT claims attached for downstream services
type GatewayClaims struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	SchoolID string `json:"school_id,omitempty"`
	jwt.RegisteredClaims
}

// IssueGatewayToken signs a short-lived JWT asserting the resolved user's
// identity for downstream services.
func IssueGatewayToken(cfg *config.Config, user *store.User) (string, error) {
	now := time.Now()
	claims := GatewayClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.GatewayTokenIssuer,
			Audience:  jwt.ClaimStrings{cfg.GatewayTokenAudience},
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.GatewayTokenTTL)),
		},
	}
	if user.SchoolID != nil {
		claims.SchoolID = user.SchoolID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.GatewayTokenSecret))
}
