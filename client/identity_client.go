package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	kratos "github.com/ory/kratos-client-go"
)

// Typed verification failures. Anything else returned by Verify is an
// unexpected provider error.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// Claim represents a verified identity assertion from the provider.
type Claim struct {
	SubjectID string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IdentityClient verifies bearer tokens against the identity provider.
type IdentityClient struct {
	client *kratos.APIClient
}

// NewIdentityClient creates a client for the identity provider's public API
func NewIdentityClient(baseURL string, timeout time.Duration) *IdentityClient {
	configuration := kratos.NewConfiguration()
	configuration.Servers = []kratos.ServerConfiguration{
		{
			URL: baseURL,
		},
	}
	configuration.HTTPClient = &http.Client{
		Timeout: timeout,
	}

	return &IdentityClient{
		client: kratos.NewAPIClient(configuration),
	}
}

// Verify checks a bearer token with the provider and returns the identity
// claim it asserts. Returns ErrInvalidToken for tokens the provider rejects,
// ErrExpiredToken for sessions past their expiry, and a wrapped error for
// anything else.
func (c *IdentityClient) Verify(ctx context.Context, token string) (*Claim, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	session, resp, err := c.client.FrontendAPI.ToSession(ctx).XSessionToken(token).Execute()
	if err != nil {
		if resp != nil {
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				return nil, ErrInvalidToken
			}
			return nil, fmt.Errorf("identity provider returned status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to call identity provider: %w", err)
	}

	if session.ExpiresAt != nil && time.Now().After(*session.ExpiresAt) {
		return nil, ErrExpiredToken
	}
	if session.Active != nil && !*session.Active {
		return nil, ErrExpiredToken
	}

	if session.Identity == nil {
		return nil, fmt.Errorf("missing identity in provider response")
	}

	claim := &Claim{
		SubjectID: session.Identity.Id,
	}
	if traits, ok := session.Identity.Traits.(map[string]interface{}); ok {
		if email, ok := traits["email"].(string); ok {
			claim.Email = email
		}
	}
	if session.IssuedAt != nil {
		claim.IssuedAt = *session.IssuedAt
	}
	if session.ExpiresAt != nil {
		claim.ExpiresAt = *session.ExpiresAt
	}

	return claim, nil
}
