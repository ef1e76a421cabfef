package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdentityClient(t *testing.T) {
	t.Run("creates client with valid URL", func(t *testing.T) {
		client := NewIdentityClient("http://kratos:4433", 5*time.Second)

		assert.NotNil(t, client)
	})
}

func TestIdentityClient_Verify(t *testing.T) {
	t.Run("valid token returns claim", func(t *testing.T) {
		issued := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
		expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/sessions/whoami", r.URL.Path)
			assert.Equal(t, "valid-token", r.Header.Get("X-Session-Token"))

			response := map[string]any{
				"id":         "session-123",
				"active":     true,
				"issued_at":  issued.Format(time.RFC3339),
				"expires_at": expires.Format(time.RFC3339),
				"identity": map[string]any{
					"id":         "subject-456",
					"schema_id":  "default",
					"schema_url": "http://kratos/schemas/default.json",
					"state":      "active",
					"traits": map[string]any{
						"email": "teacher@example.com",
					},
				},
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(response)
		}))
		defer server.Close()

		client := NewIdentityClient(server.URL, 5*time.Second)
		claim, err := client.Verify(context.Background(), "valid-token")

		require.NoError(t, err)
		assert.Equal(t, "subject-456", claim.SubjectID)
		assert.Equal(t, "teacher@example.com", claim.Email)
		assert.True(t, claim.ExpiresAt.Equal(expires))
	})

	t.Run("401 returns ErrInvalidToken", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
		}))
		defer server.Close()

		client := NewIdentityClient(server.URL, 5*time.Second)
		claim, err := client.Verify(context.Background(), "bad-token")

		assert.Nil(t, claim)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("inactive session returns ErrExpiredToken", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			response := map[string]any{
				"id":     "session-123",
				"active": false,
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(response)
		}))
		defer server.Close()

		client := NewIdentityClient(server.URL, 5*time.Second)
		claim, err := client.Verify(context.Background(), "stale-token")

		assert.Nil(t, claim)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("expired session returns ErrExpiredToken", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			response := map[string]any{
				"id":         "session-123",
				"active":     true,
				"expires_at": time.Now().Add(-time.Minute).UTC().Format(time.RFC3339),
				"identity": map[string]any{
					"id":         "subject-456",
					"schema_id":  "default",
					"schema_url": "http://kratos/schemas/default.json",
					"traits": map[string]any{
						"email": "teacher@example.com",
					},
				},
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(response)
		}))
		defer server.Close()

		client := NewIdentityClient(server.URL, 5*time.Second)
		claim, err := client.Verify(context.Background(), "expired-token")

		assert.Nil(t, claim)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("server error is neither invalid nor expired", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewIdentityClient(server.URL, 5*time.Second)
		claim, err := client.Verify(context.Background(), "any-token")

		assert.Nil(t, claim)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidToken)
		assert.NotErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("empty token short-circuits", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("should not reach the provider with an empty token")
		}))
		defer server.Close()

		client := NewIdentityClient(server.URL, 5*time.Second)
		claim, err := client.Verify(context.Background(), "")

		assert.Nil(t, claim)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
