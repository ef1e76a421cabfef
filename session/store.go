package session

import (
	"context"
	"time"
)

// Cookie names used by the gateway.
const (
	// CookieName carries the opaque session id.
	CookieName = "lms_session"
	// TokenCookieName optionally carries a bearer token for clients that
	// do not go through the login endpoint.
	TokenCookieName = "lms_token"
)

// Data is the per-client session payload. The auth cache fields remember
// that this session already proved ownership of a user until CacheExpiresAt.
type Data struct {
	Token          string    `json:"token,omitempty"`
	CachedUserID   string    `json:"cached_user_id,omitempty"`
	CacheExpiresAt time.Time `json:"cache_expires_at,omitempty"`
}

// CacheValid reports whether the auth cache entry is present and fresh.
func (d *Data) CacheValid(now time.Time) bool {
	return d.CachedUserID != "" && now.Before(d.CacheExpiresAt)
}

// ClearAuthCache drops the cached identity, leaving the token in place.
func (d *Data) ClearAuthCache() {
	d.CachedUserID = ""
	d.CacheExpiresAt = time.Time{}
}

// Store persists per-client sessions keyed by session id.
// Get returns (nil, nil) when the session does not exist.
type Store interface {
	Get(ctx context.Context, sessionID string) (*Data, error)
	Set(ctx context.Context, sessionID string, data Data) error
	Delete(ctx context.Context, sessionID string) error
}
