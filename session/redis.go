package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed session store. Values are JSON; the key
// carries a fixed prefix so sessions share a keyspace with nothing else.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "session:",
		ttl:    ttl,
	}
}

func (r *RedisStore) key(sessionID string) string {
	return r.prefix + sessionID
}

// Get retrieves a session by id.
func (r *RedisStore) Get(ctx context.Context, sessionID string) (*Data, error) {
	val, err := r.client.Get(ctx, r.key(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: get failed: %w", err)
	}

	var data Data
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		return nil, fmt.Errorf("session: failed to unmarshal: %w", err)
	}
	return &data, nil
}

// Set stores session data, resetting the entry's lifetime.
func (r *RedisStore) Set(ctx context.Context, sessionID string, data Data) error {
	if sessionID == "" {
		return fmt.Errorf("session: missing session id")
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session: failed to marshal: %w", err)
	}

	return r.client.Set(ctx, r.key(sessionID), payload, r.ttl).Err()
}

// Delete removes a session.
func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.key(sessionID)).Err()
}
