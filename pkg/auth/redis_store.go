package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis so several igfetch servers can share
// one rotating session
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed session store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "igfetch:session:",
	}
}

func (r *RedisStore) key(service string) string {
	return r.prefix + service
}

func (r *RedisStore) Name() string { return "redis" }

// Save stores the session as JSON without expiry; Instagram decides when it dies
func (r *RedisStore) Save(ctx context.Context, session *Session) error {
	if session == nil || session.Service == "" {
		return ErrInvalidSession
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session: failed to marshal: %w", err)
	}
	return r.client.Set(ctx, r.key(session.Service), data, 0).Err()
}

// Load returns the session stored for service
func (r *RedisStore) Load(ctx context.Context, service string) (*Session, error) {
	val, err := r.client.Get(ctx, r.key(service)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, fmt.Errorf("session: failed to unmarshal: %w", err)
	}
	return &s, nil
}

// Delete removes the session for service
func (r *RedisStore) Delete(ctx context.Context, service string) error {
	n, err := r.client.Del(ctx, r.key(service)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
