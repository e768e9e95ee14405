package ceremony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "teamhub:webauthn:"

// RedisStore keeps ceremonies in redis so several instances can serve one flow.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// OpenRedisStore connects to url and verifies the connection.
func OpenRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("ceremony: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if errPing := client.Ping(ctx).Err(); errPing != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ceremony: redis ping: %w", errPing)
	}
	return NewRedisStore(client), nil
}

// Put stores data as JSON with a TTL.
func (s *RedisStore) Put(ctx context.Context, key string, data webauthn.SessionData, ttl time.Duration) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("ceremony: encode session: %w", err)
	}
	remaining := time.Until(expiry(data, ttl, time.Now()))
	if remaining <= 0 {
		return nil
	}
	return s.client.Set(ctx, redisKeyPrefix+key, payload, remaining).Err()
}

// Take atomically reads and deletes the session.
func (s *RedisStore) Take(ctx context.Context, key string) (webauthn.SessionData, error) {
	payload, err := s.client.GetDel(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return webauthn.SessionData{}, ErrNotFound
	}
	if err != nil {
		return webauthn.SessionData{}, fmt.Errorf("ceremony: redis getdel: %w", err)
	}
	var data webauthn.SessionData
	if errDecode := json.Unmarshal(payload, &data); errDecode != nil {
		return webauthn.SessionData{}, fmt.Errorf("ceremony: decode session: %w", errDecode)
	}
	return data, nil
}

// Close releases the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
