package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "devblog:session:"

// RedisStore keeps the token in Redis under a per-profile key, so
// unrelated profiles sharing a server never see each other's session.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)

// NewRedisClient creates a Redis client.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisStore creates a store for profile. ttl is used for tokens that
// carry no expiry of their own.
func NewRedisStore(client *redis.Client, profile string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		key:    redisKeyPrefix + profile,
		ttl:    ttl,
	}
}

// Token returns the stored token. A missing key is not an error.
func (s *RedisStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// SetToken stores token until it expires. An already expired token is
// removed instead of stored.
func (s *RedisStore) SetToken(ctx context.Context, token string) error {
	ttl, ok := ttlFor(token, s.ttl, time.Now())
	if !ok {
		glog.V(1).Infof("session: refusing to store expired token for %s", s.key)
		return s.client.Del(ctx, s.key).Err()
	}
	return s.client.Set(ctx, s.key, token, ttl).Err()
}

// ClearToken deletes the key. Deleting a missing key is not an error.
func (s *RedisStore) ClearToken(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
