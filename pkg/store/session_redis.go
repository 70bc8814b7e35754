package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "notedesk:session:"
	redisOpTimeout   = 3 * time.Second
)

// RedisSessionStore keeps sessions server-side in Redis, keyed by an opaque
// uuid token with the configured TTL. Unlike the JWT store, logout here
// revokes the token immediately.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore connects to Redis at addr. The connection is lazy;
// the first session operation surfaces any connectivity problem.
func NewRedisSessionStore(addr, password string, ttl time.Duration) *RedisSessionStore {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (s *RedisSessionStore) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisOpTimeout)
}

// NewSession mints a token and maps it to the user id for the TTL.
func (s *RedisSessionStore) NewSession(userID int64) (string, error) {
	token := uuid.NewString()
	ctx, cancel := s.opCtx()
	defer cancel()
	err := s.client.Set(ctx, sessionKeyPrefix+token, strconv.FormatInt(userID, 10), s.ttl).Err()
	if err != nil {
		return "", err
	}
	return token, nil
}

// GetUserIDByToken resolves a token. An unknown or expired token is a miss,
// not an error.
func (s *RedisSessionStore) GetUserIDByToken(token string) (int64, bool, error) {
	ctx, cancel := s.opCtx()
	defer cancel()
	val, err := s.client.Get(ctx, sessionKeyPrefix+token).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, false, nil
	case err != nil:
		return 0, false, err
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// DeleteSession revokes a token. Deleting an unknown token succeeds.
func (s *RedisSessionStore) DeleteSession(token string) error {
	ctx, cancel := s.opCtx()
	defer cancel()
	return s.client.Del(ctx, sessionKeyPrefix+token).Err()
}
