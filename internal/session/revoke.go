package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore is the deny-list consulted during resolution. Entries are
// keyed by session id and expire with the token they shadow.
type RevocationStore interface {
	Revoke(ctx context.Context, sessionID string, until time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

const revokedKeyPrefix = "examgate:revoked:"

// RedisRevocations implements RevocationStore on Redis. Revocation is a
// volatile deny-list rather than a database table: entries are small,
// expire on their own and sit on the hot path of every request.
type RedisRevocations struct {
	client *redis.Client
}

// NewRedisRevocations wraps a connected client.
func NewRedisRevocations(client *redis.Client) (*RedisRevocations, error) {
	if client == nil {
		return nil, errors.New("session: redis client is required")
	}
	return &RedisRevocations{client: client}, nil
}

// Revoke marks the session id revoked until the token's own expiry; after
// that the token is dead anyway and the entry can lapse.
func (s *RedisRevocations) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revokedKeyPrefix+sessionID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke session %s: %w", sessionID, err)
	}
	return nil
}

// IsRevoked reports whether the session id is on the deny-list.
func (s *RedisRevocations) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("lookup session %s: %w", sessionID, err)
	}
	return n > 0, nil
}
