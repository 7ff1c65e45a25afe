package schema

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// registeredSetKey holds every attribute name ever registered, shared across
// runs so reruns skip declarations the platform already knows about.
const registeredSetKey = "exodus:schema:registered"

// RedisStore deduplicates schema registration across runs.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Seen(ctx context.Context, name string) (bool, error) {
	seen, err := s.client.SIsMember(ctx, registeredSetKey, name).Result()
	if err != nil {
		return false, fmt.Errorf("redis sismember: %w", err)
	}
	return seen, nil
}

func (s *RedisStore) MarkSeen(ctx context.Context, name string) error {
	if err := s.client.SAdd(ctx, registeredSetKey, name).Err(); err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}
	return nil
}
