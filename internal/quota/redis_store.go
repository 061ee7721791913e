// internal/quota/redis_store.go
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "trade_engine:quota:"

// RedisStore is a CountStore backed by redis, for deployments where
// several engine instances share one wallet's allowance. Keys expire
// shortly after their calendar day ends.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore creates a redis-backed count store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

var _ CountStore = (*RedisStore)(nil)

func (s *RedisStore) key(userDay string) string {
	return redisKeyPrefix + userDay
}

func (s *RedisStore) Increment(ctx context.Context, userDay string) (int, error) {
	key := s.key(userDay)
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment quota counter: %w", err)
	}
	if count == 1 {
		// A user's first trade of the day sets the expiry past local
		// midnight.
		s.client.Expire(ctx, key, s.untilDayEnd())
	}
	return int(count), nil
}

func (s *RedisStore) Get(ctx context.Context, userDay string) (int, error) {
	count, err := s.client.Get(ctx, s.key(userDay)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read quota counter: %w", err)
	}
	return count, nil
}

// untilDayEnd returns the duration to local midnight plus a grace hour.
func (s *RedisStore) untilDayEnd() time.Duration {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	return midnight.Sub(now) + time.Hour
}
