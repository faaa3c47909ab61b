package passage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the same JSON document as FileStore under a single key,
// so a Replace is one SET and readers never see a partial store.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

var _ Store = &RedisStore{}

// NewRedisStore namespaces the key per session. ttl 0 means no expiry.
func NewRedisStore(client *redis.Client, namespace string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		key:    "passages:" + namespace,
		ttl:    ttl,
	}
}

func (s *RedisStore) Key() string {
	return s.key
}

func (s *RedisStore) Replace(ctx context.Context, passages []Passage) error {
	data, err := encode(passages)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) ([]Passage, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []Passage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return decode(data)
}
