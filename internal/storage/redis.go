package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/HenryOlvera28/landing/internal/domain"
)

const backendRedis = "redis"

// ConnectRedis returns a client for addr after a successful ping.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisStore keeps vote records as JSON entries of a single list, oldest first.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Write(ctx context.Context, rec domain.VoteRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return wrap(backendRedis, OpWrite, err)
	}
	return wrap(backendRedis, OpWrite, s.client.RPush(ctx, s.key, payload).Err())
}

func (s *RedisStore) ReadAll(ctx context.Context) ([]domain.VoteRecord, error) {
	items, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, wrap(backendRedis, OpRead, err)
	}

	records := make([]domain.VoteRecord, 0, len(items))
	for i, item := range items {
		var r domain.VoteRecord
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, wrap(backendRedis, OpRead, fmt.Errorf("decode record %d: %w", i, err))
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
