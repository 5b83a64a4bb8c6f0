package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/phambaophuc/meal-analyzer/internal/errs"
	"github.com/phambaophuc/meal-analyzer/internal/models"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "shell_cache"

// Redis keeps each store in a hash and the set of store names alongside it.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Type() string {
	return "redis"
}

func (r *Redis) namesKey() string {
	return r.prefix + ":names"
}

func (r *Redis) storeKey(name string) string {
	return r.prefix + ":store:" + name
}

func (r *Redis) Open(ctx context.Context, name string) (Store, error) {
	if err := r.client.SAdd(ctx, r.namesKey(), name).Err(); err != nil {
		return nil, fmt.Errorf("failed to open store %q: %w", name, err)
	}
	return &redisStore{name: name, key: r.storeKey(name), client: r.client}, nil
}

func (r *Redis) Delete(ctx context.Context, name string) (bool, error) {
	var removed *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.SRem(ctx, r.namesKey(), name)
		pipe.Del(ctx, r.storeKey(name))
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete store %q: %w", name, err)
	}
	return removed.Val() > 0, nil
}

func (r *Redis) Names(ctx context.Context) ([]string, error) {
	names, err := r.client.SMembers(ctx, r.namesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (r *Redis) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type redisStore struct {
	name   string
	key    string
	client *redis.Client
}

func (s *redisStore) Name() string {
	return s.name
}

func (s *redisStore) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	data, err := s.client.HGet(ctx, s.key, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("cache get error: %w", err)
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupt cache entry: %w", err)
	}
	return &entry, nil
}

func (s *redisStore) Put(ctx context.Context, key string, entry *models.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key, key, data).Err()
}

func (s *redisStore) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.client.HKeys(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}
