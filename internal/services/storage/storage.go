// Package storage provides the named key-value stores cache generations live in.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/phambaophuc/meal-analyzer/internal/config"
	"github.com/phambaophuc/meal-analyzer/internal/errs"
	"github.com/phambaophuc/meal-analyzer/internal/models"
	"github.com/redis/go-redis/v9"
	storage_go "github.com/supabase-community/storage-go"
)

// Store is one named cache. Get returns errs.ErrNotFound on a miss. A Put is
// atomic: readers see either the previous entry or the new one.
type Store interface {
	Name() string
	Get(ctx context.Context, key string) (*models.CacheEntry, error)
	Put(ctx context.Context, key string, entry *models.CacheEntry) error
	Keys(ctx context.Context) ([]string, error)
}

// Storage is the set of named stores, isolated per origin by construction.
type Storage interface {
	Type() string
	Open(ctx context.Context, name string) (Store, error)
	Delete(ctx context.Context, name string) (bool, error)
	Names(ctx context.Context) ([]string, error)
	Health(ctx context.Context) error
}

func GetStorage(cfg *config.Config) (Storage, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return NewMemory(), nil
	case "disk":
		return NewDisk(cfg.Cache.DSN)
	case "redis":
		opts := &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		if cfg.Cache.DSN != "" {
			parsed, err := redis.ParseURL(cfg.Cache.DSN)
			if err != nil {
				return nil, fmt.Errorf("invalid redis cache dsn: %w", err)
			}
			opts = parsed
		}
		return NewRedis(redis.NewClient(opts), ""), nil
	case "supabase":
		if cfg.Supabase.URL == "" || cfg.Supabase.BUCKET == "" {
			return nil, fmt.Errorf("supabase cache backend needs SUPABASE_URL and SUPABASE_BUCKET")
		}
		client := storage_go.NewClient(cfg.Supabase.URL+"/storage/v1", cfg.Supabase.KEY, nil)
		return NewSupabase(client, cfg.Supabase.BUCKET), nil
	}
	return nil, fmt.Errorf("%w: %q", errs.ErrInvalidBackend, cfg.Cache.Backend)
}

// entryID maps an arbitrary request key onto a path-safe identifier.
func entryID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func cloneEntry(e *models.CacheEntry) *models.CacheEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.Header = e.Header.Clone()
	c.Body = append([]byte(nil), e.Body...)
	return &c
}
