// Package session stores navigation sessions between events and serializes
// the events of one user.
package session

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"telegram-storefront-bot/internal/nav"
)

var (
	ErrNotFound         = errors.New("session not found")
	ErrVersionConflict  = errors.New("session version conflict")
	ErrInvalidConfig    = errors.New("invalid session store config")
	ErrInvalidStoreType = errors.New("invalid session store type")
)

type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

const defaultTTL = 30 * time.Minute

type StoreOption func(*storeConfig)

type storeConfig struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithTTL sets the idle timeout after which a session is forgotten.
func WithTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.ttl = ttl
	}
}

// NewStore creates the store named by storeType. Redis needs WithRedisClient.
func NewStore(storeType StoreType, opts ...StoreOption) (nav.SessionStore, error) {
	cfg := &storeConfig{ttl: defaultTTL}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.ttl <= 0 {
		cfg.ttl = defaultTTL
	}

	switch storeType {
	case StoreTypeMemory, "":
		return NewMemoryStore(cfg.ttl), nil
	case StoreTypeRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return NewRedisStore(cfg.redisClient, cfg.ttl), nil
	default:
		return nil, ErrInvalidStoreType
	}
}
