package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"telegram-storefront-bot/internal/nav"
)

const sessionKeyPrefix = "session:"

var _ nav.SessionStore = (*RedisStore)(nil)

// RedisStore keeps sessions as JSON values whose TTL is the idle timeout.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(userID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(userID, 10)
}

func (s *RedisStore) Create(ctx context.Context, data *nav.Session) error {
	now := time.Now()
	data.CreatedAt = now
	data.UpdatedAt = now
	data.Version = 1

	val, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(data.UserID), val, s.ttl).Err()
}

// Get refreshes the TTL on every read.
func (s *RedisStore) Get(ctx context.Context, userID int64) (*nav.Session, error) {
	key := s.key(userID)
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var data nav.Session
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		return nil, err
	}
	_ = s.client.Expire(ctx, key, s.ttl).Err()
	return &data, nil
}

// Update uses WATCH/MULTI/EXEC so a stale Version never overwrites a newer
// session written by another instance.
func (s *RedisStore) Update(ctx context.Context, data *nav.Session) error {
	key := s.key(data.UserID)

	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			data.Version = 0
		} else if err != nil {
			return err
		} else {
			var stored nav.Session
			if err := json.Unmarshal([]byte(val), &stored); err != nil {
				return err
			}
			if stored.Version != data.Version {
				return ErrVersionConflict
			}
		}

		data.Version++
		data.UpdatedAt = time.Now()
		newVal, err := json.Marshal(data)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newVal, s.ttl)
			return nil
		})
		return err
	}, key)
}

func (s *RedisStore) Delete(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
