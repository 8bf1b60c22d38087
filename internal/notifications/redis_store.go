package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/surveychain/backend/internal/models"
)

const keyPrefix = "notifications:"

// RedisStore keeps each user's notifications in a hash keyed by notification id.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStore creates a Redis-backed notification store.
func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, logger: logger}
}

func userKey(userID string) string {
	return keyPrefix + userID
}

// Add writes n into the recipient's hash keyed by notification id.
func (r *RedisStore) Add(ctx context.Context, n models.Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := r.client.HSet(ctx, userKey(n.UserID), n.ID, raw).Err(); err != nil {
		return fmt.Errorf("hset: %w", err)
	}
	return nil
}

// ListByUser reads the user's hash, newest first. Entries that fail to decode are skipped.
func (r *RedisStore) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	values, err := r.client.HGetAll(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall: %w", err)
	}
	out := make([]models.Notification, 0, len(values))
	for id, raw := range values {
		var n models.Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			r.logger.Warn("skipping corrupt notification", zap.String("user_id", userID), zap.String("id", id), zap.Error(err))
			continue
		}
		out = append(out, n)
	}
	sortNewestFirst(out)
	return out, nil
}

// MarkRead flips the read flag inside a WATCH transaction so a concurrent clear is not undone.
func (r *RedisStore) MarkRead(ctx context.Context, userID, id string) error {
	key := userKey(userID)
	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, key, id).Result()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("hget: %w", err)
		}
		var n models.Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return fmt.Errorf("unmarshal notification: %w", err)
		}
		if n.Read {
			return nil
		}
		n.Read = true
		updated, err := json.Marshal(n)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, id, updated)
			return nil
		})
		return err
	}, key)
}

// ClearForUser deletes the user's hash.
func (r *RedisStore) ClearForUser(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, userKey(userID)).Err(); err != nil {
		return fmt.Errorf("del: %w", err)
	}
	return nil
}
