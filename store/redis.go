package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	redisFieldAccess  = "access"
	redisFieldRefresh = "refresh"
	redisFieldProfile = "profile"
)

// RedisStore parks the record in Redis under a per-client key prefix. It
// suits headless clients (bots, sync workers) that share session state across
// restarts without local disk.
//
// The three values live under one hash key, so replacement via a MULTI/EXEC
// DEL+HSET pipeline is atomic: a concurrent reader observes the old record or
// the new one, never a blend.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedisStore creates a Redis-backed store. prefix scopes the key so
// multiple clients can share one database; it must be non-empty.
func NewRedisStore(client redis.UniversalClient, prefix string) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis store: nil client")
	}
	if prefix == "" {
		return nil, fmt.Errorf("redis store: empty key prefix")
	}
	return &RedisStore{client: client, key: prefix + ":session"}, nil
}

// Read implements [Store].
func (s *RedisStore) Read(ctx context.Context) (*Record, error) {
	vals, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis store read: %w", err)
	}

	rec := &Record{
		AccessToken:  vals[redisFieldAccess],
		RefreshToken: vals[redisFieldRefresh],
		Profile:      []byte(vals[redisFieldProfile]),
	}
	if !rec.complete() {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Write implements [Store].
func (s *RedisStore) Write(ctx context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key)
	pipe.HSet(ctx, s.key,
		redisFieldAccess, rec.AccessToken,
		redisFieldRefresh, rec.RefreshToken,
		redisFieldProfile, string(rec.Profile),
	)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store write: %w", err)
	}
	return nil
}

// Clear implements [Store]. Deleting an absent key is success.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis store clear: %w", err)
	}
	return nil
}
