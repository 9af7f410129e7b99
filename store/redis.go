package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/spektr-org/tablero/config"
)

// RedisStore keeps replies and history in Redis.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisClient creates a client from config. It does not connect.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedisStore wraps a client.
func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, logger: logger}
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// GetReply returns a cached reply.
func (s *RedisStore) GetReply(ctx context.Context, key string) (string, bool, error) {
	reply, err := s.client.Get(ctx, replyKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get reply from Redis: %w", err)
	}
	return reply, true, nil
}

// PutReply caches a reply with a TTL.
func (s *RedisStore) PutReply(ctx context.Context, key, reply string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, replyKey(key), reply, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache reply in Redis: %w", err)
	}
	return nil
}

// AppendHistory pushes an entry and trims the list in one pipeline.
func (s *RedisStore) AppendHistory(ctx context.Context, session string, entry HistoryEntry, max int) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode history entry: %w", err)
	}

	key := historyKey(session)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	if max > 0 {
		pipe.LTrim(ctx, key, 0, int64(max-1))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("⚠️ history append failed", zap.String("session", session), zap.Error(err))
		return fmt.Errorf("failed to append history to Redis: %w", err)
	}
	return nil
}

// History returns the newest entries of a session.
func (s *RedisStore) History(ctx context.Context, session string, limit int) ([]HistoryEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	raw, err := s.client.LRange(ctx, historyKey(session), 0, stop).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read history from Redis: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			s.logger.Warn("⚠️ skipping unreadable history entry", zap.String("session", session), zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
