package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"voice-console/shared/models"
)

const redisKeyPrefix = "console_session:"

// RedisStore - Store в redis, общий для нескольких экземпляров консоли.
// Время простоя продлевается через GETEX.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore создает хранилище поверх готового клиента.
// idleTTL используется для продления при Load.
func NewRedisStore(client *redis.Client, idleTTL time.Duration, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client: client,
		ttl:    idleTTL,
		logger: logger.Named("RedisSessionStore"),
	}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (s *RedisStore) Save(ctx context.Context, id string, cred Credential, ttl time.Duration) error {
	if err := s.client.Set(ctx, redisKey(id), string(cred), ttl).Err(); err != nil {
		s.logger.Error("Failed to save session in redis", zap.String("sessionID", id), zap.Error(err))
		return fmt.Errorf("failed to save session in redis: %w", err)
	}
	s.logger.Debug("Session saved in redis", zap.String("sessionID", id), zap.Duration("ttl", ttl))
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (Credential, error) {
	val, err := s.client.GetEx(ctx, redisKey(id), s.ttl).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.logger.Debug("Session not found in redis", zap.String("sessionID", id))
			return "", models.ErrSessionNotFound
		}
		s.logger.Error("Failed to load session from redis", zap.String("sessionID", id), zap.Error(err))
		return "", fmt.Errorf("failed to load session from redis: %w", err)
	}
	return Credential(val), nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKey(id)).Err(); err != nil {
		s.logger.Error("Failed to delete session from redis", zap.String("sessionID", id), zap.Error(err))
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}
