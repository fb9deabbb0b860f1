package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store 购物会话键值存储。
// 每个会话是一组独立的键值对；Get 在键缺失时返回调用方提供的默认值。
type Store interface {
	Get(ctx context.Context, sessionID, key, def string) (string, error)
	Set(ctx context.Context, sessionID, key, value string) error
	Delete(ctx context.Context, sessionID, key string) error
}

// RedisStore 基于 Redis 的会话存储
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore 创建 Redis 会话存储
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if strings.TrimSpace(prefix) == "" {
		prefix = "pl"
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisStore{
		client: client,
		prefix: strings.TrimSpace(prefix),
		ttl:    ttl,
	}
}

// Get 读取会话键，缺失时返回默认值
func (s *RedisStore) Get(ctx context.Context, sessionID, key, def string) (string, error) {
	if s == nil || s.client == nil {
		return def, nil
	}
	val, err := s.client.Get(ctx, s.buildKey(sessionID, key)).Result()
	if err == redis.Nil {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	return val, nil
}

// Set 写入会话键并续期
func (s *RedisStore) Set(ctx context.Context, sessionID, key, value string) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Set(ctx, s.buildKey(sessionID, key), value, s.ttl).Err()
}

// Delete 删除会话键
func (s *RedisStore) Delete(ctx context.Context, sessionID, key string) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Del(ctx, s.buildKey(sessionID, key)).Err()
}

func (s *RedisStore) buildKey(sessionID, key string) string {
	return fmt.Sprintf("%s:sess:%s:%s", s.prefix, strings.TrimSpace(sessionID), strings.TrimSpace(key))
}
