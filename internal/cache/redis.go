package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/chip-gateway/internal/config"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "chip"

// Store 带前缀的 JSON 缓存
type Store struct {
	client redis.UniversalClient
	prefix string
}

var defaultStore *Store

// NewStore 基于已有客户端创建缓存，client 为 nil 时所有操作为空操作
func NewStore(client redis.UniversalClient, prefix string) *Store {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// InitRedis 初始化 Redis 客户端
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		defaultStore = nil
		return nil
	}
	addr := strings.TrimSpace(cfg.Host)
	if addr == "" {
		addr = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", addr, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	defaultStore = NewStore(client, cfg.Prefix)
	return nil
}

// Default 全局缓存，未启用时返回 nil
func Default() *Store {
	return defaultStore
}

// Enabled 判断缓存是否启用
func Enabled() bool {
	return defaultStore.Enabled()
}

// Client 获取 Redis 客户端
func Client() redis.UniversalClient {
	return defaultStore.Client()
}

// Close 关闭全局客户端
func Close() error {
	if !Enabled() {
		return nil
	}
	return defaultStore.client.Close()
}

// Enabled 判断缓存是否可用
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// Client 获取底层客户端
func (s *Store) Client() redis.UniversalClient {
	if !s.Enabled() {
		return nil
	}
	return s.client
}

// GetJSON 获取 JSON 缓存
func (s *Store) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	val, err := s.client.Get(ctx, s.buildKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 写入 JSON 缓存，ttl 为 0 表示不过期
func (s *Store) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.buildKey(key), payload, ttl).Err()
}

// Del 删除缓存
func (s *Store) Del(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Del(ctx, s.buildKey(key)).Err()
}

func (s *Store) buildKey(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return s.prefix
	}
	return fmt.Sprintf("%s:%s", s.prefix, trimmed)
}
