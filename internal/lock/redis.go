package lock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix  = "chip:lock"
	defaultRedisLockTTL = 60 * time.Second
	redisPollInterval   = 50 * time.Millisecond
)

const releaseScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"

// RedisManager 基于 SET NX PX 的分布式锁，用于多实例共享 sqlite 以外的场景
type RedisManager struct {
	client   redis.UniversalClient
	prefix   string
	ttl      time.Duration
	newToken func() string

	mu     sync.Mutex
	tokens map[uint]string
}

// NewRedisManager 创建 redis 锁，ttl 为锁自动过期时间
func NewRedisManager(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisManager {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if ttl <= 0 {
		ttl = defaultRedisLockTTL
	}
	return &RedisManager{
		client:   client,
		prefix:   prefix,
		ttl:      ttl,
		newToken: uuid.NewString,
		tokens:   make(map[uint]string),
	}
}

func (m *RedisManager) key(orderID uint) string {
	return m.prefix + ":" + Name(orderID)
}

// Acquire 在超时时间内轮询 SETNX
func (m *RedisManager) Acquire(ctx context.Context, orderID uint, timeout time.Duration) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	token := m.newToken()
	deadline := time.Now().Add(normalizeTimeout(timeout))
	for {
		ok, err := m.client.SetNX(ctx, m.key(orderID), token, m.ttl).Result()
		if err != nil {
			return false, err
		}
		if ok {
			m.mu.Lock()
			m.tokens[orderID] = token
			m.mu.Unlock()
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(redisPollInterval):
		}
	}
}

// Release 仅删除自己持有的锁
func (m *RedisManager) Release(ctx context.Context, orderID uint) (bool, error) {
	m.mu.Lock()
	token, ok := m.tokens[orderID]
	delete(m.tokens, orderID)
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	result, err := m.client.Eval(releaseContext(ctx), releaseScript, []string{m.key(orderID)}, token).Result()
	if err != nil {
		return false, err
	}
	return result == int64(1), nil
}
