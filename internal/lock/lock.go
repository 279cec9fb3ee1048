package lock

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"strings"
	"time"

	"github.com/dujiao-next/chip-gateway/internal/config"
	"github.com/dujiao-next/chip-gateway/internal/constants"
	"github.com/dujiao-next/chip-gateway/internal/repository"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	// DefaultTimeout 默认加锁等待时间
	DefaultTimeout = 15 * time.Second

	defaultSessionMaxConns = 10
)

var (
	ErrDriverInvalid = errors.New("lock driver invalid")
	errLockBusy      = errors.New("lock busy")
)

// Manager 订单级互斥锁。Acquire 返回 true 时保证同一订单不存在其他持有者，
// 持有者必须在所有退出路径上调用 Release。
type Manager interface {
	Acquire(ctx context.Context, orderID uint, timeout time.Duration) (bool, error)
	Release(ctx context.Context, orderID uint) (bool, error)
}

// Name 订单锁名称
func Name(orderID uint) string {
	return fmt.Sprintf("chip_payment_%d", orderID)
}

// AdvisoryKey postgres advisory lock 使用的数值键，取锁名的 crc32
func AdvisoryKey(orderID uint) int64 {
	return int64(crc32.ChecksumIEEE([]byte(Name(orderID))))
}

// New 按配置选择锁实现，auto 时按数据库方言选择。
// mysql / postgres 会话锁使用按 database 配置另开的连接池，上限为 cfg.SessionMaxConns。
func New(cfg config.LockConfig, database config.DatabaseConfig, db *gorm.DB, redisClient redis.UniversalClient) (Manager, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == constants.LockDriverAuto {
		switch repository.DialectName(db) {
		case "mysql":
			driver = constants.LockDriverMySQL
		case "postgres", "postgresql":
			driver = constants.LockDriverPostgres
		default:
			driver = constants.LockDriverMemory
		}
	}

	switch driver {
	case constants.LockDriverMySQL, constants.LockDriverPostgres:
		dsn := strings.TrimSpace(database.DSN)
		if dsn == "" {
			return nil, fmt.Errorf("%w: %s requires database dsn", ErrDriverInvalid, driver)
		}
		maxConns := cfg.SessionMaxConns
		if maxConns <= 0 {
			maxConns = defaultSessionMaxConns
		}
		sessionDB, err := openSessionDB(driver, dsn, maxConns)
		if err != nil {
			return nil, fmt.Errorf("open lock session pool failed: %w", err)
		}
		if driver == constants.LockDriverMySQL {
			return NewMySQLManager(sessionDB), nil
		}
		return NewPostgresManager(sessionDB), nil
	case constants.LockDriverRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("%w: redis is not enabled", ErrDriverInvalid)
		}
		return NewRedisManager(redisClient, cfg.RedisPrefix, 0), nil
	case constants.LockDriverMemory:
		return NewMemoryManager(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrDriverInvalid, driver)
	}
}

// Close 关闭锁实现持有的连接池，没有独立资源的实现直接返回
func Close(manager Manager) error {
	if closer, ok := manager.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func normalizeTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultTimeout
	}
	return timeout
}

// remaining 距离截止时间的剩余等待，至少保留 1ms 以便完成一次尝试
func remaining(deadline time.Time) time.Duration {
	left := time.Until(deadline)
	if left < time.Millisecond {
		return time.Millisecond
	}
	return left
}

func timeoutSeconds(timeout time.Duration) int64 {
	return int64(math.Ceil(normalizeTimeout(timeout).Seconds()))
}

// releaseContext 释放锁不受调用方取消影响
func releaseContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
