package lock

import (
	"context"
	"database/sql"
	"time"

	"github.com/dujiao-next/chip-gateway/internal/logger"
)

// MySQLManager 基于 GET_LOCK / RELEASE_LOCK 的命名锁
type MySQLManager struct {
	db       *sql.DB
	sessions *sessionLocks
}

// NewMySQLManager 创建 MySQL 命名锁，db 应为会话锁专用连接池
func NewMySQLManager(db *sql.DB) *MySQLManager {
	return &MySQLManager{db: db, sessions: newSessionLocks()}
}

// Acquire 加锁，等待时间由 GET_LOCK 的超时参数控制
func (m *MySQLManager) Acquire(ctx context.Context, orderID uint, timeout time.Duration) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.Now().Add(normalizeTimeout(timeout))
	conn, ok, err := pinConn(ctx, m.db, timeout)
	if err != nil || !ok {
		return false, err
	}
	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", Name(orderID), timeoutSeconds(remaining(deadline))).Scan(&result); err != nil {
		_ = conn.Close()
		return false, err
	}
	if !result.Valid || result.Int64 != 1 {
		_ = conn.Close()
		return false, nil
	}
	m.sessions.put(orderID, conn)
	return true, nil
}

// Release 释放锁并归还连接
func (m *MySQLManager) Release(ctx context.Context, orderID uint) (bool, error) {
	conn := m.sessions.take(orderID)
	if conn == nil {
		return false, nil
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warnw("lock_conn_close_failed", "driver", "mysql", "order_id", orderID, "error", err)
		}
	}()
	var result sql.NullInt64
	if err := conn.QueryRowContext(releaseContext(ctx), "SELECT RELEASE_LOCK(?)", Name(orderID)).Scan(&result); err != nil {
		return false, err
	}
	return result.Valid && result.Int64 == 1, nil
}

// Close 关闭会话锁连接池
func (m *MySQLManager) Close() error {
	return m.db.Close()
}
