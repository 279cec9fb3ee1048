package lock

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dujiao-next/chip-gateway/internal/logger"

	"github.com/cenkalti/backoff/v4"
)

// PostgresManager 基于 advisory lock 的会话锁。使用 pg_try_advisory_lock 轮询，
// 以便在超时后放弃而不是无限阻塞。
type PostgresManager struct {
	db              *sql.DB
	sessions        *sessionLocks
	initialInterval time.Duration
	maxInterval     time.Duration
}

// NewPostgresManager 创建 Postgres advisory lock，db 应为会话锁专用连接池
func NewPostgresManager(db *sql.DB) *PostgresManager {
	return &PostgresManager{
		db:              db,
		sessions:        newSessionLocks(),
		initialInterval: 50 * time.Millisecond,
		maxInterval:     500 * time.Millisecond,
	}
}

// Acquire 在超时时间内轮询加锁
func (m *PostgresManager) Acquire(ctx context.Context, orderID uint, timeout time.Duration) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.Now().Add(normalizeTimeout(timeout))
	conn, ok, err := pinConn(ctx, m.db, timeout)
	if err != nil || !ok {
		return false, err
	}
	key := AdvisoryKey(orderID)
	operation := func() error {
		var locked bool
		if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&locked); err != nil {
			return backoff.Permanent(err)
		}
		if !locked {
			return errLockBusy
		}
		return nil
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.initialInterval
	policy.MaxInterval = m.maxInterval
	policy.MaxElapsedTime = remaining(deadline)

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		_ = conn.Close()
		if errors.Is(err, errLockBusy) {
			return false, nil
		}
		return false, err
	}
	m.sessions.put(orderID, conn)
	return true, nil
}

// Release 释放 advisory lock 并归还连接
func (m *PostgresManager) Release(ctx context.Context, orderID uint) (bool, error) {
	conn := m.sessions.take(orderID)
	if conn == nil {
		return false, nil
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warnw("lock_conn_close_failed", "driver", "postgres", "order_id", orderID, "error", err)
		}
	}()
	var released bool
	if err := conn.QueryRowContext(releaseContext(ctx), "SELECT pg_advisory_unlock($1)", AdvisoryKey(orderID)).Scan(&released); err != nil {
		return false, err
	}
	return released, nil
}

// Close 关闭会话锁连接池
func (m *PostgresManager) Close() error {
	return m.db.Close()
}
