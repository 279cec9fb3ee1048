package lock

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/dujiao-next/chip-gateway/internal/models"
)

// sessionLocks 记录持锁的数据库会话，命名锁与 advisory lock 都是会话级的，
// 加锁与解锁必须在同一连接上执行。
type sessionLocks struct {
	mu   sync.Mutex
	held map[uint]*sql.Conn
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{held: make(map[uint]*sql.Conn)}
}

func (s *sessionLocks) put(orderID uint, conn *sql.Conn) {
	s.mu.Lock()
	s.held[orderID] = conn
	s.mu.Unlock()
}

func (s *sessionLocks) take(orderID uint) *sql.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn := s.held[orderID]
	delete(s.held, orderID)
	return conn
}

// openSessionDB 为会话锁打开独立连接池。持锁连接在整个对账期间被占用，
// 不能与仓储、事务共用同一个池。
var openSessionDB = func(driver, dsn string, maxConns int) (*sql.DB, error) {
	db, err := models.Open(driver, dsn, models.DBPoolConfig{
		MaxOpenConns: maxConns,
		MaxIdleConns: maxConns,
	})
	if err != nil {
		return nil, err
	}
	return db.DB()
}

// minConnWait 取连接的最短等待，极短的加锁超时也至少尝试一次
const minConnWait = 100 * time.Millisecond

// pinConn 在加锁超时内从会话池取出一条连接，池耗尽视为锁忙
func pinConn(ctx context.Context, db *sql.DB, timeout time.Duration) (*sql.Conn, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	wait := normalizeTimeout(timeout)
	if wait < minConnWait {
		wait = minConnWait
	}
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	conn, err := db.Conn(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	return conn, true, nil
}
