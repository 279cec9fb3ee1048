package worker

import (
	"context"
	"errors"

	"github.com/dujiao-next/chip-gateway/internal/config"
	"github.com/dujiao-next/chip-gateway/internal/logger"
	"github.com/dujiao-next/chip-gateway/internal/queue"

	"github.com/hibiken/asynq"
)

// ServiceName 支付后续处理 worker 的服务名
const ServiceName = "chip-worker"

// ErrQueueDisabled 队列未启用时无法创建 worker
var ErrQueueDisabled = errors.New("queue disabled")

// Service 消费 order:payment_paid 等任务的 asynq 服务
type Service struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	queues map[string]int
}

// NewService 创建 worker 服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, ErrQueueDisabled
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	serverCfg.Logger = logger.S()
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		server: asynq.NewServer(opt, serverCfg),
		mux:    mux,
		queues: serverCfg.Queues,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	return ServiceName
}

// Start 启动 worker 并阻塞到 ctx 结束。信号由 Runner 统一处理，这里不使用 asynq 的 Run。
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	logger.Infow("worker_started", "service", ServiceName, "queues", s.queues, "task", queue.TaskOrderPaymentPaid)
	<-ctx.Done()
	return nil
}

// Stop 等待进行中的任务完成后停止，ctx 超时则提前返回
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.server.Shutdown()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
