package worker

import (
	"context"
	"errors"

	"github.com/dujiao-next/chip-gateway/internal/logger"
	"github.com/dujiao-next/chip-gateway/internal/provider"
	"github.com/dujiao-next/chip-gateway/internal/queue"
	"github.com/dujiao-next/chip-gateway/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderPaymentPaid, c.handleOrderPaymentPaid)
}

func (c *Consumer) handleOrderPaymentPaid(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_payment_paid_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseOrderPaymentPaidPayload(task)
	if err != nil {
		logger.Warnw("worker_order_payment_paid_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_payment_paid_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.Container == nil || c.OrderPaidService == nil {
		logger.Warnw("worker_order_payment_paid_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	err = c.OrderPaidService.HandlePaymentPaid(ctx, payload.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_order_payment_paid_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		default:
			logger.Warnw("worker_order_payment_paid_failed",
				"order_id", payload.OrderID,
				"transaction_id", payload.TransactionID,
				"source", payload.Source,
				"error", err,
			)
			return err
		}
	}
	return nil
}
