package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dujiao-next/chip-gateway/internal/constants"
	"github.com/dujiao-next/chip-gateway/internal/logger"
	"github.com/dujiao-next/chip-gateway/internal/models"
	"github.com/dujiao-next/chip-gateway/internal/repository"

	"gorm.io/gorm"
)

// OrderPaidService 支付成功后的订单后续处理
type OrderPaidService struct {
	db        *gorm.DB
	orderRepo repository.OrderRepository
	now       func() time.Time
}

// NewOrderPaidService 创建支付后续处理服务
func NewOrderPaidService(db *gorm.DB, orderRepo repository.OrderRepository) *OrderPaidService {
	return &OrderPaidService{db: db, orderRepo: orderRepo, now: time.Now}
}

// HandlePaymentPaid 数字商品订单在支付后直接完成。重复执行时不会重复推进。
func (s *OrderPaidService) HandlePaymentPaid(_ context.Context, orderID uint) error {
	log := logger.SW("order_id", orderID)
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusProcessing ||
		order.PaymentMethod != constants.PaymentMethodChip ||
		order.FulfillmentType != constants.FulfillmentTypeDigital {
		log.Debugw("order_paid_skip",
			"status", order.Status,
			"payment_method", order.PaymentMethod,
			"fulfillment_type", order.FulfillmentType,
		)
		return nil
	}

	now := s.now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		moved, err := s.orderRepo.WithTx(tx).TransitionStatus(order.ID, constants.OrderStatusProcessing, constants.OrderStatusCompleted, map[string]interface{}{
			"completed_at": now,
			"updated_at":   now,
		})
		if err != nil || !moved {
			return err
		}
		return repository.NewOrderActivityRepository(tx).Create(&models.OrderActivity{
			OrderID: order.ID,
			Title:   "Order status updated",
			Content: fmt.Sprintf("Order status has been updated from %s to %s", constants.OrderStatusProcessing, constants.OrderStatusCompleted),
		})
	})
	if err != nil {
		log.Errorw("order_paid_complete_failed", "error", err)
		return fmt.Errorf("%w: %v", ErrOrderUpdateFailed, err)
	}
	log.Infow("order_paid_completed")
	return nil
}
