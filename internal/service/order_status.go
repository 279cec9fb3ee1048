package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/chip-gateway/internal/constants"
	"github.com/dujiao-next/chip-gateway/internal/models"
	"github.com/dujiao-next/chip-gateway/internal/repository"

	"gorm.io/gorm"
)

// OrderStatusSyncer 交易写入成功后同步订单状态，必须只使用传入的事务
type OrderStatusSyncer interface {
	SyncOrderStatuses(tx *gorm.DB, order *models.Order, txn *models.OrderTransaction) error
}

// DefaultOrderStatusSyncer 将订单推进到 processing / paid，并记录支付活动
type DefaultOrderStatusSyncer struct {
	now func() time.Time
}

// NewOrderStatusSyncer 创建默认同步器
func NewOrderStatusSyncer() *DefaultOrderStatusSyncer {
	return &DefaultOrderStatusSyncer{now: time.Now}
}

// SyncOrderStatuses 同步订单状态
func (s *DefaultOrderStatusSyncer) SyncOrderStatuses(tx *gorm.DB, order *models.Order, txn *models.OrderTransaction) error {
	if order == nil || txn == nil {
		return fmt.Errorf("%w: order or transaction is nil", ErrReconcileInputInvalid)
	}
	now := s.now()
	updates := map[string]interface{}{
		"payment_status": constants.OrderPaymentStatusPaid,
		"updated_at":     now,
	}
	if !order.IsPaymentSettled() {
		updates["status"] = constants.OrderStatusProcessing
	}
	if err := repository.NewOrderRepository(tx).UpdateFields(order.ID, updates); err != nil {
		return err
	}
	order.PaymentStatus = constants.OrderPaymentStatusPaid
	if status, ok := updates["status"].(string); ok {
		order.Status = status
	}
	order.UpdatedAt = now

	return repository.NewOrderActivityRepository(tx).Create(&models.OrderActivity{
		OrderID: order.ID,
		Title:   "Payment received",
		Content: paymentActivityContent(order, txn),
	})
}

func paymentActivityContent(order *models.Order, txn *models.OrderTransaction) string {
	parts := []string{fmt.Sprintf("Payment of %s %s received via CHIP", txn.Total.String(), strings.ToUpper(order.Currency))}
	if label := strings.TrimSpace(txn.PaymentMethodType); label != "" {
		parts = append(parts, fmt.Sprintf("(%s)", label))
	}
	content := strings.Join(parts, " ") + "."
	if txn.ChipPurchaseID != "" {
		content += " Purchase ID: " + txn.ChipPurchaseID
	}
	return content
}
