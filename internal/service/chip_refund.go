package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dujiao-next/chip-gateway/internal/constants"
	"github.com/dujiao-next/chip-gateway/internal/logger"
	"github.com/dujiao-next/chip-gateway/internal/models"
	"github.com/dujiao-next/chip-gateway/internal/payment/chip"
	"github.com/dujiao-next/chip-gateway/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefundInput 退款请求，金额单位为分
type RefundInput struct {
	TransactionUUID string
	AmountCents     int64
	Reason          string
}

// RefundOutcome 退款结果
type RefundOutcome struct {
	RefundID      string
	Transaction   *models.OrderTransaction
	PaymentStatus string
}

// Refund 对已成功的 CHIP 收款发起退款。非受理状态一律返回 ErrRefundRejected。
func (s *ChipService) Refund(ctx context.Context, input RefundInput) (*RefundOutcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if input.AmountCents <= 0 {
		return nil, ErrRefundAmountRequired
	}
	if !s.hasCredentials() {
		return nil, ErrChipCredentialsMissing
	}
	transactionUUID := strings.TrimSpace(input.TransactionUUID)
	if transactionUUID == "" {
		return nil, ErrTransactionUUIDEmpty
	}
	charge, err := s.txnRepo.GetByUUID(transactionUUID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if charge == nil {
		return nil, ErrTransactionNotFound
	}
	if charge.PaymentMethod != constants.PaymentMethodChip ||
		charge.TransactionType != constants.TransactionTypeCharge ||
		charge.Status != constants.TransactionStatusSucceeded ||
		strings.TrimSpace(charge.VendorChargeID) == "" {
		return nil, ErrRefundTransactionInvalid
	}

	held, err := s.locks.Acquire(ctx, charge.OrderID, s.lockTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockNotAcquired, err)
	}
	if !held {
		return nil, ErrLockNotAcquired
	}
	defer func() {
		if _, err := s.locks.Release(ctx, charge.OrderID); err != nil {
			logger.Errorw("chip_refund_lock_release_failed", "order_id", charge.OrderID, "error", err)
		}
	}()

	order, err := s.orderRepo.GetByID(charge.OrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	refunded, err := s.txnRepo.SumByOrderAndType(order.ID, constants.TransactionTypeRefund)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	amount := chip.FromCents(input.AmountCents)
	if refunded.Add(amount).GreaterThan(charge.Total.Decimal) {
		return nil, ErrRefundAmountExceeded
	}

	log := logger.SW(
		"gateway", constants.PaymentMethodChip,
		"order_id", order.ID,
		"purchase_id", charge.VendorChargeID,
		"amount_cents", input.AmountCents,
	)
	result, err := s.gateway.RefundPayment(ctx, charge.VendorChargeID, input.AmountCents)
	if err != nil {
		log.Warnw("chip_refund_request_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrRefundUnavailable, err)
	}
	if !result.Accepted() {
		log.Warnw("chip_refund_rejected", "status", result.Status)
		return nil, fmt.Errorf("%w: status %s", ErrRefundRejected, result.Status)
	}
	refundID := strings.TrimSpace(result.ID)
	if refundID == "" {
		refundID = charge.VendorChargeID
	}

	refundedTotal := models.NewMoneyFromDecimal(refunded.Add(amount))
	paymentStatus := constants.OrderPaymentStatusPartiallyRefunded
	if !refundedTotal.LessThan(order.TotalAmount.Decimal) {
		paymentStatus = constants.OrderPaymentStatusRefunded
	}
	refundTxn := &models.OrderTransaction{
		UUID:            uuid.NewString(),
		OrderID:         order.ID,
		PaymentMethod:   constants.PaymentMethodChip,
		TransactionType: constants.TransactionTypeRefund,
		Status:          constants.TransactionStatusRefunded,
		Total:           models.NewMoneyFromDecimal(amount),
		Currency:        charge.Currency,
		VendorChargeID:  refundID,
		ChipPurchaseID:  charge.ChipPurchaseID,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.txnRepo.WithTx(tx).Create(refundTxn); err != nil {
			return err
		}
		if err := s.orderRepo.WithTx(tx).UpdateFields(order.ID, map[string]interface{}{
			"refunded_total": refundedTotal,
			"payment_status": paymentStatus,
		}); err != nil {
			return err
		}
		content := fmt.Sprintf("Refund of %s %s processed via CHIP. Refund ID: %s", refundTxn.Total.String(), strings.ToUpper(order.Currency), refundID)
		if reason := strings.TrimSpace(input.Reason); reason != "" {
			content += ". Reason: " + reason
		}
		return repository.NewOrderActivityRepository(tx).Create(&models.OrderActivity{
			OrderID: order.ID,
			Title:   "Refund processed",
			Content: content,
		})
	})
	if err != nil {
		// CHIP 已受理退款，本地记录失败需要人工核对
		log.Errorw("chip_refund_persist_failed", "refund_id", refundID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrOrderUpdateFailed, err)
	}
	log.Infow("chip_refund_processed", "refund_id", refundID, "payment_status", paymentStatus)
	return &RefundOutcome{RefundID: refundID, Transaction: refundTxn, PaymentStatus: paymentStatus}, nil
}
