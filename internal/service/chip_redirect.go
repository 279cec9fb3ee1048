package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dujiao-next/chip-gateway/internal/constants"
	"github.com/dujiao-next/chip-gateway/internal/logger"
	"github.com/dujiao-next/chip-gateway/internal/payment/chip"
)

// RedirectInput 浏览器回跳参数
type RedirectInput struct {
	Passphrase      string
	TransactionUUID string
}

// RedirectResult 回跳结果，URL 为成功或取消地址
type RedirectResult struct {
	URL  string
	Paid bool
}

// HandleRedirect 浏览器回跳对账：已支付直接跳成功页；否则查询一次 CHIP 状态，
// 已支付则走对账，其余情况跳取消页。
func (s *ChipService) HandleRedirect(ctx context.Context, input RedirectInput) (*RedirectResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ok, err := s.passphrase.Verify(ctx, input.Passphrase)
	if err != nil {
		logger.Errorw("chip_redirect_passphrase_read_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if !ok {
		return nil, ErrRedirectPassphraseDenied
	}

	transactionUUID := strings.TrimSpace(input.TransactionUUID)
	if transactionUUID == "" {
		return nil, ErrTransactionUUIDEmpty
	}
	txn, err := s.txnRepo.GetByUUID(transactionUUID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if txn == nil {
		return nil, ErrTransactionNotFound
	}
	order, err := s.orderRepo.GetByID(txn.OrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	log := logger.SW(
		"gateway", constants.PaymentMethodChip,
		"order_id", order.ID,
		"transaction_uuid", txn.UUID,
	)
	if order.IsPaymentSettled() || txn.Status == constants.TransactionStatusSucceeded {
		s.debugLog("order_id", order.ID).Infow("chip_redirect_already_paid", "order_status", order.Status)
		return &RedirectResult{URL: s.SuccessURL(txn), Paid: true}, nil
	}

	cancel := &RedirectResult{URL: s.CancelURL(txn)}
	purchaseID := s.purchaseIDFor(order, txn)
	if purchaseID == "" {
		log.Warnw("chip_redirect_purchase_id_missing")
		return cancel, nil
	}
	purchase, err := s.gateway.GetPayment(ctx, purchaseID)
	if err != nil {
		log.Warnw("chip_redirect_status_unavailable", "purchase_id", purchaseID, "error", err)
		return cancel, nil
	}
	if !purchase.IsPaid() {
		log.Infow("chip_redirect_not_paid", "purchase_id", purchaseID, "status", purchase.Status)
		return cancel, nil
	}

	if _, err := s.reconciler.Reconcile(ctx, ReconcileInput{
		OrderID:            order.ID,
		TransactionID:      txn.ID,
		PurchaseID:         purchaseID,
		PaymentMethodLabel: chip.MapPaymentMethodType(purchase.PaymentMethod(), purchase.TransactionData.Extra),
		Source:             constants.ReconcileSourceRedirect,
	}); err != nil {
		log.Warnw("chip_redirect_reconcile_failed", "purchase_id", purchaseID, "error", err)
		return cancel, nil
	}
	return &RedirectResult{URL: s.SuccessURL(txn), Paid: true}, nil
}
