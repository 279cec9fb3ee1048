package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dujiao-next/chip-gateway/internal/constants"
	"github.com/dujiao-next/chip-gateway/internal/logger"
	"github.com/dujiao-next/chip-gateway/internal/payment/chip"
)

// WebhookResult 回调处理结果
type WebhookResult struct {
	Event           *chip.WebhookEvent
	Ignored         bool
	AlreadyTerminal bool
	Reconcile       *ReconcileResult
}

// HandleWebhook 校验并处理 CHIP 回调。验签始终作用于原始请求体。
func (s *ChipService) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	debug := s.debugLog("body_size", len(body))
	if len(bytes.TrimSpace(body)) == 0 {
		debug.Warnw("chip_webhook_body_empty")
		return nil, ErrWebhookBodyEmpty
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
		debug.Warnw("chip_webhook_json_invalid", "error", err)
		return nil, ErrWebhookPayloadInvalid
	}
	event, err := chip.ParseWebhookEvent(body)
	if err != nil {
		debug.Warnw("chip_webhook_json_invalid", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrWebhookPayloadInvalid, err)
	}

	brandID := strings.TrimSpace(event.BrandID)
	if brandID == "" {
		debug.Warnw("chip_webhook_brand_missing")
		return nil, ErrWebhookBrandMissing
	}
	if brandID != strings.TrimSpace(s.cfg.BrandID) {
		debug.Warnw("chip_webhook_brand_mismatch", "received_brand_id", brandID)
		return nil, ErrWebhookBrandMismatch
	}

	signature = strings.TrimSpace(signature)
	if signature == "" {
		debug.Warnw("chip_webhook_signature_missing")
		return nil, ErrWebhookSignatureMissing
	}
	publicKey, err := s.publicKeys.Get(ctx, brandID)
	if err != nil {
		logger.Errorw("chip_webhook_public_key_unavailable", "brand_id", brandID, "error", err)
		return nil, err
	}
	if !chip.VerifySignature(body, signature, publicKey) {
		debug.Warnw("chip_webhook_signature_invalid", "purchase_id", event.ID)
		return nil, ErrWebhookSignatureInvalid
	}

	return s.processWebhook(ctx, event)
}

func (s *ChipService) processWebhook(ctx context.Context, event *chip.WebhookEvent) (*WebhookResult, error) {
	result := &WebhookResult{Event: event, Ignored: true}
	log := logger.SW(
		"gateway", constants.PaymentMethodChip,
		"event_type", event.EventType,
		"purchase_id", event.ID,
		"reference", event.Reference,
	)
	if !event.IsPaid() {
		log.Infow("chip_webhook_event_ignored", "status", event.Status)
		return result, nil
	}
	if err := event.Validate(); err != nil {
		log.Warnw("chip_webhook_event_incomplete", "error", err)
		return result, nil
	}

	order, err := s.orderRepo.GetByUUID(strings.TrimSpace(event.Reference))
	if err != nil {
		log.Errorw("chip_webhook_order_fetch_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if order == nil {
		log.Warnw("chip_webhook_order_not_found")
		return result, nil
	}
	txn, err := s.txnRepo.GetLatestChargeByOrderAndMethod(order.ID, constants.PaymentMethodChip)
	if err != nil {
		log.Errorw("chip_webhook_transaction_fetch_failed", "order_id", order.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	if txn == nil {
		log.Warnw("chip_webhook_transaction_not_found", "order_id", order.ID)
		return result, nil
	}

	reconciled, err := s.reconciler.Reconcile(ctx, ReconcileInput{
		OrderID:            order.ID,
		TransactionID:      txn.ID,
		PurchaseID:         event.ID,
		PaymentMethodLabel: chip.MapPaymentMethodType(event.TransactionData.PaymentMethod, event.TransactionData.Extra),
		Source:             constants.ReconcileSourceWebhook,
	})
	if err != nil {
		return nil, err
	}
	result.Ignored = false
	result.AlreadyTerminal = reconciled.AlreadyTerminal
	result.Reconcile = reconciled
	return result, nil
}
