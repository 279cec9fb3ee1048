package service

import "errors"

// 订单与交易
var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrTransactionUUIDEmpty  = errors.New("transaction uuid is empty")
	ErrOrderFetchFailed      = errors.New("order fetch failed")
	ErrOrderUpdateFailed     = errors.New("order update failed")
	ErrOrderAlreadyPaid      = errors.New("order already paid")
	ErrReconcileInputInvalid = errors.New("reconcile input invalid")
	ErrReconcileFailed       = errors.New("reconcile failed")
)

// ErrLockNotAcquired 订单锁在超时时间内未获取，可重试
var ErrLockNotAcquired = errors.New("order lock not acquired")

// CHIP 渠道
var (
	ErrChipInactive           = errors.New("chip gateway is not active")
	ErrChipCredentialsMissing = errors.New("chip credentials missing")
	ErrChipCheckoutFailed     = errors.New("chip checkout failed")
	ErrPublicKeyUnavailable   = errors.New("chip public key unavailable")
)

// 回调校验
var (
	ErrWebhookBodyEmpty         = errors.New("webhook body empty")
	ErrWebhookPayloadInvalid    = errors.New("webhook payload invalid")
	ErrWebhookBrandMissing      = errors.New("webhook brand_id missing")
	ErrWebhookBrandMismatch     = errors.New("webhook brand_id mismatch")
	ErrWebhookSignatureMissing  = errors.New("webhook signature missing")
	ErrWebhookSignatureInvalid  = errors.New("webhook signature invalid")
	ErrRedirectPassphraseDenied = errors.New("redirect passphrase invalid")
)

// 退款
var (
	ErrRefundAmountRequired     = errors.New("refund amount is required")
	ErrRefundAmountExceeded     = errors.New("refund amount exceeds refundable total")
	ErrRefundTransactionInvalid = errors.New("refund transaction invalid")
	ErrRefundUnavailable        = errors.New("refund request unavailable")
	ErrRefundRejected           = errors.New("refund rejected")
)
