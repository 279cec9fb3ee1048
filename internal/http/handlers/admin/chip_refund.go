package admin

import (
	"errors"
	"strings"

	"github.com/dujiao-next/chip-gateway/internal/http/response"
	"github.com/dujiao-next/chip-gateway/internal/payment/chip"
	"github.com/dujiao-next/chip-gateway/internal/service"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

var errRefundAmountFormat = errors.New("must be a positive amount with at most 2 decimals")

// ChipRefundRequest 后台退款请求，amount 为带两位小数的金额字符串
type ChipRefundRequest struct {
	TransactionUUID string `json:"transaction_uuid"`
	Amount          string `json:"amount"`
	Reason          string `json:"reason"`
}

// Validate 校验请求
func (r ChipRefundRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TransactionUUID, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Amount, validation.Required, validation.By(validateRefundAmount)),
		validation.Field(&r.Reason, validation.Length(0, 255)),
	)
}

func validateRefundAmount(value interface{}) error {
	raw, _ := value.(string)
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !amount.IsPositive() || amount.Exponent() < -2 {
		return errRefundAmountFormat
	}
	return nil
}

// AmountCents 金额转为最小货币单位
func (r ChipRefundRequest) AmountCents() int64 {
	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return 0
	}
	return chip.ToCents(amount)
}

// ChipRefund 对 CHIP 收款发起全额或部分退款
func (h *Handler) ChipRefund(c *gin.Context) {
	var req ChipRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", nil)
		return
	}
	req.TransactionUUID = strings.TrimSpace(req.TransactionUUID)
	if err := req.Validate(); err != nil {
		respondError(c, response.CodeBadRequest, err.Error(), nil)
		return
	}

	outcome, err := h.ChipService.Refund(c.Request.Context(), service.RefundInput{
		TransactionUUID: req.TransactionUUID,
		AmountCents:     req.AmountCents(),
		Reason:          req.Reason,
	})
	if err != nil {
		respondChipRefundError(c, err)
		return
	}
	requestLog(c).Infow("admin_chip_refund_processed",
		"admin", adminSubject(c),
		"transaction_uuid", req.TransactionUUID,
		"refund_id", outcome.RefundID,
		"payment_status", outcome.PaymentStatus,
	)
	response.Success(c, gin.H{
		"refund_id":      outcome.RefundID,
		"payment_status": outcome.PaymentStatus,
	})
}
