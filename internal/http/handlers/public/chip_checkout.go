package public

import (
	"strings"

	"github.com/dujiao-next/chip-gateway/internal/http/response"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ChipCheckoutRequest 创建 CHIP 支付请求
type ChipCheckoutRequest struct {
	TransactionUUID string `json:"transaction_uuid"`
}

// Validate 校验请求
func (r ChipCheckoutRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TransactionUUID, validation.Required, validation.Length(1, 64)),
	)
}

// ChipCheckout 为交易创建 CHIP purchase 并返回收银台地址
func (h *Handler) ChipCheckout(c *gin.Context) {
	var req ChipCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", nil)
		return
	}
	req.TransactionUUID = strings.TrimSpace(req.TransactionUUID)
	if err := req.Validate(); err != nil {
		respondError(c, response.CodeBadRequest, err.Error(), nil)
		return
	}
	result, err := h.ChipService.CreatePayment(c.Request.Context(), req.TransactionUUID)
	if err != nil {
		respondChipCheckoutError(c, err)
		return
	}
	response.Success(c, gin.H{
		"checkout_url": result.CheckoutURL,
		"purchase_id":  result.PurchaseID,
	})
}
