package public

import (
	"github.com/dujiao-next/chip-gateway/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ChipReceipt 查询交易的 CHIP 收据地址
func (h *Handler) ChipReceipt(c *gin.Context) {
	url, err := h.ChipService.Receipt(c.Request.Context(), c.Param("transaction_uuid"))
	if err != nil {
		respondChipReceiptError(c, err)
		return
	}
	response.Success(c, gin.H{"receipt_url": url})
}
