package public

import (
	"net/http"

	"github.com/dujiao-next/chip-gateway/internal/constants"
	"github.com/dujiao-next/chip-gateway/internal/service"

	"github.com/gin-gonic/gin"
)

// ChipRedirect 浏览器回跳，查询一次 CHIP 状态后跳转到成功页或取消页。
func (h *Handler) ChipRedirect(c *gin.Context) {
	result, err := h.ChipService.HandleRedirect(c.Request.Context(), service.RedirectInput{
		Passphrase:      c.Query(constants.ChipRedirectQueryKey),
		TransactionUUID: c.Query(service.RedirectTransactionQueryKey),
	})
	if err != nil {
		respondChipRedirectError(c, err)
		return
	}
	requestLog(c).Infow("chip_redirect_resolved",
		"transaction_uuid", c.Query(service.RedirectTransactionQueryKey),
		"paid", result.Paid,
	)
	c.Redirect(http.StatusFound, result.URL)
}
