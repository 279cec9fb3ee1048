package public

import (
	"io"
	"net/http"
	"strings"

	"github.com/dujiao-next/chip-gateway/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ChipWebhook CHIP success_callback 回调，始终以原始请求体验签。
func (h *Handler) ChipWebhook(c *gin.Context) {
	log := requestLog(c)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondText(c, http.StatusBadRequest, "Empty request body", err)
		return
	}
	signature := strings.TrimSpace(c.GetHeader(chipSignatureHeader))
	log.Infow("chip_webhook_received",
		"client_ip", c.ClientIP(),
		"body_size", len(body),
		"signature", truncateCallbackLogValue(signature),
	)
	if h.Config != nil && h.Config.Chip.Debug {
		log.Debugw("chip_webhook_raw_body", "raw_body", callbackRawBodyForLog(body))
	}

	result, err := h.ChipService.HandleWebhook(c.Request.Context(), body, signature)
	if err != nil {
		log.Warnw("chip_webhook_handle_failed", "error", err)
		respondChipWebhookError(c, err)
		return
	}
	if result != nil && result.Event != nil {
		log.Infow("chip_webhook_processed",
			"event_type", result.Event.EventType,
			"purchase_id", result.Event.ID,
			"ignored", result.Ignored,
			"already_terminal", result.AlreadyTerminal,
		)
	}
	response.Text(c, http.StatusOK, webhookReplyOK)
}
