package shared

import (
	"github.com/dujiao-next/chip-gateway/internal/http/response"
	"github.com/dujiao-next/chip-gateway/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回统一错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Fail(c, appErr)
}

// RespondText 返回纯文本响应，支付渠道回调与回跳使用。
func RespondText(c *gin.Context, httpStatus int, msg string, err error) {
	if err != nil {
		RequestLog(c).Warnw("handler_text_error",
			"http_status", httpStatus,
			"message", msg,
			"error", err,
		)
	}
	response.Text(c, httpStatus, msg)
}
