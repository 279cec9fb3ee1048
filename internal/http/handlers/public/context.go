package public

import (
	handlershared "github.com/dujiao-next/chip-gateway/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const callbackLogValueLimit = 4096

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondText(c *gin.Context, httpStatus int, msg string, err error) {
	handlershared.RespondText(c, httpStatus, msg, err)
}

func truncateCallbackLogValue(raw string) string {
	if len(raw) <= callbackLogValueLimit {
		return raw
	}
	return raw[:callbackLogValueLimit] + "...(truncated)"
}

func callbackRawBodyForLog(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	return truncateCallbackLogValue(string(body))
}
