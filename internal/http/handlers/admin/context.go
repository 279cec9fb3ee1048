package admin

import (
	handlershared "github.com/dujiao-next/chip-gateway/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminSubjectKey 鉴权中间件写入的后台操作人
const AdminSubjectKey = "admin_subject"

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

// adminSubject 读取当前后台操作人，未鉴权时返回空串
func adminSubject(c *gin.Context) string {
	value, ok := c.Get(AdminSubjectKey)
	if !ok {
		return ""
	}
	subject, _ := value.(string)
	return subject
}
