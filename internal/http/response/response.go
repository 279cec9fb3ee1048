package response

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	requestIDKey     = "request_id"
	retryAfterHeader = "Retry-After"
)

// Response 统一响应结构
type Response struct {
	StatusCode int         `json:"status_code"` // 业务状态码
	Msg        string      `json:"msg"`         // 提示消息
	Data       interface{} `json:"data"`        // 数据内容
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		StatusCode: CodeOK,
		Msg:        "success",
		Data:       data,
	})
}

// Error 错误响应，data 携带 request_id，可重试的错误额外标记 retryable
func Error(c *gin.Context, statusCode int, msg string) {
	Fail(c, WrapError(statusCode, msg, nil))
}

// Fail 以 AppError 输出错误响应，可重试时同时写入 Retry-After 头
func Fail(c *gin.Context, appErr *AppError) {
	if appErr == nil {
		appErr = WrapError(CodeInternal, "Internal error", nil)
	}
	data := gin.H{}
	if requestID := requestIDFrom(c); requestID != "" {
		data["request_id"] = requestID
	}
	if wait := appErr.retryAfterSeconds(); wait > 0 {
		data["retryable"] = true
		data["retry_after"] = wait
		c.Header(retryAfterHeader, strconv.Itoa(wait))
	}
	var payload interface{}
	if len(data) > 0 {
		payload = data
	}
	c.JSON(http.StatusOK, Response{
		StatusCode: appErr.Code,
		Msg:        appErr.Message,
		Data:       payload,
	})
}

// Text 纯文本响应。CHIP 只按 HTTP 状态码判断 webhook 结果，
// 503 与 429 附带 Retry-After，提示其稍后重投。
func Text(c *gin.Context, httpStatus int, body string) {
	TextRetryAfter(c, httpStatus, body, 0)
}

// TextRetryAfter 纯文本响应并指定重试间隔，wait 不大于 0 时使用默认值
func TextRetryAfter(c *gin.Context, httpStatus int, body string, wait int) {
	if IsRetryableCode(httpStatus) && httpStatus != http.StatusBadGateway {
		if wait <= 0 {
			wait = DefaultRetryAfterSeconds
		}
		c.Header(retryAfterHeader, strconv.Itoa(wait))
	}
	c.String(httpStatus, body)
}

// Unauthorized 401响应
func Unauthorized(c *gin.Context, msg string) {
	Error(c, CodeUnauthorized, msg)
}

// Forbidden 403响应
func Forbidden(c *gin.Context, msg string) {
	Error(c, CodeForbidden, msg)
}

// BadRequest 400响应
func BadRequest(c *gin.Context, msg string) {
	Error(c, CodeBadRequest, msg)
}

func requestIDFrom(c *gin.Context) string {
	if c == nil {
		return ""
	}
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	id, _ := value.(string)
	return id
}
