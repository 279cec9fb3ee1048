package response

// 业务状态码，与 HTTP 状态码取值一致，JSON 接口始终以 HTTP 200 返回
const (
	CodeOK                 = 0
	CodeBadRequest         = 400
	CodeUnauthorized       = 401
	CodeForbidden          = 403
	CodeNotFound           = 404
	CodeConflict           = 409
	CodeTooManyRequests    = 429
	CodeInternal           = 500
	CodeBadGateway         = 502
	CodeServiceUnavailable = 503
)

// DefaultRetryAfterSeconds 订单锁繁忙时建议 CHIP 与调用方的重试间隔
const DefaultRetryAfterSeconds = 5

// IsRetryableCode 限流、CHIP 网关失败与订单锁繁忙属于可重试错误，重试不会造成重复入账
func IsRetryableCode(code int) bool {
	switch code {
	case CodeTooManyRequests, CodeBadGateway, CodeServiceUnavailable:
		return true
	default:
		return false
	}
}
