package public

import (
	"errors"
	"net/http"

	"github.com/dujiao-next/chip-gateway/internal/http/response"
	"github.com/dujiao-next/chip-gateway/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
// JSON 接口使用 code 作为业务码，纯文本接口使用 code 作为 HTTP 状态码。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func matchMappedError(err error, rules []mappedHandlerError) (mappedHandlerError, bool) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			return rule, true
		}
	}
	return mappedHandlerError{}, false
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	if rule, ok := matchMappedError(err, rules); ok {
		respondError(c, rule.code, rule.msg, nil)
		return
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

func respondWithMappedText(c *gin.Context, err error, rules []mappedHandlerError, fallbackStatus int, fallbackMsg string) {
	if rule, ok := matchMappedError(err, rules); ok {
		respondText(c, rule.code, rule.msg, err)
		return
	}
	requestLog(c).Errorw("handler_text_unmapped_error", "error", err)
	response.Text(c, fallbackStatus, fallbackMsg)
}

const (
	webhookReplyOK       = "OK"
	textReplyInternal    = "Internal error"
	webhookReplyBusy     = "Order is being processed, retry later"
	chipSignatureHeader  = "X-Signature"
	chipCheckoutFallback = "Failed to create CHIP payment"
)

var chipWebhookErrorRules = []mappedHandlerError{
	{target: service.ErrWebhookBodyEmpty, code: http.StatusBadRequest, msg: "Empty request body"},
	{target: service.ErrWebhookPayloadInvalid, code: http.StatusBadRequest, msg: "Invalid JSON"},
	{target: service.ErrWebhookBrandMissing, code: http.StatusBadRequest, msg: "Missing brand_id"},
	{target: service.ErrWebhookBrandMismatch, code: http.StatusBadRequest, msg: "Brand ID mismatch"},
	{target: service.ErrWebhookSignatureMissing, code: http.StatusBadRequest, msg: "Missing signature"},
	{target: service.ErrPublicKeyUnavailable, code: http.StatusInternalServerError, msg: "Failed to get public key"},
	{target: service.ErrWebhookSignatureInvalid, code: http.StatusBadRequest, msg: "Invalid signature"},
	{target: service.ErrLockNotAcquired, code: http.StatusServiceUnavailable, msg: webhookReplyBusy},
}

var chipRedirectErrorRules = []mappedHandlerError{
	{target: service.ErrRedirectPassphraseDenied, code: http.StatusForbidden, msg: "Invalid redirect passphrase"},
	{target: service.ErrTransactionUUIDEmpty, code: http.StatusBadRequest, msg: "Invalid transaction UUID"},
	{target: service.ErrTransactionNotFound, code: http.StatusNotFound, msg: "Transaction not found"},
	{target: service.ErrOrderNotFound, code: http.StatusNotFound, msg: "Order not found"},
}

var chipCheckoutErrorRules = []mappedHandlerError{
	{target: service.ErrChipInactive, code: response.CodeBadRequest, msg: "CHIP payment is not active"},
	{target: service.ErrChipCredentialsMissing, code: response.CodeInternal, msg: "CHIP credentials are not configured"},
	{target: service.ErrTransactionUUIDEmpty, code: response.CodeBadRequest, msg: "Invalid transaction UUID"},
	{target: service.ErrTransactionNotFound, code: response.CodeNotFound, msg: "Transaction not found"},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "Order not found"},
	{target: service.ErrOrderAlreadyPaid, code: response.CodeConflict, msg: "Order is already paid"},
	{target: service.ErrChipCheckoutFailed, code: response.CodeBadGateway, msg: chipCheckoutFallback},
}

var chipReceiptErrorRules = []mappedHandlerError{
	{target: service.ErrTransactionUUIDEmpty, code: response.CodeBadRequest, msg: "Invalid transaction UUID"},
	{target: service.ErrTransactionNotFound, code: response.CodeNotFound, msg: "Transaction not found"},
}

func respondChipWebhookError(c *gin.Context, err error) {
	respondWithMappedText(c, err, chipWebhookErrorRules, http.StatusInternalServerError, textReplyInternal)
}

func respondChipRedirectError(c *gin.Context, err error) {
	respondWithMappedText(c, err, chipRedirectErrorRules, http.StatusInternalServerError, textReplyInternal)
}

func respondChipCheckoutError(c *gin.Context, err error) {
	respondWithMappedError(c, err, chipCheckoutErrorRules, response.CodeInternal, chipCheckoutFallback)
}

func respondChipReceiptError(c *gin.Context, err error) {
	respondWithMappedError(c, err, chipReceiptErrorRules, response.CodeInternal, "Failed to load receipt")
}
