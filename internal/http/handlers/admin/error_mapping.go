package admin

import (
	"errors"

	"github.com/dujiao-next/chip-gateway/internal/http/response"
	"github.com/dujiao-next/chip-gateway/internal/service"

	"github.com/gin-gonic/gin"
)

type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var chipRefundErrorRules = []mappedHandlerError{
	{target: service.ErrRefundAmountRequired, code: response.CodeBadRequest, msg: "Refund amount must be greater than zero"},
	{target: service.ErrTransactionUUIDEmpty, code: response.CodeBadRequest, msg: "Invalid transaction UUID"},
	{target: service.ErrRefundTransactionInvalid, code: response.CodeBadRequest, msg: "Transaction cannot be refunded"},
	{target: service.ErrRefundAmountExceeded, code: response.CodeBadRequest, msg: "Refund amount exceeds refundable total"},
	{target: service.ErrTransactionNotFound, code: response.CodeNotFound, msg: "Transaction not found"},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "Order not found"},
	{target: service.ErrChipCredentialsMissing, code: response.CodeInternal, msg: "CHIP credentials are not configured"},
	{target: service.ErrRefundRejected, code: response.CodeBadGateway, msg: "Refund was rejected by CHIP"},
	{target: service.ErrRefundUnavailable, code: response.CodeBadGateway, msg: "CHIP refund request failed"},
	{target: service.ErrLockNotAcquired, code: response.CodeServiceUnavailable, msg: "Order is being processed, retry later"},
}

func respondChipRefundError(c *gin.Context, err error) {
	respondWithMappedError(c, err, chipRefundErrorRules, response.CodeInternal, "Refund failed")
}
