package response

import "errors"

// AppError 接口层错误，Code 为对外业务码，Err 保留原始业务错误用于日志与 errors.Is
type AppError struct {
	Code       int
	Message    string
	Err        error
	RetryAfter int
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Retryable 是否建议调用方稍后重试
func (e *AppError) Retryable() bool {
	return e != nil && IsRetryableCode(e.Code)
}

// retryAfterSeconds 可重试错误的重试间隔，未指定时使用默认值
func (e *AppError) retryAfterSeconds() int {
	if !e.Retryable() {
		return 0
	}
	if e.RetryAfter > 0 {
		return e.RetryAfter
	}
	return DefaultRetryAfterSeconds
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// AsAppError 从错误链中取出 AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
